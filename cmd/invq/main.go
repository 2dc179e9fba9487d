// invq は在庫表をターミナルから引くためのツール。
//
//	invq -csv data/inventory.csv DAC-100        品番で引く（別名も見る）
//	invq -csv data/inventory.csv -q dac -field item   部分一致で探す
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/Kartik-Sangwan/dtk-site/internal/inventory"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "invq:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	_ = godotenv.Load()

	defPath := os.Getenv("INVENTORY_CSV_PATH")
	if defPath == "" {
		defPath = "data/inventory.csv"
	}

	fs := flag.NewFlagSet("invq", flag.ContinueOnError)
	fs.SetOutput(out)
	path := fs.String("csv", defPath, "inventory CSV path")
	query := fs.String("q", "", "substring search")
	field := fs.String("field", string(inventory.FieldAny), "any|item|customer|desc")
	all := fs.Bool("all", false, "include customer part numbers and non-D items")
	if err := fs.Parse(args); err != nil {
		return err
	}

	inv := inventory.NewResolver(inventory.Options{Path: *path})

	var rows []inventory.Row
	switch {
	case *query != "":
		res, err := inv.Search(ctx, inventory.Query{Q: *query, Field: inventory.SearchField(*field), Privileged: *all})
		if err != nil {
			return err
		}
		rows = res.Items
		defer fmt.Fprintf(out, "%d match(es)\n", res.Count)
	case fs.NArg() > 0:
		found, err := inv.FindMany(ctx, fs.Args())
		if err != nil {
			return err
		}
		for _, p := range fs.Args() {
			if row := found[p]; row != nil {
				rows = append(rows, *row)
			} else {
				fmt.Fprintf(out, "not found: %s\n", p)
			}
		}
	default:
		return errors.New("pass part numbers or -q")
	}

	return render(out, rows, *all)
}

func render(out io.Writer, rows []inventory.Row, withCustomer bool) error {
	table := tablewriter.NewWriter(out)
	if withCustomer {
		table.Header("Item", "Description", "Qty", "Price", "Customer Part")
	} else {
		table.Header("Item", "Description", "Qty", "Price")
	}

	for _, r := range rows {
		line := []string{r.Item, r.Description, strconv.FormatInt(r.QtyOnHand, 10), priceText(r)}
		if withCustomer {
			line = append(line, r.CustomerPartNo)
		}
		if err := table.Append(line); err != nil {
			return err
		}
	}
	return table.Render()
}

func priceText(r inventory.Row) string {
	if !r.Priced() {
		return "quote"
	}
	return "$" + r.Price.StringFixed(2)
}
