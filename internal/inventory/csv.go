package inventory

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

// 列の位置。見つからなければ -1
type columns struct {
	item, description, qty, price, cust int
}

// ParseCSV は在庫表を読む。ヘッダは大小文字・空白の違いを無視する
func ParseCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []Row{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read inventory header: %w", err)
	}
	cols := locateColumns(header)
	if cols.item < 0 {
		return nil, errors.New("inventory csv: missing item column")
	}

	rows := []Row{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read inventory row: %w", err)
		}
		if cell(rec, cols.item) == "" {
			continue
		}

		row := Row{
			Item:           cell(rec, cols.item),
			Description:    cell(rec, cols.description),
			QtyOnHand:      max(0, toNumber(cell(rec, cols.qty)).IntPart()),
			Price:          toNumber(cell(rec, cols.price)),
			CustomerPartNo: cell(rec, cols.cust),
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func locateColumns(header []string) columns {
	idx := map[string]int{}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		k := normalizeHeader(h)
		if _, ok := idx[k]; !ok {
			idx[k] = i
		}
	}
	find := func(names ...string) int {
		for _, n := range names {
			if i, ok := idx[n]; ok {
				return i
			}
		}
		return -1
	}

	return columns{
		item:        find("item"),
		description: find("description"),
		qty:         find("quantity on hand", "quantity"),
		price:       find("price"),
		cust:        find("customer part#", "customer part #"),
	}
}

func normalizeHeader(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// toNumber は数字・小数点・マイナス以外を落として読む。読めなければ0
func toNumber(s string) decimal.Decimal {
	var b strings.Builder
	for _, ch := range s {
		if (ch >= '0' && ch <= '9') || ch == '.' || ch == '-' {
			b.WriteRune(ch)
		}
	}
	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}
