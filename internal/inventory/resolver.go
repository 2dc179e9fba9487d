package inventory

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// DefaultTTL は在庫表を読み直すまでの時間
const DefaultTTL = 30 * time.Second

// 検索結果の上限
const maxSearchResults = 500

// Finder は価格計算・カートが使う最小の窓口
type Finder interface {
	FindByPartNo(ctx context.Context, partNo string) (*Row, error)
	FindMany(ctx context.Context, partNos []string) (map[string]*Row, error)
}

type Options struct {
	Path    string
	TTL     time.Duration
	Aliases AliasTable
	Now     func() time.Time
}

// Resolver は在庫表をメモリに持ち、部品番号で引く
type Resolver struct {
	path    string
	ttl     time.Duration
	aliases AliasTable
	now     func() time.Time

	mu   sync.Mutex
	snap *snapshot
}

type snapshot struct {
	rows     []Row
	index    map[string]Row
	loadedAt time.Time
}

func NewResolver(opts Options) *Resolver {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Aliases == nil {
		opts.Aliases = DefaultAliases()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Resolver{
		path:    opts.Path,
		ttl:     opts.TTL,
		aliases: opts.Aliases,
		now:     opts.Now,
	}
}

// ReadAll は全行を返す（キャッシュ有効中は読み直さない）
func (r *Resolver) ReadAll(ctx context.Context) ([]Row, error) {
	s, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.rows, nil
}

// FindByPartNo は別名も含めて一番良い行を返す。無ければ nil
func (r *Resolver) FindByPartNo(ctx context.Context, partNo string) (*Row, error) {
	s, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	return r.resolve(s, partNo), nil
}

// FindMany は trim した入力 → 行（無ければ nil）
func (r *Resolver) FindMany(ctx context.Context, partNos []string) (map[string]*Row, error) {
	s, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*Row, len(partNos))
	for _, raw := range partNos {
		p := strings.TrimSpace(raw)
		if p == "" {
			continue
		}
		out[p] = r.resolve(s, p)
	}
	return out, nil
}

// Invalidate は次の呼び出しで読み直させる
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.snap = nil
	r.mu.Unlock()
}

func (r *Resolver) resolve(s *snapshot, partNo string) *Row {
	candidates := append([]string{partNo}, r.aliases.For(partNo)...)

	var best *Row
	for _, c := range candidates {
		key := NormalizePartNo(c)
		if key == "" {
			continue
		}
		row, ok := s.index[key]
		if !ok {
			continue
		}
		if best == nil || isBetter(row, *best) {
			picked := row
			best = &picked
		}
	}
	return best
}

func (r *Resolver) load(ctx context.Context) (*snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if r.snap != nil && now.Sub(r.snap.loadedAt) < r.ttl {
		return r.snap, nil
	}

	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open inventory: %w", err)
	}
	defer f.Close()

	rows, err := ParseCSV(f)
	if err != nil {
		return nil, err
	}

	r.snap = &snapshot{rows: rows, index: buildIndex(rows), loadedAt: now}
	return r.snap, nil
}

// 品番キーを先に、その後で客先品番キーを入れる
func buildIndex(rows []Row) map[string]Row {
	index := make(map[string]Row, len(rows)*2)
	put := func(key string, row Row) {
		if key == "" {
			return
		}
		if cur, ok := index[key]; !ok || isBetter(row, cur) {
			index[key] = row
		}
	}

	for _, row := range rows {
		put(NormalizePartNo(row.Item), row)
	}
	for _, row := range rows {
		put(NormalizePartNo(row.CustomerPartNo), row)
	}
	return index
}

// 検索対象の列
type SearchField string

const (
	FieldAny      SearchField = "any"
	FieldItem     SearchField = "item"
	FieldCustomer SearchField = "customer"
	FieldDesc     SearchField = "desc"
)

type Query struct {
	Q          string
	Field      SearchField
	Privileged bool
}

type SearchResult struct {
	Count int
	Items []Row
}

// Search は部分一致（大小文字無視）。特権なしはD始まりだけ、客先品番は空にする
func (r *Resolver) Search(ctx context.Context, q Query) (SearchResult, error) {
	rows, err := r.ReadAll(ctx)
	if err != nil {
		return SearchResult{}, err
	}

	needle := strings.ToLower(strings.TrimSpace(q.Q))
	if needle == "" {
		return SearchResult{Items: []Row{}}, nil
	}

	contains := func(hay string) bool {
		return strings.Contains(strings.ToLower(hay), needle)
	}

	count := 0
	items := []Row{}
	for _, row := range rows {
		if !q.Privileged && !strings.HasPrefix(row.Item, "D") {
			continue
		}

		var hit bool
		switch q.Field {
		case FieldItem:
			hit = contains(row.Item)
		case FieldCustomer:
			hit = q.Privileged && contains(row.CustomerPartNo)
		case FieldDesc:
			hit = contains(row.Description)
		default:
			hit = contains(row.Item) || contains(row.Description) || (q.Privileged && contains(row.CustomerPartNo))
		}
		if !hit {
			continue
		}

		count++
		if len(items) >= maxSearchResults {
			continue
		}
		if !q.Privileged {
			row.CustomerPartNo = ""
		}
		items = append(items, row)
	}

	return SearchResult{Count: count, Items: items}, nil
}
