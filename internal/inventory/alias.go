package inventory

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed aliases.yaml
var aliasesYAML []byte

// AliasTable は部品番号 → 同等品番号
type AliasTable map[string][]string

// DefaultAliases は埋め込みの対応表
func DefaultAliases() AliasTable {
	t, err := ParseAliases(aliasesYAML)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseAliases はYAMLの対応表を読む。キーは大文字にそろえる
func ParseAliases(b []byte) (AliasTable, error) {
	raw := map[string][]string{}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse aliases: %w", err)
	}

	t := make(AliasTable, len(raw))
	for k, v := range raw {
		key := strings.ToUpper(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		t[key] = append(t[key], v...)
	}
	return t, nil
}

// For は入力自身を除いた同等品番号を返す（重複なし）
func (t AliasTable) For(partNo string) []string {
	p := strings.ToUpper(strings.TrimSpace(partNo))
	if p == "" {
		return nil
	}

	seen := map[string]bool{p: true}
	out := []string{}
	for _, a := range t[p] {
		if seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}
