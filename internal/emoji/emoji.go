// Package emoji implements emoji-symbol-to-name substitution: an ordered
// list of (symbol, name) pairs loaded once from an embedded resource,
// applied to outbound bot text in declared order.
package emoji

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"strings"
)

//go:embed table.txt
var defaultTableFS embed.FS

// Pair is one (symbol, name) replacement entry.
type Pair struct {
	Symbol string
	Name   string
}

// Table holds an ordered, immutable emoji replacement list. Once
// constructed it is safe for unlimited concurrent use.
type Table struct {
	pairs []Pair
}

// Default loads the table embedded at build time (table.txt, tab
// separated "symbol<TAB>name" lines, "#"-prefixed and blank lines
// skipped).
func Default() (*Table, error) {
	data, err := defaultTableFS.ReadFile("table.txt")
	if err != nil {
		return nil, fmt.Errorf("emoji: read embedded table: %w", err)
	}
	return Parse(data)
}

// Parse builds a Table from tab-separated "symbol<TAB>name" lines.
func Parse(data []byte) (*Table, error) {
	var pairs []Pair
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.SplitN(line, "\t", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("emoji: malformed table line %q", line)
		}
		pairs = append(pairs, Pair{Symbol: fields[0], Name: fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("emoji: scan table: %w", err)
	}
	return &Table{pairs: pairs}, nil
}

// Substitute replaces every occurrence of each symbol with its name, in
// table declaration order.
func (t *Table) Substitute(s string) string {
	for _, p := range t.pairs {
		if strings.Contains(s, p.Symbol) {
			s = strings.ReplaceAll(s, p.Symbol, p.Name)
		}
	}
	return s
}
