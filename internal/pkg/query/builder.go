package query

import (
	"fmt"
	"strings"

	"cloud.google.com/go/spanner"
)

// KeysetScan builds the statements of a full-table scan ordered by the
// primary key. Each page resumes strictly after the last key of the
// previous one, so pages never overlap and no OFFSET is needed.
//
// A KeysetScan is a value: Columns and Filter return modified copies.
type KeysetScan struct {
	table    string
	key      string
	columns  []string
	filters  []Condition
	pageSize int64
}

// Keyset starts a scan of table ordered by key.
func Keyset(table, key string, pageSize int64) KeysetScan {
	if pageSize <= 0 {
		pageSize = 100
	}
	return KeysetScan{table: table, key: key, pageSize: pageSize}
}

// Columns sets the selected columns. Without it the scan selects *.
func (s KeysetScan) Columns(cols ...string) KeysetScan {
	s.columns = append(append([]string(nil), s.columns...), cols...)
	return s
}

// Filter adds a condition ANDed with the keyset bound.
func (s KeysetScan) Filter(c Condition) KeysetScan {
	s.filters = append(append([]Condition(nil), s.filters...), c)
	return s
}

// PageSize returns the row limit of every page.
func (s KeysetScan) PageSize() int64 { return s.pageSize }

// Last reports whether a page of n rows was the final one.
func (s KeysetScan) Last(n int) bool { return int64(n) < s.pageSize }

// Page returns the statement for the page after the given key; an empty
// key selects the first page.
func (s KeysetScan) Page(after string) spanner.Statement {
	conds := s.filters
	if after != "" {
		conds = append(append([]Condition(nil), conds...), Gt(s.key, after))
	}

	var sql strings.Builder
	params := map[string]interface{}{"limit": s.pageSize}

	cols := "*"
	if len(s.columns) > 0 {
		cols = strings.Join(s.columns, ", ")
	}
	fmt.Fprintf(&sql, "SELECT %s FROM %s", cols, s.table)

	next := 0
	for i, c := range conds {
		fragment, condParams := c.SQL(next)
		next += len(condParams)
		if i == 0 {
			sql.WriteString(" WHERE ")
		} else {
			sql.WriteString(" AND ")
		}
		sql.WriteString(fragment)
		for k, v := range condParams {
			params[k] = v
		}
	}

	fmt.Fprintf(&sql, " ORDER BY %s ASC LIMIT @limit", s.key)
	return spanner.Statement{SQL: sql.String(), Params: params}
}
