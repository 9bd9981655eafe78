package database

import (
	"fmt"
	"strings"
)

// Filter accumulates AND-ed WHERE conditions for list queries. Column names
// come from the calling query code, never from request input; every value
// is sent as a bound $n parameter.
type Filter struct {
	conds []string
	args  []interface{}
}

func (f *Filter) bind(v interface{}) string {
	f.args = append(f.args, v)
	return fmt.Sprintf("$%d", len(f.args))
}

func (f *Filter) Eq(column string, v interface{}) *Filter {
	f.conds = append(f.conds, column+" = "+f.bind(v))
	return f
}

func (f *Filter) Gte(column string, v interface{}) *Filter {
	f.conds = append(f.conds, column+" >= "+f.bind(v))
	return f
}

func (f *Filter) Lte(column string, v interface{}) *Filter {
	f.conds = append(f.conds, column+" <= "+f.bind(v))
	return f
}

func (f *Filter) Lt(column string, v interface{}) *Filter {
	f.conds = append(f.conds, column+" < "+f.bind(v))
	return f
}

// ILikeAny matches text as a case-insensitive substring of any of columns.
// LIKE wildcards in text are matched literally.
func (f *Filter) ILikeAny(text string, columns ...string) *Filter {
	if len(columns) == 0 {
		return f
	}
	p := f.bind("%" + escapeLike(text) + "%")
	ors := make([]string, len(columns))
	for i, c := range columns {
		ors[i] = c + " ILIKE " + p
	}
	f.conds = append(f.conds, "("+strings.Join(ors, " OR ")+")")
	return f
}

// Where returns the WHERE clause with a leading space, or "" when empty.
func (f *Filter) Where() string {
	if len(f.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.conds, " AND ")
}

// Args returns a copy of the bound values in placeholder order.
func (f *Filter) Args() []interface{} {
	out := make([]interface{}, len(f.args))
	copy(out, f.args)
	return out
}

// Page appends LIMIT/OFFSET placeholders to a copy of the filter's args.
func (f *Filter) Page(limit, offset int32) (string, []interface{}) {
	args := f.Args()
	n := len(args)
	args = append(args, limit, offset)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
