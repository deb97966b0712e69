package querybuilder

import (
	"strconv"
	"strings"
)

// argList collects bind values and hands out postgres placeholders in order.
type argList struct {
	values []any
}

func (a *argList) bind(value any) string {
	a.values = append(a.values, value)
	return "$" + strconv.Itoa(len(a.values))
}

// expand replaces each '?' in expr with the next bound value. '?' past the
// last arg, or any '?' when there are no args, is written unchanged.
func (a *argList) expand(expr string, exprArgs []any) string {
	if len(exprArgs) == 0 {
		return expr
	}

	var out strings.Builder
	next := 0
	for i := 0; i < len(expr); i++ {
		if expr[i] != '?' || next >= len(exprArgs) {
			out.WriteByte(expr[i])
			continue
		}
		out.WriteString(a.bind(exprArgs[next]))
		next++
	}
	return out.String()
}

func writeWhere(buf *strings.Builder, conditions []Condition, args *argList) {
	for i, c := range conditions {
		if i == 0 {
			buf.WriteString(" WHERE ")
		} else {
			buf.WriteString(" AND ")
		}
		c.writeSQL(buf, args)
	}
}

func writeSuffix(buf *strings.Builder, suffix string) {
	if suffix == "" {
		return
	}
	buf.WriteByte(' ')
	buf.WriteString(suffix)
}

