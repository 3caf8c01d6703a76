package query

import "fmt"

// Condition is one WHERE fragment. paramIndex is the first free positional
// parameter (@p0, @p1, ...); implementations return every parameter they use.
type Condition interface {
	SQL(paramIndex int) (string, map[string]interface{})
}

type compareCondition struct {
	field string
	op    string
	value interface{}
}

// Eq generates "field = @pN".
func Eq(field string, value interface{}) Condition {
	return &compareCondition{field: field, op: "=", value: value}
}

// Gt generates "field > @pN". Keyset pagination uses it to resume after the
// last key of the previous page.
func Gt(field string, value interface{}) Condition {
	return &compareCondition{field: field, op: ">", value: value}
}

func (c *compareCondition) SQL(paramIndex int) (string, map[string]interface{}) {
	paramName := fmt.Sprintf("p%d", paramIndex)
	return fmt.Sprintf("%s %s @%s", c.field, c.op, paramName), map[string]interface{}{
		paramName: c.value,
	}
}
