package repository

import (
	"fmt"
	"strings"
)

// queryFragment assembles dynamic WHERE clauses with named bind
// parameters. Column and table names are fixed literals owned by the
// callers; only values flow through the parameter map, so user input
// never reaches the SQL text.
type queryFragment struct {
	conditions []string
	params     map[string]interface{}
}

func newQueryFragment() *queryFragment {
	return &queryFragment{
		params: map[string]interface{}{},
	}
}

// Raw appends a condition that needs no bind parameter.
func (f *queryFragment) Raw(condition string) *queryFragment {
	f.conditions = append(f.conditions, condition)
	return f
}

// Equals appends "column = @name" binding the given value.
func (f *queryFragment) Equals(column, name string, value interface{}) *queryFragment {
	f.conditions = append(f.conditions, fmt.Sprintf("%s = @%s", column, name))
	f.params[name] = value
	return f
}

// In appends "column IN (@prefix_0, ..., @prefix_n)" with one uniquely
// named parameter per value. A nil or empty slice appends nothing, which
// keeps the "no filter means all" contract.
func (f *queryFragment) In(column, prefix string, values []string) *queryFragment {
	if len(values) == 0 {
		return f
	}
	placeholders := make([]string, len(values))
	for i, value := range values {
		name := fmt.Sprintf("%s_%d", prefix, i)
		placeholders[i] = "@" + name
		f.params[name] = value
	}
	f.conditions = append(f.conditions, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))
	return f
}

// Bind registers an extra named parameter without adding a condition.
func (f *queryFragment) Bind(name string, value interface{}) *queryFragment {
	f.params[name] = value
	return f
}

// Where renders the combined clause, or "1=1" when nothing was added.
func (f *queryFragment) Where() string {
	if len(f.conditions) == 0 {
		return "1=1"
	}
	return strings.Join(f.conditions, " AND ")
}

// Params returns the accumulated named parameters.
func (f *queryFragment) Params() map[string]interface{} {
	return f.params
}
