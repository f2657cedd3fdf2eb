package search

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyCriteria is returned by Compile when there is nothing to filter on.
// Callers are expected to short-circuit empty criteria to an empty result.
var ErrEmptyCriteria = errors.New("search: empty criteria")

// Dialect holds the SQL fragments that differ between backends.
//
// Matching uses a substring-position function rather than LIKE so that it is
// case-sensitive on every backend and the user's text is never interpreted
// as a wildcard.
type Dialect struct {
	Name string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// Position renders an expression returning the 1-based position of needle
	// in haystack, or 0 when absent.
	Position func(haystack, needle string) string
}

// SQLite uses "?" placeholders and instr().
var SQLite = Dialect{
	Name:        "sqlite",
	Placeholder: func(int) string { return "?" },
	Position: func(haystack, needle string) string {
		return fmt.Sprintf("instr(%s, %s)", haystack, needle)
	},
}

// Postgres uses "$n" placeholders and strpos().
var Postgres = Dialect{
	Name:        "postgres",
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	Position: func(haystack, needle string) string {
		return fmt.Sprintf("strpos(%s, %s)", haystack, needle)
	},
}

// Compile builds one SELECT over snippets (aliased s) and snippet_tags
// (aliased t) returning (id, name) rows for every snippet matching c:
//
//	(name prefix OR ...) AND has a tag IN (...) AND (description contains OR ...)
//
// Categories without terms are left out. The tag condition is an EXISTS
// subquery, so a snippet with several matching tags is returned once.
func Compile(c Criteria, d Dialect) (string, []any, error) {
	if c.IsEmpty() {
		return "", nil, ErrEmptyCriteria
	}

	var b strings.Builder
	b.WriteString("SELECT s.id, s.name FROM snippets AS s WHERE 1=1")

	args := make([]any, 0, len(c.Names)+len(c.Tags)+len(c.Descriptions))
	next := func(v string) string {
		args = append(args, v)
		return d.Placeholder(len(args))
	}

	if len(c.Names) > 0 {
		clauses := make([]string, len(c.Names))
		for i, name := range c.Names {
			clauses[i] = d.Position("s.name", next(name)) + " = 1"
		}
		fmt.Fprintf(&b, " AND (%s)", strings.Join(clauses, " OR "))
	}

	if len(c.Tags) > 0 {
		placeholders := make([]string, len(c.Tags))
		for i, tag := range c.Tags {
			placeholders[i] = next(tag)
		}
		fmt.Fprintf(&b,
			" AND EXISTS (SELECT 1 FROM snippet_tags AS t WHERE t.snippet_id = s.id AND t.tag IN (%s))",
			strings.Join(placeholders, ", "))
	}

	if len(c.Descriptions) > 0 {
		clauses := make([]string, len(c.Descriptions))
		for i, desc := range c.Descriptions {
			clauses[i] = d.Position("s.description", next(desc)) + " > 0"
		}
		fmt.Fprintf(&b, " AND (%s)", strings.Join(clauses, " OR "))
	}

	b.WriteString(" ORDER BY s.id")
	return b.String(), args, nil
}
