// Package search turns a free-text search box query into structured filter
// criteria and compiles those criteria into a single parameterized SQL query.
//
// QUERY SYNTAX:
// The query is split on whitespace. Each token is classified by its first
// character:
//
//	:algo    → tag filter      (snippet has the tag "algo")
//	-quick   → description     (description contains "quick")
//	sort     → name prefix     (name starts with "sort")
//
// So "sort :algo -quick" finds snippets whose name starts with "sort", that are
// tagged "algo" and whose description mentions "quick".
//
// Nothing in this package touches the database or HTTP. The service layer
// parses, then hands the Criteria to a repository.
package search

import (
	"slices"
	"strings"
)

// Prefixes that select a term's category.
const (
	TagPrefix         = ':'
	DescriptionPrefix = '-'
)

// TermKind is the category a query token was classified into.
type TermKind int

const (
	TermName TermKind = iota
	TermTag
	TermDescription
)

func (k TermKind) String() string {
	switch k {
	case TermTag:
		return "tag"
	case TermDescription:
		return "description"
	default:
		return "name"
	}
}

// Term is one classified token of a query. Value has the category prefix
// already stripped.
type Term struct {
	Kind  TermKind
	Value string
}

// likeEscaper escapes LIKE metacharacters; the escape character is '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Pattern renders the term as a LIKE pattern with ESCAPE '\': "sort%" for a
// name prefix, "%quick%" for a description substring and the bare value for a
// tag. Compile does not use LIKE; this is for stores that only speak it.
func (t Term) Pattern() string {
	v := likeEscaper.Replace(t.Value)
	switch t.Kind {
	case TermName:
		return v + "%"
	case TermDescription:
		return "%" + v + "%"
	default:
		return v
	}
}

// ParseTerm classifies a single token. It returns false for tokens that carry
// no filter: the empty string, or a lone ":" / "-" with nothing after it.
// Case is preserved.
func ParseTerm(token string) (Term, bool) {
	if token == "" {
		return Term{}, false
	}

	var term Term
	switch token[0] {
	case TagPrefix:
		term = Term{Kind: TermTag, Value: token[1:]}
	case DescriptionPrefix:
		term = Term{Kind: TermDescription, Value: token[1:]}
	default:
		term = Term{Kind: TermName, Value: token}
	}

	if term.Value == "" {
		return Term{}, false
	}
	return term, true
}

// Tokenize splits a raw query into classified terms, in query order.
// Runs of whitespace never produce empty tokens.
func Tokenize(raw string) []Term {
	fields := strings.Fields(raw)
	terms := make([]Term, 0, len(fields))
	for _, f := range fields {
		if t, ok := ParseTerm(f); ok {
			terms = append(terms, t)
		}
	}
	return terms
}

// Criteria is a parsed query partitioned by category.
//
// Tags and Names behave as sets: a repeated token is kept once, in order of
// first appearance so compiled SQL is deterministic. Descriptions keeps every
// occurrence in query order.
type Criteria struct {
	Tags         []string
	Names        []string
	Descriptions []string
}

// Parse tokenizes raw and partitions the terms into Criteria. It never fails:
// an empty or whitespace-only query yields empty Criteria.
func Parse(raw string) Criteria {
	var c Criteria
	seenTags := make(map[string]struct{})
	seenNames := make(map[string]struct{})

	for _, t := range Tokenize(raw) {
		switch t.Kind {
		case TermTag:
			if _, dup := seenTags[t.Value]; !dup {
				seenTags[t.Value] = struct{}{}
				c.Tags = append(c.Tags, t.Value)
			}
		case TermName:
			if _, dup := seenNames[t.Value]; !dup {
				seenNames[t.Value] = struct{}{}
				c.Names = append(c.Names, t.Value)
			}
		case TermDescription:
			c.Descriptions = append(c.Descriptions, t.Value)
		}
	}
	return c
}

// IsEmpty reports whether no category has any terms.
func (c Criteria) IsEmpty() bool {
	return len(c.Tags) == 0 && len(c.Names) == 0 && len(c.Descriptions) == 0
}

// Terms returns the criteria back as terms: names, then tags, then descriptions.
func (c Criteria) Terms() []Term {
	terms := make([]Term, 0, len(c.Names)+len(c.Tags)+len(c.Descriptions))
	for _, n := range c.Names {
		terms = append(terms, Term{Kind: TermName, Value: n})
	}
	for _, tag := range c.Tags {
		terms = append(terms, Term{Kind: TermTag, Value: tag})
	}
	for _, d := range c.Descriptions {
		terms = append(terms, Term{Kind: TermDescription, Value: d})
	}
	return terms
}

// Key is a canonical string for the criteria, used as a cache key. Two queries
// that parse to the same criteria ("foo  foo" and "foo") share a key.
func (c Criteria) Key() string {
	var b strings.Builder
	for i, t := range c.Terms() {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch t.Kind {
		case TermTag:
			b.WriteByte(TagPrefix)
		case TermDescription:
			b.WriteByte(DescriptionPrefix)
		}
		b.WriteString(t.Value)
	}
	return b.String()
}

// Matches evaluates c against a single snippet in memory, with the same
// semantics as the compiled SQL: case-sensitive, AND across categories, OR
// within one. Empty criteria match nothing.
func (c Criteria) Matches(name, description string, tags []string) bool {
	if c.IsEmpty() {
		return false
	}
	if len(c.Names) > 0 && !slices.ContainsFunc(c.Names, func(p string) bool { return strings.HasPrefix(name, p) }) {
		return false
	}
	if len(c.Tags) > 0 && !slices.ContainsFunc(c.Tags, func(want string) bool { return slices.Contains(tags, want) }) {
		return false
	}
	if len(c.Descriptions) > 0 && !slices.ContainsFunc(c.Descriptions, func(sub string) bool { return strings.Contains(description, sub) }) {
		return false
	}
	return true
}
