package search

import (
	"fmt"
	"strings"
)

// Strategy names the shape of a search, chosen from which categories are
// populated. Precedence, highest first:
//
//  1. tags AND names present → StrategyTagName
//  2. descriptions present   → StrategyDescription
//  3. tags present           → StrategyTag
//  4. names present          → StrategyName
//  5. nothing                → StrategyNone (empty result, never an error)
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyTagName
	StrategyDescription
	StrategyTag
	StrategyName
)

func (s Strategy) String() string {
	switch s {
	case StrategyTagName:
		return "tag_name"
	case StrategyDescription:
		return "description"
	case StrategyTag:
		return "tag"
	case StrategyName:
		return "name"
	default:
		return "none"
	}
}

// Strategy selects exactly one strategy for c.
func (c Criteria) Strategy() Strategy {
	switch {
	case len(c.Tags) > 0 && len(c.Names) > 0:
		return StrategyTagName
	case len(c.Descriptions) > 0:
		return StrategyDescription
	case len(c.Tags) > 0:
		return StrategyTag
	case len(c.Names) > 0:
		return StrategyName
	default:
		return StrategyNone
	}
}

// Narrow drops the categories the selected strategy does not read. A tag+name
// search ignores descriptions; a description search ignores tags and names.
func (c Criteria) Narrow() Criteria {
	switch c.Strategy() {
	case StrategyTagName:
		return Criteria{Tags: c.Tags, Names: c.Names}
	case StrategyDescription:
		return Criteria{Descriptions: c.Descriptions}
	case StrategyTag:
		return Criteria{Tags: c.Tags}
	case StrategyName:
		return Criteria{Names: c.Names}
	default:
		return Criteria{}
	}
}

// Mode controls how the categories of a query combine.
type Mode int

const (
	// ModeConjunctive ANDs every populated category together (OR within a
	// category). This is the default.
	ModeConjunctive Mode = iota
	// ModePrecedence narrows the criteria to the single selected Strategy
	// first, so e.g. description terms are ignored when tags and names are
	// both present.
	ModePrecedence
)

func (m Mode) String() string {
	if m == ModePrecedence {
		return "precedence"
	}
	return "conjunctive"
}

// ParseMode maps a config value to a Mode. The empty string is conjunctive.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "conjunctive":
		return ModeConjunctive, nil
	case "precedence":
		return ModePrecedence, nil
	default:
		return ModeConjunctive, fmt.Errorf("search: unknown mode %q (want conjunctive or precedence)", s)
	}
}

// Apply returns the criteria a search in mode m actually evaluates.
func (m Mode) Apply(c Criteria) Criteria {
	if m == ModePrecedence {
		return c.Narrow()
	}
	return c
}
