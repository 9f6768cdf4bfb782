package modver

import "strings"

// Op is a comparison operator parsed from a constraint string.
type Op int

const (
	OpGreaterEq Op = iota // default when no prefix is given
	OpLessEq
	OpGreater
	OpLess
	OpEq
)

// Constraint is one parsed comparator, e.g. ">=1.10" or "=1.14-rc1".
type Constraint struct {
	Op      Op
	Version Version
	// Raw keeps the constraint as written, for diagnostics.
	Raw string
}

// ParseConstraint parses a comparator string. A bare version means ">=".
func ParseConstraint(s string) Constraint {
	c := Constraint{Op: OpGreaterEq, Raw: s}
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, ">="):
		c.Op, s = OpGreaterEq, s[2:]
	case strings.HasPrefix(s, "<="):
		c.Op, s = OpLessEq, s[2:]
	case strings.HasPrefix(s, ">"):
		c.Op, s = OpGreater, s[1:]
	case strings.HasPrefix(s, "<"):
		c.Op, s = OpLess, s[1:]
	case strings.HasPrefix(s, "="):
		c.Op, s = OpEq, s[1:]
	}
	c.Version = Parse(s)
	return c
}

// ParseConstraints parses a list of comparator strings.
func ParseConstraints(ss []string) []Constraint {
	out := make([]Constraint, 0, len(ss))
	for _, s := range ss {
		out = append(out, ParseConstraint(s))
	}
	return out
}

// Match evaluates the constraint against v. withIdent selects whether an
// equality comparison considers the identifier: prerequisite checks do,
// mod-manager gating does not.
func (c Constraint) Match(v Version, withIdent bool) bool {
	switch c.Op {
	case OpGreaterEq:
		return Compare(v, c.Version) >= 0
	case OpLessEq:
		return Compare(v, c.Version) <= 0
	case OpGreater:
		return Compare(v, c.Version) > 0
	case OpLess:
		return Compare(v, c.Version) < 0
	case OpEq:
		if withIdent && c.Version.Identifier != "" {
			return EqualExact(v, c.Version)
		}
		return Equal(v, c.Version)
	}
	return false
}

// Style classifies a comparator list for diagnostic formatting.
type Style int

const (
	StyleMixed Style = iota
	StyleStrict      // every comparator is "="
	StyleRange       // exactly one lower bound and one upper bound
)

// ClassifyStyle reports how a comparator list should be rendered: strict
// (all equalities), range (one lower and one upper bound), or mixed.
func ClassifyStyle(cs []Constraint) Style {
	if len(cs) == 0 {
		return StyleMixed
	}
	eq, lo, hi := 0, 0, 0
	for _, c := range cs {
		switch c.Op {
		case OpEq:
			eq++
		case OpGreater, OpGreaterEq:
			lo++
		case OpLess, OpLessEq:
			hi++
		}
	}
	switch {
	case eq == len(cs):
		return StyleStrict
	case eq == 0 && lo == 1 && hi == 1:
		return StyleRange
	}
	return StyleMixed
}

func (o Op) String() string {
	switch o {
	case OpGreaterEq:
		return ">="
	case OpLessEq:
		return "<="
	case OpGreater:
		return ">"
	case OpLess:
		return "<"
	case OpEq:
		return "="
	}
	return "?"
}
