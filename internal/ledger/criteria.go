package ledger

import (
	"fmt"
	"strings"
	"time"
)

// Criteria is a pure predicate over a ledger row. A row matches a set of
// criteria iff it matches every member.
type Criteria interface {
	Matches(row Row) (bool, error)
}

// MatchesAll evaluates the logical AND of all criteria against a row.
func MatchesAll(criteria []Criteria, row Row) (bool, error) {
	for _, criterion := range criteria {
		ok, err := criterion.Matches(row)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// IdentifierIs matches the identifier field exactly. When the needle
// carries no scheme separator, only the segment after the last ":" of the
// ledger identifier is compared, so short local identifiers still match
// full URNs. Any ":" in the needle makes the comparison run against the
// full ledger identifier; partial needles with a colon never match.
type IdentifierIs struct {
	Identifier string
}

func (c IdentifierIs) Matches(row Row) (bool, error) {
	recordID := row.Identifier()
	if !strings.Contains(c.Identifier, ":") {
		if idx := strings.LastIndex(recordID, ":"); idx >= 0 {
			recordID = recordID[idx+1:]
		}
	}
	return c.Identifier == recordID, nil
}

// StateIs matches the state field exactly.
type StateIs struct {
	State string
}

func (c StateIs) Matches(row Row) (bool, error) {
	return c.State == row.State(), nil
}

// TimeRange matches a datetime field against an inclusive lower bound
// and/or an exclusive upper bound. A row whose field holds the unset
// sentinel never matches, and neither does any row when both bounds are
// empty; callers wanting "no time filter" omit the criterion instead.
type TimeRange struct {
	// Field names the column to inspect; empty means the schema's
	// state-time field.
	Field string
	// Layout is the Go time layout of the field; empty means
	// StateTimeLayout.
	Layout string
	// From and To are rendered in Layout.
	From string
	To   string
}

func (c TimeRange) Matches(row Row) (bool, error) {
	layout := c.Layout
	if layout == "" {
		layout = StateTimeLayout
	}
	field := c.Field
	if field == "" {
		field = row.Schema().StateTime()
	}
	value, ok := row.Field(field)
	if !ok {
		return false, fmt.Errorf("%w: no field %s in row %q", ErrDataShape, field, row.Line())
	}
	if value == UnsetLabel {
		return false, nil
	}
	ts, err := time.Parse(layout, value)
	if err != nil {
		return false, fmt.Errorf("parse %s value %q: %w", field, value, err)
	}
	var from, to time.Time
	if c.From != "" {
		if from, err = time.Parse(layout, c.From); err != nil {
			return false, fmt.Errorf("parse lower bound %q: %w", c.From, err)
		}
	}
	if c.To != "" {
		if to, err = time.Parse(layout, c.To); err != nil {
			return false, fmt.Errorf("parse upper bound %q: %w", c.To, err)
		}
	}
	switch {
	case c.From != "" && c.To == "":
		return !ts.Before(from), nil
	case c.From != "" && c.To != "":
		return !ts.Before(from) && ts.Before(to), nil
	case c.From == "" && c.To != "":
		return ts.Before(to), nil
	default:
		return false, nil
	}
}

// TextContains matches rows whose named field contains a substring.
// The default field is INFO.
type TextContains struct {
	Text  string
	Field string
}

func (c TextContains) Matches(row Row) (bool, error) {
	field := c.Field
	if field == "" {
		field = FieldInfo
	}
	value, ok := row.Field(field)
	if !ok {
		return false, fmt.Errorf("%w: no field %s in row %q", ErrDataShape, field, row.Line())
	}
	return strings.Contains(value, c.Text), nil
}
