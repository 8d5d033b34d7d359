package ledger

import (
	"errors"
	"testing"
)

func TestNewSchemaPositionalRoles(t *testing.T) {
	s, err := NewSchema([]string{"ID", "URN", "DONE", "WHEN"})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	if s.Identifier() != "ID" || s.State() != "DONE" || s.StateTime() != "WHEN" {
		t.Fatalf("roles = %s/%s/%s", s.Identifier(), s.State(), s.StateTime())
	}
	if idx, ok := s.Index("URN"); !ok || idx != 1 {
		t.Fatalf("Index(URN) = %d, %v", idx, ok)
	}
}

func TestNewSchemaRejectsBadHeaders(t *testing.T) {
	cases := [][]string{
		{"ID", "STATE"},                        // too few columns
		{"ID", "", "STATE", "STATE_TIME"},      // blank field
		{"ID", "STATE", "STATE", "STATE_TIME"}, // duplicate field
	}
	for _, fields := range cases {
		if _, err := NewSchema(fields); !errors.Is(err, ErrDataShape) {
			t.Errorf("NewSchema(%v) = %v, want ErrDataShape", fields, err)
		}
	}
}

func TestSchemaEqual(t *testing.T) {
	a, _ := NewSchema(LegacyHeader())
	b, _ := NewSchema(LegacyHeader())
	c, _ := NewSchema(CompactHeader())
	if !a.Equal(b) {
		t.Fatal("identical schemas not equal")
	}
	if a.Equal(c) {
		t.Fatal("different schemas equal")
	}
}

func TestRowCloneIsIndependent(t *testing.T) {
	s, _ := NewSchema([]string{"ID", "STATE", "STATE_TIME"})
	row := newRow(s, []string{"x", "open", "n.a."})
	clone := row.Clone()
	clone.setState("done")
	if row.State() != "open" {
		t.Fatalf("clone mutation leaked: %q", row.State())
	}
}
