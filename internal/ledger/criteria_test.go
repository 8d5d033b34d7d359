package ledger

import (
	"strings"
	"testing"
)

func matchCount(t *testing.T, h *Handler, criteria ...Criteria) []Row {
	t.Helper()

	matches, err := h.States(criteria, "", true)
	if err != nil {
		t.Fatalf("States: %v", err)
	}
	return matches
}

func TestIdentifierIsMatchesLocalSegment(t *testing.T) {
	h := mustOpen(t, writeTestLedger(t, testHeader, testRows))

	matches := matchCount(t, h, IdentifierIs{Identifier: "1981185920/8853011"})
	if len(matches) != 1 || !strings.HasSuffix(matches[0].Identifier(), "8853011") {
		t.Fatalf("local segment match = %v", matches)
	}
}

func TestIdentifierIsFullURN(t *testing.T) {
	h := mustOpen(t, writeTestLedger(t, testHeader, testRows))

	matches := matchCount(t, h, IdentifierIs{Identifier: "oai:opendata.uni-halle.de:1981185920/9510507"})
	if len(matches) != 1 {
		t.Fatalf("full URN match = %v", matches)
	}
	if len(matchCount(t, h, IdentifierIs{Identifier: "oai:elsewhere:1"})) != 0 {
		t.Fatal("foreign URN matched")
	}
}

func TestIdentifierIsWithColonComparesFullIdentifier(t *testing.T) {
	h := mustOpen(t, writeTestLedger(t, testHeader, testRows))

	// a needle carrying ":" is never reduced to the local segment
	if got := len(matchCount(t, h, IdentifierIs{Identifier: "de:1981185920/8853011"})); got != 0 {
		t.Fatalf("partial needle with colon matched %d records", got)
	}
}

func TestStateIs(t *testing.T) {
	h := mustOpen(t, writeTestLedger(t, testHeader, testRows))

	if got := len(matchCount(t, h, StateIs{State: "ocr_skip"})); got != 3 {
		t.Fatalf("ocr_skip matches = %d, want 3", got)
	}
	if got := len(matchCount(t, h, StateIs{State: "upload_done"})); got != 1 {
		t.Fatalf("upload_done matches = %d, want 1", got)
	}
}

func TestTimeRangeHalfOpenInterval(t *testing.T) {
	h := mustOpen(t, writeTestLedger(t, testHeader, testRows))

	matches := matchCount(t, h, TimeRange{
		From: "2021-08-03_15:14:45",
		To:   "2021-08-03_15:28:14",
	})
	// From is inclusive, To exclusive: 15:14:45 and 15:20:45 qualify,
	// 15:28:14 does not.
	if len(matches) != 2 {
		t.Fatalf("range matches = %d, want 2", len(matches))
	}
}

func TestTimeRangeLowerBoundOnly(t *testing.T) {
	h := mustOpen(t, writeTestLedger(t, testHeader, testRows))

	matches := matchCount(t, h, TimeRange{From: "2021-08-03_15:20:45"})
	if len(matches) != 2 {
		t.Fatalf("lower bound matches = %d, want 2", len(matches))
	}
}

func TestTimeRangeSkipsUnsetValues(t *testing.T) {
	h := mustOpen(t, writeTestLedger(t, testHeader, testRows))

	matches := matchCount(t, h, TimeRange{From: "2000-01-01_00:00:00"})
	for _, row := range matches {
		if row.StateTime() == UnsetLabel {
			t.Fatalf("unset state time matched: %v", row.Line())
		}
	}
	if len(matches) != 5 {
		t.Fatalf("matches = %d, want all 5 stamped records", len(matches))
	}
}

func TestTimeRangeWithoutBoundsMatchesNothing(t *testing.T) {
	h := mustOpen(t, writeTestLedger(t, testHeader, testRows))

	if got := len(matchCount(t, h, TimeRange{})); got != 0 {
		t.Fatalf("bound-less range matched %d records", got)
	}
}

func TestTimeRangeOnNamedField(t *testing.T) {
	h := mustOpen(t, writeTestLedger(t, testHeader, testRows))

	matches := matchCount(t, h, TimeRange{
		Field:  "CREATED",
		Layout: "2006-01-02T15:04:05Z",
		From:   "2021-08-03T08:01:01Z",
	})
	if len(matches) != 2 {
		t.Fatalf("CREATED range matches = %d, want 2", len(matches))
	}
}

func TestTextContainsDefaultsToInfo(t *testing.T) {
	rows := append([][]string{}, testRows...)
	rows[0] = append([]string{}, rows[0]...)
	rows[0][3] = `{"languages":["ger"]}`
	h := mustOpen(t, writeTestLedger(t, testHeader, rows))

	matches := matchCount(t, h, TextContains{Text: "ger"})
	if len(matches) != 1 || !strings.HasSuffix(matches[0].Identifier(), "8853011") {
		t.Fatalf("info contains matches = %v", matches)
	}
}

func TestTextContainsOnNamedField(t *testing.T) {
	h := mustOpen(t, writeTestLedger(t, testHeader, testRows))

	if got := len(matchCount(t, h, TextContains{Text: "ulbhaldod", Field: "SETSPEC"})); got != 6 {
		t.Fatalf("setspec matches = %d, want 6", got)
	}
}

func TestCriteriaAreANDed(t *testing.T) {
	h := mustOpen(t, writeTestLedger(t, testHeader, testRows))

	matches := matchCount(t, h,
		StateIs{State: "ocr_skip"},
		TimeRange{From: "2021-08-03_15:10:00"},
	)
	if len(matches) != 2 {
		t.Fatalf("combined matches = %d, want 2", len(matches))
	}
}
