package ledger

import (
	"fmt"
	"strings"
	"time"
)

// UnsetLabel is the sentinel stored for absent optional values and the
// default "open for processing" state label.
const UnsetLabel = "n.a."

// DefaultLockState is the default exclusive lease label.
const DefaultLockState = "busy"

// StateTimeLayout is the default state timestamp layout.
const StateTimeLayout = "2006-01-02_15:04:05"

// CreatedTimeLayout is the layout upstream systems commonly use for the
// CREATED field.
const CreatedTimeLayout = "2006-01-02T15:04:05Z"

// Marks captures one ledger's state conventions. They are configuration,
// not process-wide constants, so ledgers with different conventions can
// coexist in one process.
type Marks struct {
	Open       string
	Lock       string
	TimeLayout string
}

// DefaultMarks returns the conventional open/lock labels and timestamp layout.
func DefaultMarks() Marks {
	return Marks{Open: UnsetLabel, Lock: DefaultLockState, TimeLayout: StateTimeLayout}
}

func (m Marks) orDefaults() Marks {
	d := DefaultMarks()
	if m.Open == "" {
		m.Open = d.Open
	}
	if m.Lock == "" {
		m.Lock = d.Lock
	}
	if m.TimeLayout == "" {
		m.TimeLayout = d.TimeLayout
	}
	return m
}

// Now renders the current wall-clock time in the ledger's layout.
func (m Marks) Now() string {
	return time.Now().Format(m.TimeLayout)
}

// Record is one unit of work: a persistent URN-like identifier plus its
// lifecycle state. SetSpec and CreatedTime come from the upstream system
// and are never mutated here; Info is an opaque payload supplied by
// collaborators around the ledger.
type Record struct {
	Identifier  string
	SetSpec     string
	CreatedTime string
	Info        string
	State       string
	StateTime   string

	localIdent string
}

// NewRecord constructs a record with all optional fields unset.
func NewRecord(identifier string) *Record {
	return &Record{
		Identifier:  identifier,
		SetSpec:     UnsetLabel,
		CreatedTime: UnsetLabel,
		Info:        UnsetLabel,
		State:       UnsetLabel,
		StateTime:   UnsetLabel,
	}
}

// LocalIdentifier derives a filesystem-safe local name: the segment after
// the last ":" with any "/" replaced by "_". Computed once and cached.
func (r *Record) LocalIdentifier() string {
	if r.localIdent == "" {
		local := r.Identifier
		if idx := strings.LastIndex(local, ":"); idx >= 0 {
			local = local[idx+1:]
		}
		r.localIdent = strings.ReplaceAll(local, "/", "_")
	}
	return r.localIdent
}

// SetState sets a new state label and stamps the state time.
func (r *Record) SetState(state string, marks Marks) {
	r.State = state
	r.StateTime = marks.orDefaults().Now()
}

// AmendInfo merges extra keys into the record's info payload. When the
// current payload decodes as a mapping the keys are shallow-merged with
// extra winning on conflict; otherwise extra replaces the payload.
func (r *Record) AmendInfo(extra Info) {
	if len(extra) == 0 {
		return
	}
	current, err := DecodeInfo(r.Info)
	if err != nil {
		r.Info = extra.Encode()
		return
	}
	current.Merge(extra)
	r.Info = current.Encode()
}

// AsMap serializes the record into the flat field-name mapping used at
// the HTTP boundary.
func (r *Record) AsMap() map[string]string {
	return map[string]string{
		FieldIdentifier: r.Identifier,
		FieldSpec:       r.SetSpec,
		FieldCreated:    r.CreatedTime,
		FieldInfo:       r.Info,
		FieldState:      r.State,
		FieldStateTime:  r.StateTime,
	}
}

// RecordFromMap deserializes a record from a flat field mapping. The
// identifier, state and state-time fields are mandatory; the others
// default to the unset sentinel when absent or blank.
func RecordFromMap(source map[string]string) (*Record, error) {
	for _, required := range []string{FieldIdentifier, FieldState, FieldStateTime} {
		if strings.TrimSpace(source[required]) == "" {
			return nil, fmt.Errorf("%w: missing %s in %v", ErrDataShape, required, source)
		}
	}
	record := NewRecord(source[FieldIdentifier])
	record.State = source[FieldState]
	record.StateTime = source[FieldStateTime]
	if value := strings.TrimSpace(source[FieldSpec]); value != "" {
		record.SetSpec = value
	}
	if value := strings.TrimSpace(source[FieldCreated]); value != "" {
		record.CreatedTime = value
	}
	if value := strings.TrimSpace(source[FieldInfo]); value != "" {
		record.Info = value
	}
	return record, nil
}

// recordFromRow builds a record from a parsed ledger row. Identifier,
// state and state-time come from the schema's positional roles; the
// optional fields are picked up by name when the schema carries them.
func recordFromRow(row Row) *Record {
	record := NewRecord(row.Identifier())
	record.State = row.State()
	record.StateTime = row.StateTime()
	if value, ok := row.Field(FieldSpec); ok && strings.TrimSpace(value) != "" {
		record.SetSpec = strings.TrimSpace(value)
	}
	if value, ok := row.Field(FieldCreated); ok && strings.TrimSpace(value) != "" {
		record.CreatedTime = strings.TrimSpace(value)
	}
	if value, ok := row.Field(FieldInfo); ok && strings.TrimSpace(value) != "" {
		record.Info = strings.TrimSpace(value)
	}
	return record
}
