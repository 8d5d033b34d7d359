package ledger

import (
	"fmt"
)

// MergeOptions controls reconciliation of another ledger into this one.
type MergeOptions struct {
	// OtherRequireState, when non-empty, restricts merging to candidate
	// records carrying exactly this state; candidates with any other
	// state are skipped entirely (neither merged nor ignored).
	OtherRequireState string
	// OtherIgnoreState protects existing local state: a candidate whose
	// state equals it is recorded as ignored and leaves the local record
	// untouched. Empty disables the protection.
	OtherIgnoreState string
	// AppendUnknown appends records unknown to this ledger instead of
	// leaving them behind.
	AppendUnknown bool
	// DryRun analyzes without persisting.
	DryRun bool
}

// DefaultMergeOptions returns the conservative defaults: ignore
// candidates still in the open state, append unknown records, dry run.
func (h *Handler) DefaultMergeOptions() MergeOptions {
	return MergeOptions{
		OtherIgnoreState: h.marks.Open,
		AppendUnknown:    true,
		DryRun:           true,
	}
}

// MergeResult counts the outcome per candidate record. Merges counts only
// applied merges and stays zero in dry runs; the other counters also
// count during dry runs. Requireds is a diagnostic subset of candidates
// that passed the require-state filter.
type MergeResult struct {
	Matches   int
	Merges    int
	Misses    int
	Ignores   int
	Requireds int
	Appendeds int
}

// Merge reconciles the other ledger into this one with a newer-wins rule:
// a known candidate is merged only when the local record is still open or
// the candidate's state time is strictly newer (the unset sentinel counts
// as infinitely old). Unknown candidates are counted as misses and, with
// AppendUnknown, appended verbatim.
//
// Duplicate identifiers in the other ledger are not deduplicated: each
// duplicate re-runs the match logic against the possibly already-updated
// local record, so the first applicable candidate effectively wins. This
// mirrors the long-standing behavior batch tooling depends on.
//
// Both ledgers must share the same header.
func (h *Handler) Merge(other *Handler, opts MergeOptions) (MergeResult, error) {
	var result MergeResult
	if !h.schema.Equal(other.schema) {
		return result, fmt.Errorf("%w: mismatched headers %q != %q",
			ErrDataShape, h.schema.Fields(), other.schema.Fields())
	}
	for _, candidate := range other.rows {
		pos, known := h.index[candidate.Identifier()]
		if !known {
			result.Misses++
			if opts.AppendUnknown {
				result.Appendeds++
				if !opts.DryRun {
					appended := candidate.Clone()
					h.index[appended.Identifier()] = position{raw: len(h.rawLines), row: len(h.rows)}
					h.rawOf = append(h.rawOf, len(h.rawLines))
					h.rawLines = append(h.rawLines, appended.Line())
					h.rows = append(h.rows, appended)
				}
			}
			continue
		}
		local := h.rows[pos.row]
		result.Matches++
		if local.State() != h.marks.Open && !otherIsNewer(local, candidate) {
			continue
		}
		if opts.OtherIgnoreState != "" && candidate.State() == opts.OtherIgnoreState {
			result.Ignores++
			continue
		}
		if opts.OtherRequireState != "" {
			if candidate.State() != opts.OtherRequireState {
				continue
			}
			result.Requireds++
		}
		if !opts.DryRun {
			mergeRows(local, candidate)
			result.Merges++
			h.rawLines[pos.raw] = local.Line()
		}
	}
	if !opts.DryRun {
		if err := h.persist(); err != nil {
			return result, err
		}
	}
	return result, nil
}

// MergePath opens the other ledger with this ledger's field list and
// merges it.
func (h *Handler) MergePath(path string, opts MergeOptions) (MergeResult, error) {
	other, err := Open(path, Options{Fields: h.schema.Fields(), Marks: h.marks})
	if err != nil {
		return MergeResult{}, err
	}
	return h.Merge(other, opts)
}

// otherIsNewer compares state times as strings; the layout sorts
// lexicographically in chronological order. A local unset time always
// loses.
func otherIsNewer(local, candidate Row) bool {
	if local.StateTime() == UnsetLabel {
		return true
	}
	return candidate.StateTime() > local.StateTime()
}

// mergeRows overwrites the local state and state time from the candidate
// and combines the info payloads: when both sides decode as mappings they
// are shallow-merged with the candidate's keys winning, otherwise the
// candidate's payload replaces the local one.
func mergeRows(local, candidate Row) {
	local.setState(candidate.State())
	local.setStateTime(candidate.StateTime())
	localInfo, hasInfo := local.Field(FieldInfo)
	candidateInfo, candidateHas := candidate.Field(FieldInfo)
	if !hasInfo || !candidateHas {
		return
	}
	localMap, localErr := DecodeInfo(localInfo)
	candidateMap, candidateErr := DecodeInfo(candidateInfo)
	if localErr != nil || candidateErr != nil {
		local.set(FieldInfo, candidateInfo)
		return
	}
	localMap.Merge(candidateMap)
	local.set(FieldInfo, localMap.Encode())
}
