package pipeline

import (
	"fmt"

	"github.com/google/uuid"

	"spccvault/internal"
	"spccvault/internal/util"
)

// Session holds the mutable row set for one in-progress batch. Rows are
// keyed by a stable per-row ID, never by position, so removing a row cannot
// silently renumber in-flight references to its siblings.
type Session struct {
	rows []internal.MatchRow
}

func NewSession(rows []internal.MatchRow) *Session {
	owned := make([]internal.MatchRow, len(rows))
	copy(owned, rows)
	for i := range owned {
		owned[i].RowID = uuid.NewString()
	}
	return &Session{rows: owned}
}

// RowEdit is a partial change merged into one row. Nil fields are left
// untouched.
type RowEdit struct {
	FacilityID    *int
	ClearFacility bool
	PlanDateRaw   *string
}

// Update merges an edit into one row and no other. Rows that failed
// extraction are permanently excluded from apply for this session; no edit
// may resurrect them.
func (s *Session) Update(rowID string, edit RowEdit) error {
	idx := s.find(rowID)
	if idx < 0 {
		return fmt.Errorf("no such row: %s", rowID)
	}

	row := &s.rows[idx]
	if row.Status == internal.MatchError {
		return fmt.Errorf("row %s failed extraction and cannot be edited", rowID)
	}

	if edit.ClearFacility {
		row.FacilityID = nil
		row.Status = internal.MatchUnmatched
		row.Confidence = internal.ConfidenceNone
		row.Fragment = ""
	} else if edit.FacilityID != nil {
		row.FacilityID = util.IntPtr(*edit.FacilityID)
		row.Status = internal.MatchMatched
	}

	if edit.PlanDateRaw != nil {
		row.PlanDateRaw = *edit.PlanDateRaw
	}

	return nil
}

// Remove drops a row from the batch entirely, e.g. a false positive that
// should not be imported. All other rows keep their identity and state.
func (s *Session) Remove(rowID string) error {
	idx := s.find(rowID)
	if idx < 0 {
		return fmt.Errorf("no such row: %s", rowID)
	}
	s.rows = append(s.rows[:idx], s.rows[idx+1:]...)
	return nil
}

func (s *Session) Get(rowID string) (internal.MatchRow, bool) {
	idx := s.find(rowID)
	if idx < 0 {
		return internal.MatchRow{}, false
	}
	return s.rows[idx], true
}

// Rows returns a copy; session state only changes through Update and Remove.
func (s *Session) Rows() []internal.MatchRow {
	out := make([]internal.MatchRow, len(s.rows))
	copy(out, s.rows)
	return out
}

// RowReady reports whether a row is eligible for apply: a selected facility
// and a plan date that normalizes.
func RowReady(row internal.MatchRow) bool {
	return row.Status != internal.MatchError &&
		row.FacilityID != nil &&
		ParseDate(row.PlanDateRaw) != nil
}

func (s *Session) ReadyRows() []internal.MatchRow {
	out := make([]internal.MatchRow, 0, len(s.rows))
	for _, row := range s.rows {
		if RowReady(row) {
			out = append(out, row)
		}
	}
	return out
}

// Summary counts are derived from the current row set on every call, never
// cached.
type Summary struct {
	Total     int
	Matched   int
	Unmatched int
	Errors    int
	Ready     int
}

func (s *Session) Summary() Summary {
	sum := Summary{Total: len(s.rows)}
	for _, row := range s.rows {
		switch row.Status {
		case internal.MatchMatched:
			sum.Matched++
		case internal.MatchUnmatched:
			sum.Unmatched++
		case internal.MatchError:
			sum.Errors++
		}
		if RowReady(row) {
			sum.Ready++
		}
	}
	return sum
}

func (s *Session) find(rowID string) int {
	for i := range s.rows {
		if s.rows[i].RowID == rowID {
			return i
		}
	}
	return -1
}
