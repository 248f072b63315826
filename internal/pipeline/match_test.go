package pipeline

import (
	"testing"

	"spccvault/internal"
)

func testFacilities() []internal.Facility {
	return []internal.Facility{
		{ID: 1, Name: "Riverside Station", Status: internal.FacilityActive},
		{ID: 2, Name: "Harborview Depot", Status: internal.FacilityActive},
		{ID: 3, Name: "Riverside Station North Yard", Status: internal.FacilityActive},
		{ID: 4, Name: "Lakeside Terminal", Status: internal.FacilityRetired},
	}
}

func okResult(name, text string) internal.ExtractionResult {
	return internal.ExtractionResult{
		Doc:    internal.RawDocument{Name: name},
		Text:   text,
		Status: internal.ExtractionOK,
	}
}

func TestMatchAllScenario(t *testing.T) {
	m := NewMatcher(testFacilities(), 0.60)

	results := []internal.ExtractionResult{
		okResult("a.pdf", "SPCC Plan prepared for Riverside Station on behalf of the owner"),
		okResult("b.pdf", "Quarterly inspection covering Riverside Stn and adjacent tankage"),
		{Doc: internal.RawDocument{Name: "c.pdf"}, Status: internal.ExtractionError, ErrDetail: "parse pdf: malformed document"},
	}

	rows := m.MatchAll(results)
	if len(rows) != 3 {
		t.Fatalf("rows=%d", len(rows))
	}

	a, b, c := rows[0], rows[1], rows[2]

	if a.Status != internal.MatchMatched || a.Confidence != internal.ConfidenceExact || a.FacilityID == nil || *a.FacilityID != 1 {
		t.Fatalf("a=%+v", a)
	}
	if b.Status != internal.MatchMatched || b.Confidence != internal.ConfidencePartial || b.FacilityID == nil || *b.FacilityID != 1 {
		t.Fatalf("b=%+v", b)
	}
	if b.Fragment != "Riverside Stn" {
		t.Fatalf("fragment=%q", b.Fragment)
	}
	if c.Status != internal.MatchError || c.FacilityID != nil {
		t.Fatalf("c=%+v", c)
	}

	// Every document lands in exactly one bucket.
	matched, unmatched, errored := 0, 0, 0
	for _, row := range rows {
		switch row.Status {
		case internal.MatchMatched:
			matched++
		case internal.MatchUnmatched:
			unmatched++
		case internal.MatchError:
			errored++
		}
	}
	if matched+unmatched+errored != len(results) {
		t.Fatalf("matched=%d unmatched=%d errored=%d", matched, unmatched, errored)
	}
}

func TestExactTakesPrecedenceOverPartial(t *testing.T) {
	m := NewMatcher(testFacilities(), 0.60)

	rows := m.MatchAll([]internal.ExtractionResult{
		okResult("a.pdf", "Inspection of Riverside Station, also known as Riverside Stn"),
	})
	if rows[0].Confidence != internal.ConfidenceExact {
		t.Fatalf("confidence=%s", rows[0].Confidence)
	}
}

func TestExactPrefersMostSpecificName(t *testing.T) {
	m := NewMatcher(testFacilities(), 0.60)

	rows := m.MatchAll([]internal.ExtractionResult{
		okResult("a.pdf", "Plan covering Riverside Station North Yard and its loading rack"),
	})
	row := rows[0]
	if row.Confidence != internal.ConfidenceExact || row.FacilityID == nil || *row.FacilityID != 3 {
		t.Fatalf("row=%+v", row)
	}
}

func TestExactTieReportsUnmatched(t *testing.T) {
	facilities := []internal.Facility{
		{ID: 1, Name: "Alpha Depot", Status: internal.FacilityActive},
		{ID: 2, Name: "Delta Depot", Status: internal.FacilityActive},
	}
	m := NewMatcher(facilities, 0.60)

	rows := m.MatchAll([]internal.ExtractionResult{
		okResult("a.pdf", "Shared agreement between Alpha Depot and Delta Depot operators"),
	})
	if rows[0].Status != internal.MatchUnmatched || rows[0].FacilityID != nil {
		t.Fatalf("row=%+v", rows[0])
	}
}

func TestRetiredFacilityNeverSelected(t *testing.T) {
	m := NewMatcher(testFacilities(), 0.60)

	rows := m.MatchAll([]internal.ExtractionResult{
		okResult("a.pdf", "SPCC Plan for Lakeside Terminal"),
	})
	if rows[0].Status != internal.MatchUnmatched || rows[0].FacilityID != nil {
		t.Fatalf("row=%+v", rows[0])
	}
}

func TestEmptyTextIsUnmatchedNotError(t *testing.T) {
	m := NewMatcher(testFacilities(), 0.60)

	rows := m.MatchAll([]internal.ExtractionResult{okResult("a.pdf", "")})
	if rows[0].Status != internal.MatchUnmatched {
		t.Fatalf("row=%+v", rows[0])
	}
}

func TestNoCandidateClearsThreshold(t *testing.T) {
	m := NewMatcher(testFacilities(), 0.60)

	rows := m.MatchAll([]internal.ExtractionResult{
		okResult("a.pdf", "Unrelated maintenance memo about pump seal replacement"),
	})
	if rows[0].Status != internal.MatchUnmatched || rows[0].Fragment != "" {
		t.Fatalf("row=%+v", rows[0])
	}
}

func TestExtractedDateFlowsIntoRow(t *testing.T) {
	m := NewMatcher(testFacilities(), 0.60)

	date := "11/02/2023"
	rows := m.MatchAll([]internal.ExtractionResult{{
		Doc:           internal.RawDocument{Name: "a.pdf"},
		Text:          "SPCC Plan for Riverside Station",
		ExtractedDate: &date,
		Status:        internal.ExtractionOK,
	}})
	if rows[0].PlanDateRaw != date {
		t.Fatalf("planDate=%q", rows[0].PlanDateRaw)
	}
}
