package pipeline

import (
	"context"
	"testing"

	"spccvault/internal"
	"spccvault/internal/util"
)

// fakeExtract keys extraction output off the document name so workflow tests
// run without real PDF fixtures.
func fakeExtract(texts map[string]string) func(internal.RawDocument, *internal.ExtractionProfile) internal.ExtractionResult {
	return func(doc internal.RawDocument, _ *internal.ExtractionProfile) internal.ExtractionResult {
		text, ok := texts[doc.Name]
		if !ok {
			return internal.ExtractionResult{
				Doc:       doc,
				Status:    internal.ExtractionError,
				ErrDetail: "unreadable fixture",
			}
		}
		return internal.ExtractionResult{Doc: doc, Text: text, Status: internal.ExtractionOK}
	}
}

func TestWorkflowHappyPath(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writePDF(t, dir, "a.pdf", 20),
		writePDF(t, dir, "b.pdf", 20),
	}

	w := NewWorkflow()
	w.extract = fakeExtract(map[string]string{
		"a.pdf": "SPCC Plan for Riverside Station prepared 2024",
		"b.pdf": "no facility mentioned here",
	})

	if w.Stage() != StageSelect {
		t.Fatalf("initial stage = %s", w.Stage())
	}

	sel, err := w.AddFiles(paths, 50, 10)
	if err != nil {
		t.Fatalf("AddFiles: %v", err)
	}
	if len(sel.Accepted) != 2 || len(sel.Rejected) != 0 {
		t.Fatalf("selection = %+v", sel)
	}

	matcher := NewMatcher(testFacilities(), 0.60)
	var stages []Stage
	session, err := w.StartProcessing(matcher, nil, 3, func(stage Stage, completed, total int) {
		stages = append(stages, stage)
	})
	if err != nil {
		t.Fatalf("StartProcessing: %v", err)
	}
	if w.Stage() != StageReview {
		t.Fatalf("stage after processing = %s", w.Stage())
	}
	for _, s := range stages {
		if s != StageProcessing {
			t.Fatalf("progress tagged %s during extraction", s)
		}
	}
	if len(stages) != 2 {
		t.Fatalf("progress calls = %d, want 2", len(stages))
	}

	sum := session.Summary()
	if sum.Total != 2 || sum.Matched != 1 || sum.Unmatched != 1 {
		t.Fatalf("summary = %+v", sum)
	}

	// Resolve the unmatched row so the whole batch is ready.
	for _, row := range session.Rows() {
		edit := RowEdit{PlanDateRaw: util.StringPtr("3/4/25")}
		if row.FacilityID == nil {
			edit.FacilityID = util.IntPtr(2)
		}
		if err := session.Update(row.RowID, edit); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	engine := NewApplyEngine(&fakePlanStore{}, &fakeFacilityUpdater{})
	outcomes, err := w.StartApply(context.Background(), engine, nil)
	if err != nil {
		t.Fatalf("StartApply: %v", err)
	}
	if w.Stage() != StageDone {
		t.Fatalf("stage after apply = %s", w.Stage())
	}
	if len(outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2", len(outcomes))
	}
	for _, out := range outcomes {
		if out.Status != internal.ApplyOK {
			t.Fatalf("outcome = %+v", out)
		}
	}
	if w.Session() != nil {
		t.Fatal("session must be discarded at done")
	}
}

func TestWorkflowPartialFailureStillReachesDone(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writePDF(t, dir, "a.pdf", 20),
		writePDF(t, dir, "b.pdf", 20),
	}

	w := NewWorkflow()
	w.extract = fakeExtract(map[string]string{
		"a.pdf": "Riverside Station",
		"b.pdf": "Harborview Depot",
	})

	if _, err := w.AddFiles(paths, 50, 10); err != nil {
		t.Fatal(err)
	}
	session, err := w.StartProcessing(NewMatcher(testFacilities(), 0.60), nil, 3, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, row := range session.Rows() {
		if err := session.Update(row.RowID, RowEdit{PlanDateRaw: util.StringPtr("3/4/25")}); err != nil {
			t.Fatal(err)
		}
	}

	engine := NewApplyEngine(&fakePlanStore{}, &fakeFacilityUpdater{failID: 2})
	outcomes, err := w.StartApply(context.Background(), engine, nil)
	if err != nil {
		t.Fatalf("StartApply: %v", err)
	}
	if w.Stage() != StageDone {
		t.Fatalf("stage = %s, want done even with a failed row", w.Stage())
	}

	failed := 0
	for _, out := range outcomes {
		if out.Status == internal.ApplyUpdateFailed {
			failed++
		}
	}
	if failed != 1 {
		t.Fatalf("update failures = %d, want 1", failed)
	}
}

func TestWorkflowGuards(t *testing.T) {
	w := NewWorkflow()
	matcher := NewMatcher(testFacilities(), 0.60)

	if _, err := w.StartProcessing(matcher, nil, 3, nil); err == nil {
		t.Fatal("processing must require at least one accepted file")
	}
	if _, err := w.StartApply(context.Background(), nil, nil); err == nil {
		t.Fatal("apply is only legal from review")
	}
	if err := w.BackToSelect(); err == nil {
		t.Fatal("back edge is only legal from review")
	}

	dir := t.TempDir()
	if _, err := w.AddFiles([]string{writePDF(t, dir, "a.pdf", 20)}, 50, 10); err != nil {
		t.Fatal(err)
	}
	w.extract = fakeExtract(map[string]string{}) // every doc errors
	session, err := w.StartProcessing(matcher, nil, 3, nil)
	if err != nil {
		t.Fatal(err)
	}
	if sum := session.Summary(); sum.Errors != 1 || sum.Ready != 0 {
		t.Fatalf("summary = %+v", sum)
	}

	// No ready rows: apply must refuse and the workflow stays in review.
	engine := NewApplyEngine(&fakePlanStore{}, &fakeFacilityUpdater{})
	if _, err := w.StartApply(context.Background(), engine, nil); err == nil {
		t.Fatal("apply must require at least one ready row")
	}
	if w.Stage() != StageReview {
		t.Fatalf("stage = %s, want review", w.Stage())
	}

	if _, err := w.AddFiles(nil, 50, 10); err == nil {
		t.Fatal("adding files is only legal while selecting")
	}
}

func TestWorkflowBackToSelectDiscardsSession(t *testing.T) {
	dir := t.TempDir()
	w := NewWorkflow()
	w.extract = fakeExtract(map[string]string{"a.pdf": "Riverside Station"})

	if _, err := w.AddFiles([]string{writePDF(t, dir, "a.pdf", 20)}, 50, 10); err != nil {
		t.Fatal(err)
	}
	if _, err := w.StartProcessing(NewMatcher(testFacilities(), 0.60), nil, 3, nil); err != nil {
		t.Fatal(err)
	}

	if err := w.BackToSelect(); err != nil {
		t.Fatalf("BackToSelect: %v", err)
	}
	if w.Stage() != StageSelect {
		t.Fatalf("stage = %s", w.Stage())
	}
	if w.Session() != nil {
		t.Fatal("session must be discarded on the back edge")
	}
	if len(w.Selection().Accepted) != 0 {
		t.Fatal("selection must restart empty")
	}
}

func TestWorkflowCancel(t *testing.T) {
	dir := t.TempDir()
	w := NewWorkflow()
	w.extract = fakeExtract(map[string]string{"a.pdf": "Riverside Station"})

	if _, err := w.AddFiles([]string{writePDF(t, dir, "a.pdf", 20)}, 50, 10); err != nil {
		t.Fatal(err)
	}
	if _, err := w.StartProcessing(NewMatcher(testFacilities(), 0.60), nil, 3, nil); err != nil {
		t.Fatal(err)
	}

	if err := w.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if w.Stage() != StageSelect || w.Session() != nil {
		t.Fatalf("cancel left stage=%s session=%v", w.Stage(), w.Session())
	}

	// Drive a batch to done; a completed batch cannot be cancelled.
	w2 := NewWorkflow()
	w2.extract = fakeExtract(map[string]string{"b.pdf": "Riverside Station"})
	if _, err := w2.AddFiles([]string{writePDF(t, dir, "b.pdf", 20)}, 50, 10); err != nil {
		t.Fatal(err)
	}
	session, err := w2.StartProcessing(NewMatcher(testFacilities(), 0.60), nil, 3, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, row := range session.Rows() {
		if err := session.Update(row.RowID, RowEdit{FacilityID: util.IntPtr(1), PlanDateRaw: util.StringPtr("3/4/25")}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := w2.StartApply(context.Background(), NewApplyEngine(&fakePlanStore{}, &fakeFacilityUpdater{}), nil); err != nil {
		t.Fatal(err)
	}
	if err := w2.Cancel(); err == nil {
		t.Fatal("cancel must be rejected once the batch is done")
	}
}

func TestWorkflowAddFilesRespectsRemainingCapacity(t *testing.T) {
	dir := t.TempDir()
	w := NewWorkflow()

	first, err := w.AddFiles([]string{writePDF(t, dir, "a.pdf", 20)}, 2, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Accepted) != 1 {
		t.Fatalf("accepted = %d", len(first.Accepted))
	}

	second, err := w.AddFiles([]string{
		writePDF(t, dir, "b.pdf", 20),
		writePDF(t, dir, "c.pdf", 20),
	}, 2, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Accepted) != 2 {
		t.Fatalf("total accepted = %d, want 2", len(second.Accepted))
	}
	if len(second.Rejected) != 1 || second.Rejected[0].Name != "c.pdf" {
		t.Fatalf("rejected = %+v", second.Rejected)
	}
}
