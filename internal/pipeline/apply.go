package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spccvault/internal"
)

// PlanStore writes one document to durable object storage and returns the
// durable reference stored back on the facility.
type PlanStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// FacilityUpdater writes the plan reference and plan date onto one facility.
type FacilityUpdater interface {
	UpdatePlan(ctx context.Context, facilityID int, planRef, planDate string) error
}

// ApplyEngine performs the two dependent writes per ready row: storage first,
// then the facility update. Rows run strictly sequentially; both writes go to
// the same shared backend and sequential execution keeps progress reporting
// deterministic without bursty write load.
type ApplyEngine struct {
	store   PlanStore
	updater FacilityUpdater
	now     func() time.Time
}

func NewApplyEngine(store PlanStore, updater FacilityUpdater) *ApplyEngine {
	return &ApplyEngine{store: store, updater: updater, now: time.Now}
}

// Apply processes every ready row and always returns one outcome per row;
// a failing row never aborts the batch. A failed storage write skips that
// row's facility update. A facility update failing after a successful write
// is reported as UPDATE_FAILED so operators can reconcile the orphaned
// object; the write is deliberately not rolled back.
func (e *ApplyEngine) Apply(ctx context.Context, rows []internal.MatchRow, onProgress ProgressFunc) []internal.ApplyOutcome {
	outcomes := make([]internal.ApplyOutcome, 0, len(rows))

	for i, row := range rows {
		outcomes = append(outcomes, e.applyRow(ctx, row))
		if onProgress != nil {
			onProgress(i+1, len(rows))
		}
	}

	return outcomes
}

func (e *ApplyEngine) applyRow(ctx context.Context, row internal.MatchRow) internal.ApplyOutcome {
	outcome := internal.ApplyOutcome{
		RowID:   row.RowID,
		DocName: row.Doc.Name,
	}

	date := ParseDate(row.PlanDateRaw)
	if row.FacilityID == nil || date == nil {
		outcome.Status = internal.ApplyStorageFailed
		outcome.ErrDetail = "row is not ready to apply"
		return outcome
	}
	outcome.FacilityID = *row.FacilityID

	content, err := os.ReadFile(row.Doc.Path)
	if err != nil {
		outcome.Status = internal.ApplyStorageFailed
		outcome.ErrDetail = fmt.Sprintf("read document: %v", err)
		return outcome
	}

	key := planKey(*row.FacilityID, row.Doc.Name, e.now())
	planRef, err := e.store.Put(ctx, key, bytes.NewReader(content), "application/pdf")
	if err != nil {
		outcome.Status = internal.ApplyStorageFailed
		outcome.ErrDetail = fmt.Sprintf("storage write: %v", err)
		return outcome
	}
	outcome.PlanRef = planRef

	if err := e.updater.UpdatePlan(ctx, *row.FacilityID, planRef, date.ISO()); err != nil {
		outcome.Status = internal.ApplyUpdateFailed
		outcome.ErrDetail = fmt.Sprintf("facility update after stored object %s: %v", key, err)
		return outcome
	}

	outcome.Status = internal.ApplyOK
	return outcome
}

// planKey namespaces stored objects by facility:
// <facility-id>/spcc-plan-<timestamp>.<ext>
func planKey(facilityID int, docName string, at time.Time) string {
	ext := strings.ToLower(filepath.Ext(docName))
	if ext == "" {
		ext = ".pdf"
	}
	return fmt.Sprintf("%d/spcc-plan-%s%s", facilityID, at.UTC().Format("20060102T150405"), ext)
}
