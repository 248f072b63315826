package pipeline

import (
	"context"
	"errors"
	"fmt"

	"spccvault/internal"
)

type Stage string

const (
	StageSelect     Stage = "select"
	StageProcessing Stage = "processing"
	StageReview     Stage = "review"
	StageUploading  Stage = "uploading"
	StageDone       Stage = "done"
)

// StageProgress reports (completed, total) tuples tagged with the stage that
// produced them, for both the extraction and apply phases.
type StageProgress func(stage Stage, completed, total int)

// Workflow sequences one import batch through
// select → processing → review → uploading → done. Each field below is only
// meaningful in the stages that own it and is cleared on every transition
// out, so no stale state survives into a stage where it means nothing.
type Workflow struct {
	stage   Stage
	extract func(internal.RawDocument, *internal.ExtractionProfile) internal.ExtractionResult

	// select, processing
	selection Selection
	// review, uploading
	session *Session
	// done
	outcomes []internal.ApplyOutcome
}

func NewWorkflow() *Workflow {
	return &Workflow{stage: StageSelect, extract: ExtractText}
}

func (w *Workflow) Stage() Stage { return w.stage }

// AddFiles validates picked files against the ceilings and accumulates them
// into the current selection. Only legal while selecting.
func (w *Workflow) AddFiles(paths []string, maxFiles int, maxFileSizeMB int64) (Selection, error) {
	if w.stage != StageSelect {
		return Selection{}, w.transitionError("add files")
	}

	remaining := maxFiles - len(w.selection.Accepted)
	if remaining < 0 {
		remaining = 0
	}
	added := ValidateSelection(paths, remaining, maxFileSizeMB)

	w.selection.Accepted = append(w.selection.Accepted, added.Accepted...)
	w.selection.Rejected = append(w.selection.Rejected, added.Rejected...)
	return w.selection, nil
}

func (w *Workflow) Selection() Selection { return w.selection }

// StartProcessing runs extraction under the bounded scheduler, matches every
// result, and lands in review. Requires at least one accepted file.
func (w *Workflow) StartProcessing(matcher *Matcher, profile *internal.ExtractionProfile, concurrency int, onProgress StageProgress) (*Session, error) {
	if w.stage != StageSelect {
		return nil, w.transitionError("start processing")
	}
	if len(w.selection.Accepted) == 0 {
		return nil, errors.New("no accepted files in selection")
	}

	w.stage = StageProcessing
	results := RunBatch(w.selection.Accepted, concurrency, func(doc internal.RawDocument) internal.ExtractionResult {
		return w.extract(doc, profile)
	}, func(completed, total int) {
		if onProgress != nil {
			onProgress(StageProcessing, completed, total)
		}
	})

	w.session = NewSession(matcher.MatchAll(results))
	w.selection = Selection{}
	w.stage = StageReview
	return w.session, nil
}

func (w *Workflow) Session() *Session { return w.session }

// BackToSelect discards the reviewed batch and starts file selection over.
func (w *Workflow) BackToSelect() error {
	if w.stage != StageReview {
		return w.transitionError("return to select")
	}
	w.session = nil
	w.selection = Selection{}
	w.stage = StageSelect
	return nil
}

// StartApply runs the apply engine over the ready rows. Requires at least
// one ready row. Once this begins the batch runs to completion; partial
// success still lands in done.
func (w *Workflow) StartApply(ctx context.Context, engine *ApplyEngine, onProgress StageProgress) ([]internal.ApplyOutcome, error) {
	if w.stage != StageReview {
		return nil, w.transitionError("start apply")
	}

	ready := w.session.ReadyRows()
	if len(ready) == 0 {
		return nil, errors.New("no rows are ready to apply")
	}

	w.stage = StageUploading
	outcomes := engine.Apply(ctx, ready, func(completed, total int) {
		if onProgress != nil {
			onProgress(StageUploading, completed, total)
		}
	})

	w.outcomes = outcomes
	w.session = nil
	w.stage = StageDone
	return outcomes, nil
}

func (w *Workflow) Outcomes() []internal.ApplyOutcome { return w.outcomes }

// Cancel abandons the batch from any non-terminal state, discarding all
// in-memory state without side effects. A done batch cannot be cancelled;
// start a new workflow instead.
func (w *Workflow) Cancel() error {
	if w.stage == StageDone {
		return errors.New("batch already complete")
	}
	w.selection = Selection{}
	w.session = nil
	w.outcomes = nil
	w.stage = StageSelect
	return nil
}

func (w *Workflow) transitionError(action string) error {
	return fmt.Errorf("cannot %s in stage %s", action, w.stage)
}
