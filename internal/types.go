package internal

type DocumentSource string

const (
	SourceFilePicker DocumentSource = "file_picker"
	SourceDirectory  DocumentSource = "directory_scan"
)

// RawDocument is an opaque input blob selected for one import batch. The
// pipeline reads it but never mutates it.
type RawDocument struct {
	Name   string
	Path   string
	Size   int64
	Source DocumentSource
}

type ExtractionStatus string

const (
	ExtractionOK    ExtractionStatus = "OK"
	ExtractionError ExtractionStatus = "ERROR"
)

// ExtractionResult is produced once per RawDocument and immutable thereafter.
// Zero-length text with status OK is valid: the document read fine but had
// nothing usable in its text layer.
type ExtractionResult struct {
	Doc           RawDocument
	Text          string
	ExtractedDate *string
	Status        ExtractionStatus
	ErrDetail     string
}

type FacilityStatus string

const (
	FacilityActive  FacilityStatus = "active"
	FacilityRetired FacilityStatus = "retired"
)

// Facility is the minimal projection of a reference entity read from the
// external directory. Read-only to the pipeline.
type Facility struct {
	ID        int
	Name      string
	Status    FacilityStatus
	State     *string
	PlanRef   *string
	PlanDate  *string
	UpdatedAt *string
	RawJSON   string
}

func (f Facility) IsCandidate() bool {
	return f.Status == FacilityActive
}

type MatchStatus string

type MatchConfidence string

const (
	MatchMatched   MatchStatus = "MATCHED"
	MatchUnmatched MatchStatus = "UNMATCHED"
	MatchError     MatchStatus = "ERROR"

	ConfidenceExact   MatchConfidence = "EXACT"
	ConfidencePartial MatchConfidence = "PARTIAL"
	ConfidenceNone    MatchConfidence = "NONE"
)

// MatchRow is the central mutable record of a review session, one per input
// document. RowID is stable for the life of the batch; rows are never
// re-keyed by position.
type MatchRow struct {
	RowID       string
	Doc         RawDocument
	Status      MatchStatus
	FacilityID  *int
	Confidence  MatchConfidence
	Fragment    string
	ExtractErr  string
	PlanDateRaw string
}

type RejectedFile struct {
	Name   string
	Reason string
}

type ApplyStatus string

const (
	ApplyOK            ApplyStatus = "APPLIED"
	ApplyStorageFailed ApplyStatus = "STORAGE_FAILED"
	// ApplyUpdateFailed means the storage write succeeded but the facility
	// update did not, leaving an orphaned stored object to reconcile.
	ApplyUpdateFailed ApplyStatus = "UPDATE_FAILED"
)

type ApplyOutcome struct {
	RowID      string
	DocName    string
	FacilityID int
	Status     ApplyStatus
	PlanRef    string
	ErrDetail  string
}

// ExtractionProfile biases text extraction toward the identifying fields of
// a tenant's documents. Absence means extract all text.
type ExtractionProfile struct {
	Tenant      string   `json:"tenant"`
	PageStart   int      `json:"pageStart,omitempty"`
	PageEnd     int      `json:"pageEnd,omitempty"`
	Anchors     []string `json:"anchors,omitempty"`
	DateAnchors []string `json:"dateAnchors,omitempty"`
}

type ReviewExportRow struct {
	DocName      string
	MatchStatus  string
	Confidence   string
	FacilityID   *int
	FacilityName *string
	Fragment     string
	PlanDate     string
	Ready        bool
	ErrDetail    string
}
