package models

import (
	"time"

	"datastory/domain/core"
	"datastory/domain/dataset"
	"datastory/domain/story"
)

// Status tracks a generation record through its lifecycle.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether no further transition is expected.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Source is one uploaded file and the dataset parsed from it. Sources are
// written once and never updated.
type Source struct {
	ID           core.SourceID    `json:"id" db:"id"`
	Name         string           `json:"name" db:"name"`
	MimeType     string           `json:"mime_type" db:"mime_type"`
	Format       string           `json:"format" db:"format"`
	BlobKey      string           `json:"blob_key" db:"blob_key"`
	SizeBytes    int64            `json:"size_bytes" db:"size_bytes"`
	Status       Status           `json:"status" db:"status"`
	ErrorMessage string           `json:"error_message,omitempty" db:"error_message"`
	Dataset      *dataset.Dataset `json:"dataset,omitempty" db:"-"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
}

// Analysis is one statistics and insight run over a source.
type Analysis struct {
	ID           core.AnalysisID       `json:"id" db:"id"`
	SourceID     core.SourceID         `json:"source_id" db:"source_id"`
	Status       Status                `json:"status" db:"status"`
	Result       *story.AnalysisResult `json:"result,omitempty" db:"-"`
	ErrorMessage string                `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time             `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at" db:"updated_at"`
}

// NewAnalysis starts a processing record for sourceID.
func NewAnalysis(sourceID core.SourceID, now time.Time) *Analysis {
	return &Analysis{
		ID:        core.NewAnalysisID(),
		SourceID:  sourceID,
		Status:    StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Complete stores the result and marks the analysis completed.
func (a *Analysis) Complete(result *story.AnalysisResult, now time.Time) {
	a.Result = result
	a.Status = StatusCompleted
	a.ErrorMessage = ""
	a.UpdatedAt = now
}

// Fail marks the analysis failed with message.
func (a *Analysis) Fail(message string, now time.Time) {
	a.Status = StatusFailed
	a.ErrorMessage = message
	a.UpdatedAt = now
}

// Draft is one story run over a completed analysis.
type Draft struct {
	ID           core.DraftID      `json:"id" db:"id"`
	AnalysisID   core.AnalysisID   `json:"analysis_id" db:"analysis_id"`
	Status       Status            `json:"status" db:"status"`
	Story        *story.Draft      `json:"story,omitempty" db:"-"`
	ContentHTML  string            `json:"content_html,omitempty" db:"content_html"`
	Provenance   *story.Provenance `json:"provenance,omitempty" db:"-"`
	ErrorMessage string            `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" db:"updated_at"`
}

// NewDraft starts a processing draft for analysisID.
func NewDraft(analysisID core.AnalysisID, now time.Time) *Draft {
	return &Draft{
		ID:         core.NewDraftID(),
		AnalysisID: analysisID,
		Status:     StatusProcessing,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Complete stores the generated story and marks the draft completed.
func (d *Draft) Complete(s *story.Draft, html string, prov *story.Provenance, now time.Time) {
	d.Story = s
	d.ContentHTML = html
	d.Provenance = prov
	d.Status = StatusCompleted
	d.ErrorMessage = ""
	d.UpdatedAt = now
}

// Fail marks the draft failed with message.
func (d *Draft) Fail(message string, now time.Time) {
	d.Status = StatusFailed
	d.ErrorMessage = message
	d.UpdatedAt = now
}
