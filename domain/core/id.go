package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Record identifiers. A source is one uploaded file, an analysis is one
// statistics + insight run over a source, a draft is one story run over an
// analysis.
type (
	SourceID   ID
	AnalysisID ID
	DraftID    ID
)

func NewSourceID() SourceID     { return SourceID(NewID()) }
func NewAnalysisID() AnalysisID { return AnalysisID(NewID()) }
func NewDraftID() DraftID       { return DraftID(NewID()) }

func (id SourceID) String() string   { return ID(id).String() }
func (id AnalysisID) String() string { return ID(id).String() }
func (id DraftID) String() string    { return ID(id).String() }

// ParseSourceID parses a string into SourceID
func ParseSourceID(s string) (SourceID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("source ID cannot be empty")
	}
	return SourceID(s), nil
}

// ParseAnalysisID parses a string into AnalysisID
func ParseAnalysisID(s string) (AnalysisID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("analysis ID cannot be empty")
	}
	return AnalysisID(s), nil
}

// ParseDraftID parses a string into DraftID
func ParseDraftID(s string) (DraftID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("draft ID cannot be empty")
	}
	return DraftID(s), nil
}
