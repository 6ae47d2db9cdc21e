// Package story holds the outputs of the two generation stages: structured
// insights for an analysis and the narrative draft written from them.
package story

import (
	"strings"

	"datastory/domain/chart"
	"datastory/domain/stats"
)

// Insights is the fixed JSON shape requested from the insight provider.
type Insights struct {
	KeyFindings     []string `json:"keyFindings"`
	Trends          []string `json:"trends"`
	Anomalies       []string `json:"anomalies"`
	Recommendations []string `json:"recommendations"`
	Narrative       string   `json:"narrative"`
}

// Validate rejects responses that decoded but carry nothing usable.
func (i *Insights) Validate() error {
	if len(i.KeyFindings) == 0 && strings.TrimSpace(i.Narrative) == "" {
		return errEmpty("insights contain neither key findings nor a narrative")
	}
	return nil
}

// AnalysisResult is the durable output of one analysis run.
type AnalysisResult struct {
	Statistics       stats.Statistics `json:"statistics"`
	Insights         Insights         `json:"insights"`
	Charts           []chart.Config   `json:"charts"`
	Provider         string           `json:"provider"`
	Model            string           `json:"model"`
	TokensUsed       int              `json:"tokensUsed"`
	ProcessingTimeMs int64            `json:"processingTimeMs"`
}

// Section is one outline entry. ChartIDs point at chart.Config IDs; the link
// is informational and not checked.
type Section struct {
	Heading  string   `json:"heading"`
	Summary  string   `json:"summary,omitempty"`
	ChartIDs []string `json:"chartIds"`
}

// Outline lists the draft's sections in reading order.
type Outline struct {
	Sections []Section `json:"sections"`
}

// Draft is the narrative document produced from one AnalysisResult. Content
// is Markdown.
type Draft struct {
	Title    string  `json:"title"`
	Subtitle string  `json:"subtitle"`
	Excerpt  string  `json:"excerpt"`
	Content  string  `json:"content"`
	Outline  Outline `json:"outline"`
}

// Validate rejects drafts missing a title or body.
func (d *Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return errEmpty("draft has no title")
	}
	if strings.TrimSpace(d.Content) == "" {
		return errEmpty("draft has no content")
	}
	return nil
}

// ReferencedCharts returns the chart IDs cited by the outline, in order and
// without duplicates.
func (d *Draft) ReferencedCharts() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, s := range d.Outline.Sections {
		for _, id := range s.ChartIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// Provenance records which provider produced an output and at what cost.
type Provenance struct {
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	TokensUsed       int    `json:"tokensUsed"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
	Attempts         int    `json:"attempts"`
}

type errEmpty string

func (e errEmpty) Error() string { return string(e) }
