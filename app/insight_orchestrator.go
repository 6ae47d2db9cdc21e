package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"datastory/ai"
	"datastory/domain/dataset"
	"datastory/domain/stats"
	"datastory/domain/story"
	apperrors "datastory/internal/errors"
	"datastory/models"
	"datastory/ports"
)

// insightPreviewRows is how many preview rows are shown to the provider.
const insightPreviewRows = 5

const insightSystemPrompt = "You are a senior data analyst. You only state what the supplied statistics support. Respond with valid JSON."

// InsightOutcome is the insight stage's output plus where it came from.
type InsightOutcome struct {
	Insights         story.Insights
	Provider         string
	Model            string
	TokensUsed       int
	ProcessingTimeMs int64
	Usage            *models.UsageData
}

// InsightOrchestrator asks a provider for structured insights about a
// dataset. Its policy is normally a single-provider chain: a failure is
// reported, not retried.
type InsightOrchestrator struct {
	caller  *ai.Caller
	prompts *ai.PromptManager
	policy  ai.Policy
}

func NewInsightOrchestrator(caller *ai.Caller, prompts *ai.PromptManager, policy ai.Policy) *InsightOrchestrator {
	if policy.Stage == "" {
		policy.Stage = "insights"
	}
	return &InsightOrchestrator{caller: caller, prompts: prompts, policy: policy}
}

// GenerateInsights builds the insight prompt for ds and returns the decoded
// answer. Any provider or decoding failure comes back as an
// INSIGHT_GENERATION error carrying the provider's message.
func (o *InsightOrchestrator) GenerateInsights(ctx context.Context, ds *dataset.Dataset, st stats.Statistics, sourceName string) (*InsightOutcome, error) {
	prompt, err := o.buildPrompt(ds, st, sourceName)
	if err != nil {
		return nil, apperrors.Wrap(err, "build insight prompt")
	}

	log.Printf("[InsightOrchestrator] Requesting insights for %q (%d rows, %d columns) via %v",
		sourceName, ds.RowCount, ds.ColumnCount, o.policy.Chain)
	out, res, err := ai.GenerateJSON[story.Insights](ctx, o.caller, o.policy, ports.GenerateRequest{
		System: insightSystemPrompt,
		Prompt: prompt,
	})
	if err != nil {
		return nil, apperrors.InsightGeneration(err)
	}

	return &InsightOutcome{
		Insights:         normalizeInsights(*out),
		Provider:         res.Provider,
		Model:            res.Model,
		TokensUsed:       res.TokensUsed,
		ProcessingTimeMs: res.ProcessingTimeMs,
		Usage:            res.Usage,
	}, nil
}

func (o *InsightOrchestrator) buildPrompt(ds *dataset.Dataset, st stats.Statistics, sourceName string) (string, error) {
	var columns strings.Builder
	for _, col := range ds.Columns {
		fmt.Fprintf(&columns, "- %s (%s)\n", col.Name, col.Type)
	}

	statsJSON, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal statistics: %w", err)
	}
	previewJSON, err := json.MarshalIndent(orderedPreview(ds, insightPreviewRows), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal preview: %w", err)
	}

	return o.prompts.RenderPrompt(ai.PromptInsights, map[string]string{
		"SOURCE_NAME":  sourceName,
		"ROW_COUNT":    strconv.Itoa(ds.RowCount),
		"COLUMN_COUNT": strconv.Itoa(ds.ColumnCount),
		"COLUMNS":      strings.TrimRight(columns.String(), "\n"),
		"STATISTICS":   string(statsJSON),
		"PREVIEW":      string(previewJSON),
	})
}

// orderedPreview renders preview rows as ordered key/value lists so the
// prompt shows columns in dataset order.
func orderedPreview(ds *dataset.Dataset, n int) []json.RawMessage {
	rows := ds.Preview(n)
	out := make([]json.RawMessage, 0, len(rows))
	for _, row := range rows {
		var b strings.Builder
		b.WriteByte('{')
		for i, name := range ds.ColumnNames() {
			if i > 0 {
				b.WriteByte(',')
			}
			key, _ := json.Marshal(name)
			val, err := json.Marshal(row[name])
			if err != nil {
				val = []byte("null")
			}
			b.Write(key)
			b.WriteByte(':')
			b.Write(val)
		}
		b.WriteByte('}')
		out = append(out, json.RawMessage(b.String()))
	}
	return out
}

func normalizeInsights(in story.Insights) story.Insights {
	nonNil := func(s []string) []string {
		if s == nil {
			return []string{}
		}
		return s
	}
	in.KeyFindings = nonNil(in.KeyFindings)
	in.Trends = nonNil(in.Trends)
	in.Anomalies = nonNil(in.Anomalies)
	in.Recommendations = nonNil(in.Recommendations)
	return in
}
