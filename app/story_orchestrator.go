package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"datastory/ai"
	"datastory/domain/dataset"
	"datastory/domain/story"
	apperrors "datastory/internal/errors"
	"datastory/models"
	"datastory/ports"
)

const storySystemPrompt = "You are a data journalist who turns analysis into clear, accurate stories. Respond with valid JSON."

// StoryOutcome is the story stage's output plus where it came from.
type StoryOutcome struct {
	Draft      story.Draft
	Provenance story.Provenance
	Usage      *models.UsageData
}

// StoryOrchestrator turns an analysis result into a narrative draft. Its
// policy is normally [primary, secondary]: the secondary gets exactly one try
// with the same prompt when the primary fails.
type StoryOrchestrator struct {
	caller  *ai.Caller
	prompts *ai.PromptManager
	policy  ai.Policy
}

func NewStoryOrchestrator(caller *ai.Caller, prompts *ai.PromptManager, policy ai.Policy) *StoryOrchestrator {
	if policy.Stage == "" {
		policy.Stage = "story"
	}
	return &StoryOrchestrator{caller: caller, prompts: prompts, policy: policy}
}

// GenerateStory writes a draft from result. When every provider fails the
// error is a STORY_GENERATION error whose message carries the primary
// provider's failure.
func (o *StoryOrchestrator) GenerateStory(ctx context.Context, ds *dataset.Dataset, result *story.AnalysisResult, sourceName string) (*StoryOutcome, error) {
	if result == nil {
		return nil, apperrors.ValidationError("analysis result is required")
	}
	prompt, err := o.buildPrompt(ds, result, sourceName)
	if err != nil {
		return nil, apperrors.Wrap(err, "build story prompt")
	}

	log.Printf("[StoryOrchestrator] Requesting story for %q via %v", sourceName, o.policy.Chain)
	out, res, err := ai.GenerateJSON[story.Draft](ctx, o.caller, o.policy, ports.GenerateRequest{
		System: storySystemPrompt,
		Prompt: prompt,
	})
	if err != nil {
		var ce *ai.CallError
		if errors.As(err, &ce) {
			return nil, apperrors.StoryGeneration(ce.Primary(), err)
		}
		return nil, apperrors.StoryGeneration(err, err)
	}

	return &StoryOutcome{
		Draft: *out,
		Provenance: story.Provenance{
			Provider:         res.Provider,
			Model:            res.Model,
			TokensUsed:       res.TokensUsed,
			ProcessingTimeMs: res.ProcessingTimeMs,
			Attempts:         res.Attempts,
		},
		Usage: res.Usage,
	}, nil
}

func (o *StoryOrchestrator) buildPrompt(ds *dataset.Dataset, result *story.AnalysisResult, sourceName string) (string, error) {
	var charts strings.Builder
	for _, c := range result.Charts {
		fmt.Fprintf(&charts, "- %s (%s): %s\n", c.ID, c.Type, c.Title)
	}
	rowCount := 0
	if ds != nil {
		rowCount = ds.RowCount
	}

	narrative := strings.TrimSpace(result.Insights.Narrative)
	if narrative == "" {
		narrative = "(none)"
	}
	chartList := strings.TrimRight(charts.String(), "\n")
	if chartList == "" {
		chartList = "(none)"
	}

	return o.prompts.RenderPrompt(ai.PromptStory, map[string]string{
		"SOURCE_NAME":     sourceName,
		"ROW_COUNT":       strconv.Itoa(rowCount),
		"KEY_FINDINGS":    bulletList(result.Insights.KeyFindings),
		"TRENDS":          bulletList(result.Insights.Trends),
		"RECOMMENDATIONS": bulletList(result.Insights.Recommendations),
		"NARRATIVE":       narrative,
		"CHARTS":          chartList,
	})
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}
