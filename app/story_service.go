package app

import (
	"context"
	"fmt"
	"log"

	"datastory/ai"
	"datastory/domain/core"
	apperrors "datastory/internal/errors"
	"datastory/internal/usage"
	"datastory/models"
	"datastory/ports"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// StoryService writes drafts from completed analyses.
type StoryService struct {
	sources  ports.SourceRepository
	analyses ports.AnalysisRepository
	drafts   ports.DraftRepository
	stories  *StoryOrchestrator
	usage    *usage.Service
	clock    core.Clock
}

func NewStoryService(sources ports.SourceRepository, analyses ports.AnalysisRepository, drafts ports.DraftRepository, stories *StoryOrchestrator, usageSvc *usage.Service) *StoryService {
	return &StoryService{
		sources:  sources,
		analyses: analyses,
		drafts:   drafts,
		stories:  stories,
		usage:    usageSvc,
		clock:    core.SystemClock,
	}
}

// Run creates a new draft for a completed analysis. Earlier drafts of the
// same analysis are kept.
func (s *StoryService) Run(ctx context.Context, analysisID core.AnalysisID) (*models.Draft, error) {
	a, err := s.analyses.GetByID(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	if a.Status != models.StatusCompleted || a.Result == nil {
		return nil, apperrors.ValidationError(fmt.Sprintf("analysis %s is %s, not completed", a.ID, a.Status))
	}
	src, err := s.sources.GetByID(ctx, a.SourceID)
	if err != nil {
		return nil, err
	}

	d := models.NewDraft(a.ID, s.clock())
	if err := s.drafts.Create(ctx, d); err != nil {
		return nil, apperrors.Wrap(err, "create draft")
	}

	out, genErr := s.stories.GenerateStory(ctx, src.Dataset, a.Result, src.Name)
	if genErr != nil {
		msg := ai.FailureMessage(genErr)
		if apperrors.HasCode(genErr, apperrors.CodeStoryGeneration) {
			msg = apperrors.GetMessage(genErr)
		}
		d.Fail(msg, s.clock())
		if err := s.drafts.Update(context.WithoutCancel(ctx), d); err != nil {
			log.Printf("[StoryService] ERROR: could not record failure of %s: %v", d.ID, err)
		}
		log.Printf("[StoryService] Draft %s failed: %s", d.ID, d.ErrorMessage)
		return d, genErr
	}

	prov := out.Provenance
	d.Complete(&out.Draft, RenderMarkdown(out.Draft.Content), &prov, s.clock())
	if err := s.drafts.Update(ctx, d); err != nil {
		return nil, apperrors.Wrap(err, "complete draft")
	}
	s.usage.RecordUsage(ctx, d.ID.String(), models.OpStoryGeneration, out.Usage)

	log.Printf("[StoryService] Draft %s completed by %s after %d attempt(s)", d.ID, prov.Provider, prov.Attempts)
	return d, nil
}

// Get returns one draft.
func (s *StoryService) Get(ctx context.Context, id core.DraftID) (*models.Draft, error) {
	return s.drafts.GetByID(ctx, id)
}

// ListByAnalysis returns every draft of an analysis, newest first.
func (s *StoryService) ListByAnalysis(ctx context.Context, analysisID core.AnalysisID) ([]*models.Draft, error) {
	return s.drafts.ListByAnalysis(ctx, analysisID)
}

// RenderMarkdown converts draft content to HTML.
func RenderMarkdown(content string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(content))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return string(markdown.Render(doc, renderer))
}
