package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"datastory/ai"
	"datastory/app"
	"datastory/internal"
	apperrors "datastory/internal/errors"
	"datastory/internal/testkit"
	"datastory/internal/usage"
	"datastory/models"
	"datastory/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const insightsJSON = `{
	"keyFindings": ["Ali scored highest"],
	"trends": [],
	"anomalies": ["One score is missing"],
	"recommendations": ["Collect the missing score"],
	"narrative": "Scores are high overall."
}`

const draftJSON = `{
	"title": "Scores & <Stories>",
	"subtitle": "A short look",
	"excerpt": "Ali leads.",
	"content": "## Ali leads\n\nThe top score is **90**.",
	"outline": {"sections": [{"heading": "Ali leads", "chartIds": []}]}
}`

const scoresCSV = "id,name,score\n1,Ali,90\n2,Sara,\n3,Omar,70\n"

func newTestServer(t *testing.T, providers ...ports.LLMProvider) (*httptest.Server, *usage.Service) {
	t.Helper()
	store := testkit.NewMemoryStore()
	caller := ai.NewCaller(providers, 2)
	prompts := ai.NewPromptManager("")
	usageSvc := usage.NewService(store.Usage())

	var names []string
	for _, p := range providers {
		names = append(names, p.Name())
	}
	insightChain := names
	if len(insightChain) > 1 {
		insightChain = insightChain[:1]
	}

	svc := Services{
		Ingest:   app.NewIngestService(store.Sources(), store.Blobs(), app.IngestLimits{MaxFileSize: 1 << 10}),
		Analysis: app.NewAnalysisService(store.Sources(), store.Analyses(), store.Blobs(), app.NewInsightOrchestrator(caller, prompts, ai.Policy{Chain: insightChain}), usageSvc),
		Stories:  app.NewStoryService(store.Sources(), store.Analyses(), store.Drafts(), app.NewStoryOrchestrator(caller, prompts, ai.Policy{Chain: names}), usageSvc),
		Usage:    usageSvc,
	}
	srv := httptest.NewServer(NewServer(svc, internal.NewLogger(internal.LogLevelError), 1<<10).Handler())
	t.Cleanup(func() {
		srv.Close()
		usageSvc.Wait()
	})
	return srv, usageSvc
}

func do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func uploadRaw(t *testing.T, srv *httptest.Server, name, contentType, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/sources?name="+name, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	return do(t, req)
}

func post(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, nil)
	require.NoError(t, err)
	return do(t, req)
}

func get(t *testing.T, url string, headers ...string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return do(t, req)
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestUploadRawBody(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := uploadRaw(t, srv, "scores.csv", "text/csv", scoresCSV)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	src := decode[models.Source](t, body)
	assert.Equal(t, "scores.csv", src.Name)
	assert.Equal(t, models.StatusCompleted, src.Status)
	require.NotNil(t, src.Dataset)
	assert.Equal(t, 3, src.Dataset.RowCount)

	resp, body = get(t, srv.URL+"/api/sources/"+src.ID.String())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, src.ID, decode[models.Source](t, body).ID)

	resp, body = get(t, srv.URL+"/api/sources")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Source](t, body), 1)
}

func TestUploadMultipart(t *testing.T) {
	srv, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "people.json")
	require.NoError(t, err)
	_, err = part.Write([]byte(`[{"name":"Ali","age":30},{"name":"Sara"}]`))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/sources", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, body := do(t, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	src := decode[models.Source](t, body)
	assert.Equal(t, "people.json", src.Name)
	assert.Equal(t, "records", src.Format)
	assert.Equal(t, 2, src.Dataset.RowCount)
}

func TestUploadParseFailureIsLocalized(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/sources?name=broken.json", bytes.NewBufferString(`{"a": `))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Language", "ar-SA,ar;q=0.9")
	resp, body := do(t, req)

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	errBody := decode[ErrorResponse](t, body)
	assert.Equal(t, apperrors.CodeInvalidSyntax, errBody.Code)
	assert.Equal(t, "الملف ليس بصيغة JSON صالحة.", errBody.Message)
	require.NotEmpty(t, errBody.RecordID)

	resp, body = get(t, srv.URL+"/api/sources/"+errBody.RecordID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	src := decode[models.Source](t, body)
	assert.Equal(t, models.StatusFailed, src.Status)
	assert.Equal(t, "The file is not valid JSON.", src.ErrorMessage)
}

func TestUploadRejectsUnsupportedAndOversized(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := uploadRaw(t, srv, "photo.png", "image/png", "\x89PNG\r\n\x1a\n")
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	assert.Equal(t, apperrors.CodeUnsupportedFormat, decode[ErrorResponse](t, body).Code)

	resp, body = uploadRaw(t, srv, "big.csv", "text/csv", "a\n"+string(bytes.Repeat([]byte("1\n"), 1<<10)))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, apperrors.CodeInvalidInput, decode[ErrorResponse](t, body).Code)
}

func TestNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{"/api/sources/nope", "/api/analyses/nope", "/api/drafts/nope", "/api/analyses/nope/drafts"} {
		resp, body := get(t, srv.URL+path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		errBody := decode[ErrorResponse](t, body)
		assert.Equal(t, apperrors.CodeNotFound, errBody.Code)
		assert.Equal(t, "The requested record was not found.", errBody.Message)
	}
}

func TestPipelineOverHTTP(t *testing.T) {
	primary := testkit.NewScriptedProvider("primary", "gemini-pro",
		testkit.Reply{Content: insightsJSON, Tokens: 120},
		testkit.Reply{Err: errors.New("model overloaded")},
	)
	secondary := testkit.JSONProvider("secondary", draftJSON, 480)
	srv, _ := newTestServer(t, primary, secondary)

	resp, body := uploadRaw(t, srv, "scores.csv", "text/csv", scoresCSV)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	src := decode[models.Source](t, body)

	resp, body = post(t, srv.URL+"/api/sources/"+src.ID.String()+"/analyses")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	a := decode[models.Analysis](t, body)
	assert.Equal(t, models.StatusCompleted, a.Status)
	require.NotNil(t, a.Result)
	assert.Equal(t, []string{"Ali scored highest"}, a.Result.Insights.KeyFindings)

	resp, body = get(t, srv.URL+"/api/sources/"+src.ID.String()+"/analyses")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Analysis](t, body), 1)

	resp, body = post(t, srv.URL+"/api/analyses/"+a.ID.String()+"/drafts")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	d := decode[models.Draft](t, body)
	assert.Equal(t, "secondary", d.Provenance.Provider)
	assert.Equal(t, 2, d.Provenance.Attempts)

	resp, body = get(t, srv.URL+"/api/drafts/"+d.ID.String()+"/html")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	page := string(body)
	assert.Contains(t, page, "<title>Scores &amp; &lt;Stories&gt;</title>")
	assert.Contains(t, page, "<strong>90</strong>")

	resp, body = get(t, srv.URL+"/api/analyses/"+a.ID.String()+"/drafts")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Draft](t, body), 1)
}

func TestAnalysisFailureReturnsRecord(t *testing.T) {
	primary := testkit.FailingProvider("primary", errors.New("You exceeded your current quota"))
	srv, _ := newTestServer(t, primary)

	_, body := uploadRaw(t, srv, "scores.csv", "text/csv", scoresCSV)
	src := decode[models.Source](t, body)

	resp, body := post(t, srv.URL+"/api/sources/"+src.ID.String()+"/analyses")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	errBody := decode[ErrorResponse](t, body)
	assert.Equal(t, apperrors.CodeInsightGeneration, errBody.Code)
	require.NotEmpty(t, errBody.RecordID)

	resp, body = get(t, srv.URL+"/api/analyses/"+errBody.RecordID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	a := decode[models.Analysis](t, body)
	assert.Equal(t, models.StatusFailed, a.Status)
	assert.Equal(t, "You exceeded your current quota", a.ErrorMessage)

	resp, body = post(t, srv.URL+"/api/analyses/"+a.ID.String()+"/drafts")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, apperrors.CodeValidationError, decode[ErrorResponse](t, body).Code)
}

func TestUsageEndpoints(t *testing.T) {
	primary := testkit.JSONProvider("primary", insightsJSON, 120)
	srv, usageSvc := newTestServer(t, primary)

	_, body := uploadRaw(t, srv, "scores.csv", "text/csv", scoresCSV)
	src := decode[models.Source](t, body)
	_, body = post(t, srv.URL+"/api/sources/"+src.ID.String()+"/analyses")
	a := decode[models.Analysis](t, body)
	usageSvc.Wait()

	resp, body := get(t, srv.URL+"/api/usage/"+a.ID.String())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rows := decode[[]models.LLMUsage](t, body)
	require.Len(t, rows, 1)
	assert.Equal(t, models.OpInsightGeneration, rows[0].OperationType)

	resp, body = get(t, srv.URL+"/api/usage")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decode[models.UsageSummary](t, body)
	assert.Equal(t, 120, summary.TotalTokens)

	resp, _ = get(t, srv.URL+"/api/usage?from=yesterday")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(apperrors.NotFound("source")))
	assert.Equal(t, http.StatusNotFound, statusFor(apperrors.Wrap(apperrors.NotFound("source"), "load")))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(apperrors.EmptySheet("Data")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, statusFor(&http.MaxBytesError{Limit: 1}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
