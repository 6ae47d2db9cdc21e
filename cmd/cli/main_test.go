package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"datastory/domain/chart"
	"datastory/domain/stats"
	"datastory/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scoresCSV = "name,score,passed\nAli,90,true\nSara,75,true\nOmar,40,false\n"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInspectPrintsColumns(t *testing.T) {
	out, err := execute(t, "inspect", writeFile(t, "scores.csv", scoresCSV))
	require.NoError(t, err)

	assert.Contains(t, out, "scores.csv: 3 rows x 3 columns")
	assert.Contains(t, out, "score")
	assert.Contains(t, out, "number")
	assert.Contains(t, out, "boolean")
	assert.Contains(t, out, "Ali, Sara, Omar")
}

func TestStatsJSON(t *testing.T) {
	out, err := execute(t, "stats", "--json", writeFile(t, "scores.csv", scoresCSV))
	require.NoError(t, err)

	var st stats.Statistics
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	require.NotNil(t, st["score"].Numeric)
	assert.Equal(t, 3, st["score"].Numeric.Count)
	assert.Equal(t, 90.0, st["score"].Numeric.Max)
	assert.NotEmpty(t, st["passed"].TopValues)
}

func TestStatsTables(t *testing.T) {
	out, err := execute(t, "stats", writeFile(t, "scores.csv", scoresCSV))
	require.NoError(t, err)
	assert.Contains(t, out, "Numeric columns")
	assert.Contains(t, out, "Top values")
}

func TestChartsRendersPage(t *testing.T) {
	input := writeFile(t, "scores.csv", scoresCSV)
	htmlPath := filepath.Join(t.TempDir(), "charts.html")

	out, err := execute(t, "charts", input, "--out", htmlPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")

	page, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<title>scores.csv</title>")
}

func TestChartsJSON(t *testing.T) {
	out, err := execute(t, "charts", "--json", writeFile(t, "scores.csv", scoresCSV))
	require.NoError(t, err)

	var configs []chart.Config
	require.NoError(t, json.Unmarshal([]byte(out), &configs))
	assert.NotEmpty(t, configs)
}

func TestInspectRejectsUnsupportedFile(t *testing.T) {
	_, err := execute(t, "inspect", writeFile(t, "image.png", "\x89PNG\r\n\x1a\n\x00\x00"))
	require.Error(t, err)

	_, err = execute(t, "inspect", filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}

// fakeChatServer answers the insight prompt and the story prompt the way an
// OpenAI-compatible endpoint would.
func fakeChatServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		content := `{"keyFindings":["Ali scored highest"],"trends":[],"anomalies":[],"recommendations":["Support Omar"],"narrative":"Scores vary."}`
		if strings.Contains(string(body), "publishable data story") {
			content = "```json\n" + `{"title":"Score Story","subtitle":"Three students","excerpt":"A short look.","content":"## Results\n\nAli leads.","outline":{"sections":[]}}` + "\n```"
		}
		resp := map[string]interface{}{
			"model": "test-model",
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func pipelineEnv(t *testing.T, baseURL string) {
	t.Helper()
	dir := t.TempDir()
	for key, value := range map[string]string{
		"DATABASE_URL":    filepath.Join(dir, "cli.db"),
		"DATABASE_DRIVER": "",
		"UPLOAD_DIR":      filepath.Join(dir, "uploads"),
		"PROVIDERS_FILE":  "",
		"INSIGHT_CHAIN":   "",
		"STORY_CHAIN":     "",
		"PROMPTS_DIR":     "",
		"GEMINI_API_KEY":  "",
		"OPENAI_API_KEY":  "test-key",
		"OPENAI_MODEL":    "test-model",
		"OPENAI_BASE_URL": baseURL,
	} {
		t.Setenv(key, value)
	}
}

func TestAnalyzeAndStoryPipeline(t *testing.T) {
	pipelineEnv(t, fakeChatServer(t).URL)
	input := writeFile(t, "scores.csv", scoresCSV)

	out, err := execute(t, "analyze", input)
	require.NoError(t, err)
	var analysis models.Analysis
	require.NoError(t, json.Unmarshal([]byte(out[strings.Index(out, "{"):]), &analysis))
	assert.Equal(t, models.StatusCompleted, analysis.Status)
	assert.Equal(t, []string{"Ali scored highest"}, analysis.Result.Insights.KeyFindings)

	htmlPath := filepath.Join(t.TempDir(), "story.html")
	out, err = execute(t, "story", input, "--html", htmlPath)
	require.NoError(t, err)
	var draft models.Draft
	require.NoError(t, json.Unmarshal([]byte(out[strings.Index(out, "{"):]), &draft))
	assert.Equal(t, models.StatusCompleted, draft.Status)
	assert.Equal(t, "Score Story", draft.Story.Title)
	assert.Equal(t, 1, draft.Provenance.Attempts)

	page, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<h2")
}
