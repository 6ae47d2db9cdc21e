package api

import (
	"errors"
	"fmt"
	"html"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"datastory/app"
	"datastory/domain/core"
	apperrors "datastory/internal/errors"
	"datastory/models"

	"github.com/go-chi/chi/v5"
)

// multipartOverhead is allowed on top of the file size limit for form
// boundaries and part headers.
const multipartOverhead = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpload accepts either a multipart form with a "file" field or a raw
// body described by its Content-Type and a ?name= query parameter.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize+multipartOverhead)
	}
	up, err := readUpload(r)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}

	src, err := s.svc.Ingest.Ingest(r.Context(), up)
	if err != nil {
		recordID := ""
		if src != nil {
			recordID = src.ID.String()
		}
		s.writeError(w, r, err, recordID)
		return
	}
	writeJSON(w, http.StatusCreated, src)
}

func readUpload(r *http.Request) (app.Upload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return app.Upload{}, err
			}
			return app.Upload{}, apperrors.InvalidInput("invalid multipart form")
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return app.Upload{}, apperrors.InvalidInput("no file provided")
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return app.Upload{}, apperrors.Wrap(err, "failed to read upload")
		}
		return app.Upload{
			Name:     header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Data:     data,
		}, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return app.Upload{}, err
	}
	return app.Upload{
		Name:     r.URL.Query().Get("name"),
		MimeType: r.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	sources, err := s.svc.Ingest.List(r.Context(), limit, offset)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	if sources == nil {
		sources = []*models.Source{}
	}
	writeJSON(w, http.StatusOK, sources)
}

func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseSourceID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, apperrors.InvalidInput(err.Error()), "")
		return
	}
	src, err := s.svc.Ingest.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, src)
}

func (s *Server) handleRunAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseSourceID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, apperrors.InvalidInput(err.Error()), "")
		return
	}
	a, err := s.svc.Analysis.Run(r.Context(), id)
	if err != nil {
		recordID := ""
		if a != nil {
			recordID = a.ID.String()
		}
		s.writeError(w, r, err, recordID)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseSourceID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, apperrors.InvalidInput(err.Error()), "")
		return
	}
	list, err := s.svc.Analysis.ListBySource(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	if list == nil {
		list = []*models.Analysis{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseAnalysisID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, apperrors.InvalidInput(err.Error()), "")
		return
	}
	a, err := s.svc.Analysis.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleRunStory(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseAnalysisID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, apperrors.InvalidInput(err.Error()), "")
		return
	}
	d, err := s.svc.Stories.Run(r.Context(), id)
	if err != nil {
		recordID := ""
		if d != nil {
			recordID = d.ID.String()
		}
		s.writeError(w, r, err, recordID)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseAnalysisID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, apperrors.InvalidInput(err.Error()), "")
		return
	}
	if _, err := s.svc.Analysis.Get(r.Context(), id); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	list, err := s.svc.Stories.ListByAnalysis(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	if list == nil {
		list = []*models.Draft{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseDraftID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, apperrors.InvalidInput(err.Error()), "")
		return
	}
	d, err := s.svc.Stories.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleDraftHTML serves a completed draft as a standalone HTML document.
func (s *Server) handleDraftHTML(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseDraftID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, apperrors.InvalidInput(err.Error()), "")
		return
	}
	d, err := s.svc.Stories.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	if d.Status != models.StatusCompleted || d.Story == nil {
		s.writeError(w, r, apperrors.ValidationError(fmt.Sprintf("draft %s is %s", d.ID, d.Status)), d.ID.String())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title></head>
<body>
<article>
<h1>%s</h1>
<p class="subtitle">%s</p>
%s
</article>
</body>
</html>
`, html.EscapeString(d.Story.Title), html.EscapeString(d.Story.Title), html.EscapeString(d.Story.Subtitle), d.ContentHTML)
}

// handleUsageSummary aggregates token usage between ?from= and ?to=
// (RFC 3339). The default window is the last 30 days.
func (s *Server) handleUsageSummary(w http.ResponseWriter, r *http.Request) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -30)
	var err error
	if v := r.URL.Query().Get("from"); v != "" {
		if start, err = time.Parse(time.RFC3339, v); err != nil {
			s.writeError(w, r, apperrors.InvalidInput("from must be an RFC 3339 timestamp"), "")
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if end, err = time.Parse(time.RFC3339, v); err != nil {
			s.writeError(w, r, apperrors.InvalidInput("to must be an RFC 3339 timestamp"), "")
			return
		}
	}
	summary, err := s.svc.Usage.GetUsageSummary(r.Context(), start, end)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleRecordUsage(w http.ResponseWriter, r *http.Request) {
	rows, err := s.svc.Usage.GetRecordUsage(r.Context(), chi.URLParam(r, "recordID"))
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	if rows == nil {
		rows = []*models.LLMUsage{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
