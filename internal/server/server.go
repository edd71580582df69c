// Package server exposes the service over HTTP. Transport only: every
// operation delegates to the rag facade and maps domain errors to statuses.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"secondbrain/internal/models"
	"secondbrain/internal/rag"
)

type Server struct {
	rag *rag.RAG
}

func NewServer(r *rag.RAG) *Server {
	return &Server{rag: r}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.HandleFunc("GET /health/storage", s.handleStorageHealth)
	mux.HandleFunc("POST /documents/index", s.handleIndex)
	mux.HandleFunc("POST /documents/upload", s.handleUpload)
	mux.HandleFunc("GET /documents/list", s.handleList)
	mux.HandleFunc("DELETE /documents/reset", s.handleReset)
	mux.HandleFunc("DELETE /documents/{id}", s.handleDelete)
	mux.HandleFunc("POST /query", s.handleQuery)
	return logRequests(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "active", "service": "second-brain"})
}

func (s *Server) handleStorageHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.rag.ListDocuments(r.Context(), 1); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type indexRequest struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "content is required"})
		return
	}

	source := models.SourceMetadata{
		Filename: req.Metadata[models.MetaSource],
		Extra:    req.Metadata,
	}
	res := s.rag.IngestText(r.Context(), req.Content, source)
	writeJSON(w, statusForResult(res), res)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var results []models.IngestionResult
	var files []models.FileUpload
	for _, fh := range r.MultipartForm.File["files"] {
		data, err := readMultipartFile(fh)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if strings.EqualFold(filepath.Ext(fh.Filename), ".zip") {
			archiveResults, err := s.rag.IngestArchive(r.Context(), data)
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			results = append(results, archiveResults...)
			continue
		}
		files = append(files, models.FileUpload{Filename: fh.Filename, Data: data})
	}

	results = append(results, s.rag.Ingest(r.Context(), files)...)
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}

	docs, err := s.rag.ListDocuments(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	n, err := s.rag.DeleteDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	res, err := s.rag.ResetAll(r.Context())
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type queryRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	answer, err := s.rag.Query(r.Context(), req.Question)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"question": req.Question, "answer": answer})
}

func statusForResult(res models.IngestionResult) int {
	if res.Status == models.StatusError {
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrEmbeddingService),
		errors.Is(err, models.ErrGenerationService),
		errors.Is(err, models.ErrIndexUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrMalformedAgentResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Handled request")
	})
}
