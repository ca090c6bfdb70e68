package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/54b3r/finrag-go/internal/extract"
	"github.com/54b3r/finrag-go/internal/ingestion"
	"github.com/54b3r/finrag-go/internal/logging"
	"github.com/54b3r/finrag-go/internal/session"
)

// msgProcessFailed is shown when an upload cannot be turned into chunks.
const msgProcessFailed = "Failed to process the document. Please check the logs for details."

const defaultHistoryLimit = 20

// handleUpload handles POST /api/documents. The document is either the
// "file" part of a multipart form or the raw request body, named by the
// "name" query parameter.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	src, err := readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.metrics.uploadsTotal.WithLabelValues("too_large").Inc()
			writeError(w, http.StatusRequestEntityTooLarge, "document too large")
			return
		}
		s.metrics.uploadsTotal.WithLabelValues("bad_request").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := s.lib.Upload(r.Context(), src)
	if err != nil {
		log.Error("upload failed", slog.String("name", src.Name), slog.Any("error", err))
		switch {
		case errors.Is(err, ingestion.ErrTooLarge):
			s.metrics.uploadsTotal.WithLabelValues("too_large").Inc()
			writeError(w, http.StatusRequestEntityTooLarge, "document too large")
		case errors.Is(err, extract.ErrUnsupported):
			s.metrics.uploadsTotal.WithLabelValues("unsupported").Inc()
			writeError(w, http.StatusUnsupportedMediaType, "unsupported document format")
		default:
			s.metrics.uploadsTotal.WithLabelValues("error").Inc()
			writeError(w, http.StatusUnprocessableEntity, msgProcessFailed)
		}
		return
	}

	s.metrics.uploadsTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusCreated, doc)
}

func readUpload(r *http.Request) (ingestion.Source, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return ingestion.Source{}, err
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			return ingestion.Source{}, errors.New(`multipart field "file" is required`)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return ingestion.Source{}, err
		}
		return ingestion.Source{Name: hdr.Filename, Data: data}, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return ingestion.Source{}, err
	}
	if len(data) == 0 {
		return ingestion.Source{}, errors.New("request body is empty")
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload"
	}
	return ingestion.Source{Name: name, Data: data}, nil
}

// handleList handles GET /api/documents.
func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.lib.Documents())
}

// handleAsk handles POST /api/documents/{fp}/ask. Provider failures come
// back as 200 with an advisory message, never as raw errors.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.AskTimeout)
	defer cancel()

	start := time.Now()
	reply, err := s.lib.Ask(ctx, r.PathValue("fp"), req.Question)
	if err != nil {
		s.metrics.askRequestsTotal.WithLabelValues("error").Inc()
		s.writeLookupError(w, r, err)
		return
	}

	outcome := "ok"
	if reply.Summary == "" {
		outcome = "advisory"
	}
	s.metrics.askRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.askDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, reply)
}

// handleMetrics handles GET /api/documents/{fp}/metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	res, err := s.lib.Metrics(r.Context(), r.PathValue("fp"))
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleHistory handles GET /api/documents/{fp}/history?limit=n.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	fp := r.PathValue("fp")
	entries, err := s.lib.History(r.Context(), fp, limit)
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Fingerprint: fp, Entries: entries})
}

// handleDiscard handles DELETE /api/documents/{fp}.
func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	if err := s.lib.Discard(r.PathValue("fp")); err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, session.ErrDocumentNotFound) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	logging.FromContext(r.Context()).Error("request failed", slog.Any("error", err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
