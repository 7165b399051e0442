// Package api exposes the HTTP surface: song submission and status, artifact
// links, the signed-token file endpoint, health and metrics.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"roster-roast/internal/domain"
	"roster-roast/internal/domain/model"
	"roster-roast/internal/domain/ports/adapter"
	"roster-roast/internal/infra/storage"
	"roster-roast/internal/usecase"
)

const requestTimeout = 15 * time.Second

type Server struct {
	uc        usecase.SongUseCase
	blobs     adapter.BlobStore
	signer    *storage.URLSigner
	rateLimit int
	log       *zerolog.Logger
}

func NewServer(uc usecase.SongUseCase, blobs adapter.BlobStore, signer *storage.URLSigner, rateLimit int, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "HTTPServer").Logger()
	return &Server{uc: uc, blobs: blobs, signer: signer, rateLimit: rateLimit, log: &l}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(Recover(s.log))
	r.Use(TraceID())
	r.Use(RequestLog(s.log))
	r.Use(middleware.Timeout(requestTimeout))
	if s.rateLimit > 0 {
		r.Use(middleware.Throttle(s.rateLimit))
	}

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/songs", s.handleSubmit)
		r.Get("/songs/{id}", s.handleGet)
		r.Post("/songs/{id}/retry", s.handleRetry)
		r.Post("/songs/{id}/unlock", s.handleUnlock)
		r.Get("/songs/{id}/preview", s.handlePreview)
		r.Get("/songs/{id}/download", s.handleDownload)
		r.Get("/files", s.handleFile)
	})
	return r
}

// jobView is the wire shape of a job. Artifact links are not inlined; the
// preview and download endpoints mint short-lived signed URLs on demand.
type jobView struct {
	ID           string                  `json:"id"`
	Status       model.JobStatus         `json:"status"`
	Request      model.GenerationRequest `json:"request"`
	Lyrics       string                  `json:"lyrics,omitempty"`
	LyricsLRC    string                  `json:"lyrics_lrc,omitempty"`
	DurationSec  int                     `json:"duration_sec,omitempty"`
	ErrorMessage string                  `json:"error_message,omitempty"`
	Unlocked     bool                    `json:"unlocked"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

func viewOf(job *model.Job) jobView {
	return jobView{
		ID:           job.ID,
		Status:       job.Status,
		Request:      job.Request,
		Lyrics:       job.Lyrics,
		LyricsLRC:    job.LyricsLRC,
		DurationSec:  job.DurationSec,
		ErrorMessage: job.ErrorMessage,
		Unlocked:     job.Unlocked,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req model.GenerationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		s.writeError(w, r, domain.ErrInvalidArgument, "malformed request body")
		return
	}
	job, err := s.uc.Submit(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	s.writeJSON(w, http.StatusAccepted, viewOf(job))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	job, err := s.uc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	s.writeJSON(w, http.StatusOK, viewOf(job))
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	job, err := s.uc.Retry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	s.writeJSON(w, http.StatusAccepted, viewOf(job))
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	job, err := s.uc.Unlock(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	s.writeJSON(w, http.StatusOK, viewOf(job))
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	u, err := s.uc.PreviewURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	http.Redirect(w, r, u, http.StatusFound)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	u, err := s.uc.DownloadURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	http.Redirect(w, r, u, http.StatusFound)
}

// handleFile exchanges a signed token for blob bytes. The token carries the
// key and bucket; nothing else about the store is exposed.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusBadRequest)
		return
	}
	key, bucket, err := s.signer.Verify(token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusForbidden)
		return
	}
	data, err := s.blobs.Get(r.Context(), key, bucket)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", `attachment; filename="song.mp3"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrJobNotRetryable), errors.Is(err, domain.ErrArtifactNotReady):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrDownloadLocked):
		status = http.StatusPaymentRequired
	case errors.Is(err, domain.ErrQueueFull):
		status = http.StatusServiceUnavailable
	}
	if msg == "" {
		msg = err.Error()
	}
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		msg = "internal error"
	}
	s.writeJSON(w, status, errorBody{Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("response encode failed")
	}
}
