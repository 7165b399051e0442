// Package generation implements the music-provider port: a real HTTP adapter
// and a deterministic stub for offline development and tests.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"roster-roast/internal/domain/ports/adapter"
	"roster-roast/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.GenerationAdapter = (*HTTPAdapter)(nil)

// HTTPAdapter talks to the provider's REST surface:
// POST {base}/generate with lyrics + style tokens, GET {base}/jobs/{id} to poll.
// Authorization: Bearer <api key>.
type HTTPAdapter struct {
	apiKey string
	base   string
	client *http.Client
	log    *zerolog.Logger
}

func NewHTTPAdapter(apiKey, base string, logger *zerolog.Logger) (*HTTPAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("generation api key empty")
	}
	if base == "" {
		base = "https://api.suno.ai/v1"
	}
	l := logger.With().Str("component", "GenerationClient").Logger()
	return &HTTPAdapter{
		apiKey: apiKey,
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
		log:    &l,
	}, nil
}

func (a *HTTPAdapter) Submit(ctx context.Context, params adapter.SubmitParams) (string, error) {
	reqBody := struct {
		Lyrics   string `json:"lyrics"`
		Style    string `json:"style"`
		Duration int    `json:"duration"`
		Rating   string `json:"rating"`
	}{
		Lyrics:   params.Lyrics,
		Style:    fmt.Sprintf("%s %s %s", params.Genre, params.Tone, params.Persona),
		Duration: params.DurationSec,
		Rating:   params.RatingMode,
	}

	b, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.base+"/generate", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		metrics.IncGenerationSubmit("error")
		return "", fmt.Errorf("generation submit: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		metrics.IncGenerationSubmit("error")
		return "", fmt.Errorf("generation submit: http %d", resp.StatusCode)
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.IncGenerationSubmit("error")
		return "", fmt.Errorf("generation submit: decode: %w", err)
	}
	if payload.ID == "" {
		metrics.IncGenerationSubmit("error")
		return "", errors.New("generation submit: empty request id")
	}
	metrics.IncGenerationSubmit("ok")
	return payload.ID, nil
}

// Poll reflects provider-side status only. Transport failures and non-2xx
// responses come back as a failed PollResult, never as a Go error, so the
// orchestrator's poll loop sees one uniform shape.
func (a *HTTPAdapter) Poll(ctx context.Context, requestID string) (adapter.PollResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.base+"/jobs/"+requestID, nil)
	if err != nil {
		return transientFailure(err.Error()), nil
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		a.log.Warn().Err(err).Str("request_id", requestID).Msg("poll transport error")
		return transientFailure("provider unreachable: " + err.Error()), nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return transientFailure(fmt.Sprintf("provider returned http %d", resp.StatusCode)), nil
	}

	var payload struct {
		Status   string `json:"status"`
		AudioURL string `json:"audio_url"`
		Duration int    `json:"duration"`
		Lyrics   string `json:"lyrics"`
		Error    string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return transientFailure("malformed provider response: " + err.Error()), nil
	}

	status := adapter.GenerationStatus(payload.Status)
	switch status {
	case adapter.GenerationSucceeded:
		if payload.AudioURL == "" {
			return failedResult("provider succeeded without audio url"), nil
		}
		audio, err := a.download(ctx, payload.AudioURL)
		if err != nil {
			return transientFailure("audio download failed: " + err.Error()), nil
		}
		return adapter.PollResult{
			Status:      adapter.GenerationSucceeded,
			Audio:       audio,
			DurationSec: payload.Duration,
			Lyrics:      payload.Lyrics,
		}, nil
	case adapter.GenerationFailed:
		msg := payload.Error
		if msg == "" {
			msg = "song generation failed"
		}
		return failedResult(msg), nil
	case adapter.GenerationQueued, adapter.GenerationProcessing:
		return adapter.PollResult{Status: status}, nil
	default:
		return adapter.PollResult{Status: adapter.GenerationQueued}, nil
	}
}

func (a *HTTPAdapter) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func failedResult(msg string) adapter.PollResult {
	return adapter.PollResult{Status: adapter.GenerationFailed, Error: msg}
}

func transientFailure(msg string) adapter.PollResult {
	return adapter.PollResult{Status: adapter.GenerationFailed, Error: msg, Transient: true}
}
