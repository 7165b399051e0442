// Package audio derives the fade-trimmed preview clip from a full track.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	previewSeconds = 15
	fadeSeconds    = 0.2
)

// Processor shells out to ffmpeg to cut a 15 second clip with a 0.2s fade-in
// and a fade-out that ends exactly at the clip boundary. Temp files are
// worker-local and removed on every exit path.
type Processor struct {
	ffmpegPath string
	tmpDir     string
	timeout    time.Duration
	log        *zerolog.Logger
}

func NewProcessor(ffmpegPath string, logger *zerolog.Logger) *Processor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	l := logger.With().Str("component", "AudioProcessor").Logger()
	return &Processor{
		ffmpegPath: ffmpegPath,
		tmpDir:     os.TempDir(),
		timeout:    30 * time.Second,
		log:        &l,
	}
}

// MakePreview returns the preview bytes or an error; it never silently
// swallows a failed trim. The orchestrator treats any error as a job failure.
func (p *Processor) MakePreview(ctx context.Context, fullAudio []byte) ([]byte, error) {
	if len(fullAudio) == 0 {
		return nil, errors.New("make preview: empty audio buffer")
	}

	inputFile := filepath.Join(p.tmpDir, "input_"+uuid.NewString()+".mp3")
	outputFile := filepath.Join(p.tmpDir, "output_"+uuid.NewString()+".mp3")
	defer func() {
		_ = os.Remove(inputFile)
		_ = os.Remove(outputFile)
	}()

	if err := os.WriteFile(inputFile, fullAudio, 0o600); err != nil {
		return nil, fmt.Errorf("make preview: write input: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	fadeOutStart := float64(previewSeconds) - fadeSeconds
	filter := fmt.Sprintf("afade=t=in:st=0:d=%.1f,afade=t=out:st=%.1f:d=%.1f", fadeSeconds, fadeOutStart, fadeSeconds)

	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-i", inputFile,
		"-t", fmt.Sprintf("%d", previewSeconds),
		"-af", filter,
		"-y",
		outputFile,
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		p.log.Error().Err(err).Str("stderr", tail(stderr.String(), 400)).Msg("ffmpeg preview failed")
		return nil, fmt.Errorf("make preview: ffmpeg: %w", err)
	}

	preview, err := os.ReadFile(outputFile)
	if err != nil {
		return nil, fmt.Errorf("make preview: read output: %w", err)
	}
	if len(preview) == 0 {
		return nil, errors.New("make preview: ffmpeg produced empty output")
	}
	return preview, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
