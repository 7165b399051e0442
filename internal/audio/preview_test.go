package audio

import (
	"context"
	"os/exec"
	"testing"

	"github.com/rs/zerolog"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func TestMakePreviewRejectsEmptyBuffer(t *testing.T) {
	p := NewProcessor("", testLogger())
	if _, err := p.MakePreview(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty buffer")
	}
}

func TestMakePreviewRejectsGarbage(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	p := NewProcessor("", testLogger())
	// Not a valid media container; ffmpeg must fail and we must surface it.
	if _, err := p.MakePreview(context.Background(), []byte("definitely not an mp3")); err == nil {
		t.Fatal("expected error for malformed audio")
	}
}

func TestMakePreviewTrimsRealAudio(t *testing.T) {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}

	// Synthesize 30s of silence as mp3 input.
	full, err := exec.Command(ffmpeg,
		"-f", "lavfi", "-i", "anullsrc=r=44100:cl=mono",
		"-t", "30", "-q:a", "9", "-f", "mp3", "-",
	).Output()
	if err != nil || len(full) == 0 {
		t.Skipf("could not synthesize test audio: %v", err)
	}

	p := NewProcessor("", testLogger())
	preview, err := p.MakePreview(context.Background(), full)
	if err != nil {
		t.Fatalf("MakePreview: %v", err)
	}
	if len(preview) == 0 {
		t.Fatal("preview is empty")
	}
	// 15s clip of the same encoding should be well under the 30s source.
	if len(preview) >= len(full) {
		t.Errorf("preview (%d bytes) not smaller than source (%d bytes)", len(preview), len(full))
	}
}
