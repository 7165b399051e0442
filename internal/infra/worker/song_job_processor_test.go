package worker

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"roster-roast/internal/domain/model"
	"roster-roast/internal/domain/ports/adapter"
	"roster-roast/internal/infra/db/memory"
	"roster-roast/internal/infra/queue"
	"roster-roast/internal/infra/storage"
	"roster-roast/internal/lyrics"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// scriptedGen is a hand-rolled generation adapter whose Poll walks a fixed
// sequence of results, repeating the last one once exhausted.
type scriptedGen struct {
	mu      sync.Mutex
	submits int
	polls   int
	script  []adapter.PollResult
}

func (g *scriptedGen) Submit(ctx context.Context, params adapter.SubmitParams) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submits++
	return "req-1", nil
}

func (g *scriptedGen) Poll(ctx context.Context, requestID string) (adapter.PollResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.polls
	g.polls++
	if i >= len(g.script) {
		i = len(g.script) - 1
	}
	return g.script[i], nil
}

func (g *scriptedGen) counts() (submits, polls int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submits, g.polls
}

// fakePreview avoids a real ffmpeg dependency in orchestration tests.
type fakePreview struct{}

func (fakePreview) MakePreview(ctx context.Context, fullAudio []byte) ([]byte, error) {
	return []byte("preview-of-" + string(fullAudio[:4])), nil
}

func testRequest() model.GenerationRequest {
	return model.GenerationRequest{
		TeamName:         "Gridiron Goblins",
		OpponentTeamName: "Sad Punters",
		YourRoster:       model.Roster{{Position: "QB", Player: "Josh Allen"}, {Position: "RB", Player: "Bijan Robinson"}},
		OpponentRoster:   model.Roster{{Position: "QB", Player: "Backup Guy"}},
		Genre:            "rap",
		Tone:             "mild",
		Persona:          "narrator",
		RatingMode:       "PG",
	}
}

func testHarness(t *testing.T, gen adapter.GenerationAdapter, opts Options) (*SongJobProcessor, *memory.JobRepo, *queue.MemoryQueue) {
	t.Helper()
	repo := memory.NewJobRepo()
	q := queue.NewMemoryQueue(16)
	t.Cleanup(func() { _ = q.Close() })
	blobs := storage.NewMemoryStore(storage.NewURLSigner("test-secret", "http://localhost"))
	p := NewSongJobProcessor(repo, q, lyrics.NewRenderer(), gen, blobs, fakePreview{}, opts, testLogger())
	return p, repo, q
}

func seedQueuedJob(t *testing.T, repo *memory.JobRepo, req model.GenerationRequest) *model.Job {
	t.Helper()
	norm := req.Normalize()
	job := &model.Job{InputHash: norm.Hash(), Request: req}
	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job
}

func fastOpts() Options {
	return Options{
		PollInterval:    time.Millisecond,
		MaxPollAttempts: 4,
		MaxDeliveries:   3,
		RetryBackoff:    time.Millisecond,
		DurationSec:     45,
	}
}

func expectEmpty(t *testing.T, q *queue.MemoryQueue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if song, err := q.Dequeue(ctx); err == nil {
		t.Errorf("unexpected redelivery: %+v", song)
	}
}

func TestProcessOneSuccessPersistsEverythingTogether(t *testing.T) {
	ctx := context.Background()
	gen := &scriptedGen{script: []adapter.PollResult{
		{Status: adapter.GenerationProcessing},
		{Status: adapter.GenerationSucceeded, Audio: []byte("mp3-bytes-here"), DurationSec: 42},
	}}
	p, repo, q := testHarness(t, gen, fastOpts())
	job := seedQueuedJob(t, repo, testRequest())

	p.ProcessOne(ctx, &model.QueuedSong{JobID: job.ID, InputHash: job.InputHash})

	got, err := repo.FindByID(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.JobStatusSucceeded {
		t.Fatalf("status = %s (error %q), want succeeded", got.Status, got.ErrorMessage)
	}
	if got.ProviderRequestID != "req-1" {
		t.Errorf("provider request id = %q", got.ProviderRequestID)
	}
	if got.Lyrics == "" || !strings.Contains(got.Lyrics, "gridiron goblins") {
		t.Error("lyrics missing or missing normalized team name")
	}
	if got.MP3Key == "" || got.PreviewMP3Key == "" {
		t.Errorf("artifact keys not set: full=%q preview=%q", got.MP3Key, got.PreviewMP3Key)
	}
	if got.LyricsLRC == "" || !strings.HasPrefix(got.LyricsLRC, "[00:00.00]") {
		t.Errorf("timed lyrics = %q", got.LyricsLRC)
	}
	if got.DurationSec != 42 {
		t.Errorf("duration = %d, want 42", got.DurationSec)
	}
	if got.ErrorMessage != "" {
		t.Errorf("error message = %q, want empty", got.ErrorMessage)
	}
	if _, polls := gen.counts(); polls != 2 {
		t.Errorf("polls = %d, want 2", polls)
	}
	expectEmpty(t, q)
}

func TestProcessOneDedupSkipsProvider(t *testing.T) {
	ctx := context.Background()
	gen := &scriptedGen{script: []adapter.PollResult{{Status: adapter.GenerationProcessing}}}
	p, repo, q := testHarness(t, gen, fastOpts())

	req := testRequest()
	prior := seedQueuedJob(t, repo, req)
	if _, err := repo.Update(ctx, prior.ID, model.JobUpdate{
		Status:            model.StatusPtr(model.JobStatusSucceeded),
		ProviderRequestID: model.StrPtr("req-prior"),
		Lyrics:            model.StrPtr("same words"),
		LyricsLRC:         model.StrPtr("[00:00.00]same words"),
		MP3Key:            model.StrPtr("full/prior.mp3"),
		PreviewMP3Key:     model.StrPtr("preview/prior.mp3"),
		DurationSec:       model.IntPtr(45),
	}); err != nil {
		t.Fatal(err)
	}

	dup := seedQueuedJob(t, repo, req)
	if dup.InputHash != prior.InputHash {
		t.Fatal("test setup: hashes differ")
	}
	p.ProcessOne(ctx, &model.QueuedSong{JobID: dup.ID, InputHash: dup.InputHash})

	got, _ := repo.FindByID(ctx, dup.ID)
	if got.Status != model.JobStatusSucceeded {
		t.Fatalf("status = %s, want succeeded", got.Status)
	}
	if got.MP3Key != "full/prior.mp3" || got.PreviewMP3Key != "preview/prior.mp3" || got.LyricsLRC != "[00:00.00]same words" {
		t.Errorf("artifacts not copied from prior job: %+v", got)
	}
	if submits, polls := gen.counts(); submits != 0 || polls != 0 {
		t.Errorf("provider touched on cache hit: submits=%d polls=%d", submits, polls)
	}
	expectEmpty(t, q)
}

func TestProcessOneProviderFailureIsTerminal(t *testing.T) {
	ctx := context.Background()
	gen := &scriptedGen{script: []adapter.PollResult{
		{Status: adapter.GenerationFailed, Error: "lyrics rejected by content policy"},
	}}
	p, repo, q := testHarness(t, gen, fastOpts())
	job := seedQueuedJob(t, repo, testRequest())

	p.ProcessOne(ctx, &model.QueuedSong{JobID: job.ID, InputHash: job.InputHash})

	got, _ := repo.FindByID(ctx, job.ID)
	if got.Status != model.JobStatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.ErrorMessage != "lyrics rejected by content policy" {
		t.Errorf("error message = %q, want provider message verbatim", got.ErrorMessage)
	}
	// Provider-declared failures must not be redelivered.
	expectEmpty(t, q)
}

func TestProcessOneTimesOutAfterMaxPolls(t *testing.T) {
	ctx := context.Background()
	gen := &scriptedGen{script: []adapter.PollResult{{Status: adapter.GenerationProcessing}}}
	p, repo, q := testHarness(t, gen, fastOpts())
	job := seedQueuedJob(t, repo, testRequest())

	p.ProcessOne(ctx, &model.QueuedSong{JobID: job.ID, InputHash: job.InputHash})

	got, _ := repo.FindByID(ctx, job.ID)
	if got.Status != model.JobStatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if !strings.Contains(got.ErrorMessage, "timed out") {
		t.Errorf("error message = %q, want timeout message", got.ErrorMessage)
	}
	if _, polls := gen.counts(); polls != 4 {
		t.Errorf("polls = %d, want exactly MaxPollAttempts (4)", polls)
	}
	// Timeout is terminal: the provider had its full window.
	expectEmpty(t, q)
}

func TestProcessOneTransientFailureSchedulesRedelivery(t *testing.T) {
	ctx := context.Background()
	gen := &scriptedGen{script: []adapter.PollResult{
		{Status: adapter.GenerationFailed, Error: "provider unreachable: connection refused", Transient: true},
	}}
	p, repo, q := testHarness(t, gen, fastOpts())
	job := seedQueuedJob(t, repo, testRequest())

	p.ProcessOne(ctx, &model.QueuedSong{JobID: job.ID, InputHash: job.InputHash, Attempt: 0})

	got, _ := repo.FindByID(ctx, job.ID)
	if got.Status != model.JobStatusFailed {
		t.Fatalf("status = %s, want failed while awaiting redelivery", got.Status)
	}
	if !strings.Contains(got.ErrorMessage, "provider unreachable") {
		t.Errorf("error message = %q", got.ErrorMessage)
	}

	dctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	redelivery, err := q.Dequeue(dctx)
	if err != nil {
		t.Fatalf("no redelivery scheduled: %v", err)
	}
	if redelivery.JobID != job.ID || redelivery.Attempt != 1 {
		t.Errorf("redelivery = %+v, want attempt 1 for same job", redelivery)
	}
}

func TestProcessOneStopsRedeliveryAtMaxDeliveries(t *testing.T) {
	ctx := context.Background()
	gen := &scriptedGen{script: []adapter.PollResult{
		{Status: adapter.GenerationFailed, Error: "provider unreachable", Transient: true},
	}}
	opts := fastOpts() // MaxDeliveries: 3
	p, repo, q := testHarness(t, gen, opts)
	job := seedQueuedJob(t, repo, testRequest())

	// The final permitted delivery fails: no further redelivery.
	p.ProcessOne(ctx, &model.QueuedSong{JobID: job.ID, InputHash: job.InputHash, Attempt: 2})
	expectEmpty(t, q)
}

func TestProcessOneResumesPollingOnRedelivery(t *testing.T) {
	ctx := context.Background()
	gen := &scriptedGen{script: []adapter.PollResult{
		{Status: adapter.GenerationSucceeded, Audio: []byte("mp3-bytes-here"), DurationSec: 42},
	}}
	p, repo, _ := testHarness(t, gen, fastOpts())
	job := seedQueuedJob(t, repo, testRequest())
	if _, err := repo.Update(ctx, job.ID, model.JobUpdate{
		ProviderRequestID: model.StrPtr("req-prior"),
		Lyrics:            model.StrPtr("already rendered words"),
	}); err != nil {
		t.Fatal(err)
	}

	p.ProcessOne(ctx, &model.QueuedSong{JobID: job.ID, InputHash: job.InputHash, Attempt: 1})

	got, _ := repo.FindByID(ctx, job.ID)
	if got.Status != model.JobStatusSucceeded {
		t.Fatalf("status = %s (error %q), want succeeded", got.Status, got.ErrorMessage)
	}
	if got.ProviderRequestID != "req-prior" {
		t.Errorf("provider request id = %q, want the resumed one", got.ProviderRequestID)
	}
	if submits, polls := gen.counts(); submits != 0 || polls != 1 {
		t.Errorf("redelivery resubmitted: submits=%d polls=%d, want 0/1", submits, polls)
	}
	if !strings.Contains(got.LyricsLRC, "already rendered words") {
		t.Errorf("timed lyrics built from resumed text, got %q", got.LyricsLRC)
	}
}

func TestProcessOneIgnoresRedeliveryOfSucceededJob(t *testing.T) {
	ctx := context.Background()
	gen := &scriptedGen{script: []adapter.PollResult{{Status: adapter.GenerationProcessing}}}
	p, repo, _ := testHarness(t, gen, fastOpts())
	job := seedQueuedJob(t, repo, testRequest())
	if _, err := repo.Update(ctx, job.ID, model.JobUpdate{
		Status: model.StatusPtr(model.JobStatusSucceeded),
		MP3Key: model.StrPtr("full/x.mp3"),
	}); err != nil {
		t.Fatal(err)
	}

	p.ProcessOne(ctx, &model.QueuedSong{JobID: job.ID, InputHash: job.InputHash})

	got, _ := repo.FindByID(ctx, job.ID)
	if got.Status != model.JobStatusSucceeded || got.MP3Key != "full/x.mp3" {
		t.Errorf("redelivery touched a finished job: %+v", got)
	}
	if submits, polls := gen.counts(); submits != 0 || polls != 0 {
		t.Errorf("provider touched on redelivery of finished job: submits=%d polls=%d", submits, polls)
	}
}

func TestProcessOneDropsUnknownJob(t *testing.T) {
	gen := &scriptedGen{script: []adapter.PollResult{{Status: adapter.GenerationProcessing}}}
	p, _, q := testHarness(t, gen, fastOpts())
	p.ProcessOne(context.Background(), &model.QueuedSong{JobID: "no-such-job", InputHash: "x"})
	if submits, _ := gen.counts(); submits != 0 {
		t.Error("provider touched for a job missing from the store")
	}
	expectEmpty(t, q)
}
