package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"roster-roast/internal/domain"
	"roster-roast/internal/domain/model"
	"roster-roast/internal/infra/db/memory"
	"roster-roast/internal/infra/queue"
	"roster-roast/internal/infra/storage"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func newUC(t *testing.T) (*songUC, *memory.JobRepo, *queue.MemoryQueue) {
	t.Helper()
	repo := memory.NewJobRepo()
	q := queue.NewMemoryQueue(16)
	t.Cleanup(func() { _ = q.Close() })
	blobs := storage.NewMemoryStore(storage.NewURLSigner("test-secret", "http://localhost"))
	return NewSongUseCase(repo, q, blobs, time.Minute, testLogger()), repo, q
}

func validReq() model.GenerationRequest {
	return model.GenerationRequest{
		TeamName:         "Foo",
		OpponentTeamName: "Bar",
		YourRoster:       model.Roster{{Position: "QB", Player: "Josh Allen"}},
		Genre:            "rap",
		Tone:             "mild",
		Persona:          "narrator",
		RatingMode:       "PG",
	}
}

func TestSubmitCreatesAndEnqueues(t *testing.T) {
	ctx := context.Background()
	uc, repo, q := newUC(t)

	job, err := uc.Submit(ctx, validReq())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Status != model.JobStatusQueued {
		t.Errorf("status = %s, want queued", job.Status)
	}
	if job.InputHash == "" {
		t.Error("input hash not set")
	}

	stored, err := repo.FindByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("job not persisted: %v", err)
	}
	if stored.Request.TeamName != "Foo" {
		t.Error("raw request not retained for audit")
	}

	song, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("nothing enqueued: %v", err)
	}
	if song.JobID != job.ID || song.InputHash != job.InputHash {
		t.Errorf("queued %+v", song)
	}
}

func TestSubmitValidationRejectsBeforeJobCreation(t *testing.T) {
	ctx := context.Background()
	uc, _, q := newUC(t)

	bad := validReq()
	bad.Genre = "polka"
	if _, err := uc.Submit(ctx, bad); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("got %v, want ErrInvalidArgument", err)
	}

	dctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := q.Dequeue(dctx); err == nil {
		t.Error("invalid request reached the queue")
	}
}

func TestSubmitMissingTeamName(t *testing.T) {
	uc, _, _ := newUC(t)
	bad := validReq()
	bad.TeamName = "   "
	if _, err := uc.Submit(context.Background(), bad); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("got %v, want ErrInvalidArgument", err)
	}
}

func TestSubmitIdenticalRequestsGetDistinctJobs(t *testing.T) {
	ctx := context.Background()
	uc, _, _ := newUC(t)

	a, err := uc.Submit(ctx, validReq())
	if err != nil {
		t.Fatal(err)
	}
	b, err := uc.Submit(ctx, validReq())
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID {
		t.Error("duplicate submission reused a job id")
	}
	if a.InputHash != b.InputHash {
		t.Error("identical requests must share the input hash")
	}
}

func TestRetryOnlyFromFailed(t *testing.T) {
	ctx := context.Background()
	uc, repo, q := newUC(t)

	job, _ := uc.Submit(ctx, validReq())
	_, _ = q.Dequeue(ctx) // drain the original delivery

	if _, err := uc.Retry(ctx, job.ID); !errors.Is(err, domain.ErrJobNotRetryable) {
		t.Fatalf("retry of queued job: got %v, want ErrJobNotRetryable", err)
	}

	_, _ = repo.Update(ctx, job.ID, model.JobUpdate{
		Status:            model.StatusPtr(model.JobStatusFailed),
		ErrorMessage:      model.StrPtr("boom"),
		ProviderRequestID: model.StrPtr("req-dead"),
	})

	retried, err := uc.Retry(ctx, job.ID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if retried.Status != model.JobStatusQueued {
		t.Errorf("status = %s, want queued", retried.Status)
	}
	if retried.ErrorMessage != "" {
		t.Error("retry must clear the error message")
	}
	if retried.ProviderRequestID != "" {
		t.Error("retry must clear the provider request id so the job resubmits")
	}
	if _, err := q.Dequeue(ctx); err != nil {
		t.Error("retry did not enqueue a new attempt")
	}
}

func TestPreviewURLRequiresSucceededJob(t *testing.T) {
	ctx := context.Background()
	uc, repo, _ := newUC(t)

	job, _ := uc.Submit(ctx, validReq())
	if _, err := uc.PreviewURL(ctx, job.ID); !errors.Is(err, domain.ErrArtifactNotReady) {
		t.Errorf("got %v, want ErrArtifactNotReady", err)
	}

	_, _ = repo.Update(ctx, job.ID, model.JobUpdate{
		Status:        model.StatusPtr(model.JobStatusSucceeded),
		PreviewMP3Key: model.StrPtr("preview/x.mp3"),
		MP3Key:        model.StrPtr("full/x.mp3"),
	})
	u, err := uc.PreviewURL(ctx, job.ID)
	if err != nil {
		t.Fatalf("PreviewURL: %v", err)
	}
	if u == "" {
		t.Error("empty preview url")
	}
}

func TestDownloadURLGatedOnUnlock(t *testing.T) {
	ctx := context.Background()
	uc, repo, _ := newUC(t)

	job, _ := uc.Submit(ctx, validReq())
	_, _ = repo.Update(ctx, job.ID, model.JobUpdate{
		Status: model.StatusPtr(model.JobStatusSucceeded),
		MP3Key: model.StrPtr("full/x.mp3"),
	})

	if _, err := uc.DownloadURL(ctx, job.ID); !errors.Is(err, domain.ErrDownloadLocked) {
		t.Fatalf("got %v, want ErrDownloadLocked", err)
	}

	if _, err := uc.Unlock(ctx, job.ID); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if _, err := uc.DownloadURL(ctx, job.ID); err != nil {
		t.Errorf("DownloadURL after unlock: %v", err)
	}
}
