package generation

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"roster-roast/internal/domain"
	"roster-roast/internal/domain/ports/adapter"
)

var _ adapter.GenerationAdapter = (*StubAdapter)(nil)

// StubAdapter is the explicit offline mode: every request succeeds after a
// fixed number of polls with placeholder audio. It is selected by
// configuration (generation.stub_mode), never substituted silently when the
// real provider fails.
type StubAdapter struct {
	mu          sync.Mutex
	polls       map[string]int
	succeedPoll int
	durationSec int
}

func NewStubAdapter(succeedAfterPolls, durationSec int) *StubAdapter {
	if succeedAfterPolls < 1 {
		succeedAfterPolls = 1
	}
	if durationSec <= 0 {
		durationSec = 45
	}
	return &StubAdapter{
		polls:       make(map[string]int),
		succeedPoll: succeedAfterPolls,
		durationSec: durationSec,
	}
}

func (s *StubAdapter) Submit(ctx context.Context, params adapter.SubmitParams) (string, error) {
	id := "stub_" + uuid.NewString()
	s.mu.Lock()
	s.polls[id] = 0
	s.mu.Unlock()
	return id, nil
}

func (s *StubAdapter) Poll(ctx context.Context, requestID string) (adapter.PollResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count, ok := s.polls[requestID]
	if !ok {
		return adapter.PollResult{
			Status: adapter.GenerationFailed,
			Error:  fmt.Sprintf("unknown request id %q: %v", requestID, domain.ErrNotFound),
		}, nil
	}
	count++
	s.polls[requestID] = count

	if count < s.succeedPoll {
		return adapter.PollResult{Status: adapter.GenerationProcessing}, nil
	}
	return adapter.PollResult{
		Status:      adapter.GenerationSucceeded,
		Audio:       placeholderAudio(),
		DurationSec: s.durationSec,
	}, nil
}

// placeholderAudio is a deliberately silent, obviously fake buffer.
func placeholderAudio() []byte {
	return make([]byte, 1024)
}
