package lyrics

import (
	"errors"
	"strings"
	"testing"

	"roster-roast/internal/domain"
	"roster-roast/internal/domain/model"
	"roster-roast/internal/domain/ports/adapter"
)

func sampleInput() adapter.LyricsInput {
	return adapter.LyricsInput{
		TeamName:         "gridiron goats",
		OpponentTeamName: "bench warmers",
		YourRoster: model.Roster{
			{Position: "QB", Player: "Josh Allen"},
			{Position: "RB", Player: "Bijan Robinson"},
		},
		OpponentRoster: model.Roster{
			{Position: "QB", Player: "Some Guy"},
		},
		Genre:      "rap",
		Tone:       "savage",
		Persona:    "first_person",
		RatingMode: "PG",
	}
}

func TestRenderIncludesTeamsAndPlayers(t *testing.T) {
	r := NewRenderer()
	got, err := r.Render(sampleInput())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{"gridiron goats", "bench warmers", "Josh Allen", "Bijan Robinson", "[Intro]", "[Hook]", "[Outro]"} {
		if !strings.Contains(got, want) {
			t.Errorf("lyrics missing %q", want)
		}
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	r := NewRenderer()
	a, err := r.Render(sampleInput())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	b, err := r.Render(sampleInput())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if a != b {
		t.Error("same input rendered different lyrics")
	}
}

func TestRenderUnknownGenre(t *testing.T) {
	in := sampleInput()
	in.Genre = "yodeling"
	if _, err := NewRenderer().Render(in); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("got %v, want ErrInvalidArgument", err)
	}
}

func TestRenderFreeFormPositionFallsBack(t *testing.T) {
	in := sampleInput()
	in.YourRoster = model.Roster{{Position: "BENCH3", Player: "Deep Cut"}}
	got, err := NewRenderer().Render(in)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(got, "Deep Cut") {
		t.Error("free-form position label dropped the player line")
	}
}

func TestRenderEmptyRoster(t *testing.T) {
	in := sampleInput()
	in.YourRoster = nil
	in.OpponentRoster = nil
	got, err := NewRenderer().Render(in)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(got, "[Verse 1 - Our Champions]") {
		t.Error("structure should survive an empty roster")
	}
}

func TestFilterContentBannedWords(t *testing.T) {
	got := FilterContent("no injury talk here", "NSFW")
	if strings.Contains(got, "injury") {
		t.Errorf("banned word survived: %q", got)
	}
	if !strings.Contains(got, "[FILTERED]") {
		t.Errorf("no redaction marker: %q", got)
	}
}

func TestFilterContentPGSoftening(t *testing.T) {
	got := FilterContent("damn right we win", "PG")
	if strings.Contains(strings.ToLower(got), "damn") {
		t.Errorf("PG mode kept profanity: %q", got)
	}
	if !strings.Contains(got, "darn") {
		t.Errorf("expected softened word: %q", got)
	}

	nsfw := FilterContent("damn right we win", "NSFW")
	if !strings.Contains(nsfw, "damn") {
		t.Errorf("NSFW mode should not soften: %q", nsfw)
	}
}
