package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"unicode"
)

// Known style values, mirrored from the song catalog the UI offers.
var (
	Genres   = []string{"country", "rap", "electronic", "pop", "blues", "funk", "rnb", "gospel"}
	Tones    = []string{"mild", "medium", "savage"}
	Personas = []string{"first_person", "narrator"}
	Ratings  = []string{"PG", "NSFW"}
)

// RosterSlot pairs a free-form position label with a player name. Labels are
// whatever the roster source produced (QB, WR1, BENCH3, ...), never a fixed enum.
type RosterSlot struct {
	Position string `json:"position"`
	Player   string `json:"player"`
}

// Roster preserves the order the slots arrived in; lyric verses follow it.
type Roster []RosterSlot

// GenerationRequest is the full input to one song generation. The raw form is
// kept on the Job for display; Normalize produces the canonical form that is
// hashed and rendered.
type GenerationRequest struct {
	TeamName         string `json:"team_name"`
	OpponentTeamName string `json:"opponent_team_name"`
	YourRoster       Roster `json:"your_roster"`
	OpponentRoster   Roster `json:"opponent_roster"`
	Genre            string `json:"genre"`
	Tone             string `json:"tone"`
	Persona          string `json:"persona"`
	RatingMode       string `json:"rating_mode"`
}

// Normalize returns a copy with whitespace collapsed, text fields lower-cased
// and player names stripped of punctuation. Position labels are preserved
// verbatim. Two requests that differ only in spacing or case normalize to the
// same value, so their hashes collide and the dedup cache can reuse artifacts.
func (r GenerationRequest) Normalize() GenerationRequest {
	return GenerationRequest{
		TeamName:         normalizeText(r.TeamName),
		OpponentTeamName: normalizeText(r.OpponentTeamName),
		YourRoster:       r.YourRoster.normalize(),
		OpponentRoster:   r.OpponentRoster.normalize(),
		Genre:            normalizeText(r.Genre),
		Tone:             normalizeText(r.Tone),
		Persona:          normalizeText(r.Persona),
		RatingMode:       strings.TrimSpace(r.RatingMode),
	}
}

// Hash fingerprints a normalized request: SHA-256 over a canonical JSON
// serialization with lexicographically sorted keys. Construction order of the
// roster slots does not affect the digest because rosters serialize as
// position-keyed objects.
func (r GenerationRequest) Hash() string {
	canonical := map[string]interface{}{
		"teamName":         r.TeamName,
		"opponentTeamName": r.OpponentTeamName,
		"yourRoster":       r.YourRoster.asMap(),
		"opponentRoster":   r.OpponentRoster.asMap(),
		"genre":            r.Genre,
		"tone":             r.Tone,
		"persona":          r.Persona,
		"ratingMode":       r.RatingMode,
	}
	// encoding/json sorts map keys, which gives us the canonical form for free.
	b, _ := json.Marshal(canonical)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (ro Roster) normalize() Roster {
	if ro == nil {
		return nil
	}
	out := make(Roster, 0, len(ro))
	for _, slot := range ro {
		out = append(out, RosterSlot{
			Position: slot.Position,
			Player:   normalizePlayerName(slot.Player),
		})
	}
	return out
}

func (ro Roster) asMap() map[string]string {
	m := make(map[string]string, len(ro))
	for _, slot := range ro {
		m[slot.Position] = slot.Player
	}
	return m
}

func normalizeText(s string) string {
	return collapseWhitespace(strings.ToLower(strings.TrimSpace(s)))
}

// normalizePlayerName strips punctuation and collapses runs of whitespace.
// Case is kept: "Ja'Marr Chase" -> "JaMarr Chase".
func normalizePlayerName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	return collapseWhitespace(strings.TrimSpace(b.String()))
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
