package adapter

import "roster-roast/internal/domain/model"

// LyricsInput is the normalized material the renderer works from.
type LyricsInput struct {
	TeamName         string
	OpponentTeamName string
	YourRoster       model.Roster
	OpponentRoster   model.Roster
	Genre            string
	Tone             string
	Persona          string
	RatingMode       string
}

// LyricsRenderer turns structured input into filtered lyric text. Pure at the
// contract level: same input, same output.
type LyricsRenderer interface {
	Render(in LyricsInput) (string, error)
}
