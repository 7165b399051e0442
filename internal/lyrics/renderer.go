// Package lyrics renders templated trash-talk lyrics from a normalized
// generation request. It is the text-template collaborator behind the
// adapter.LyricsRenderer port; the orchestrator only depends on the contract.
package lyrics

import (
	"fmt"
	"hash/fnv"
	"strings"

	"roster-roast/internal/domain"
	"roster-roast/internal/domain/model"
	"roster-roast/internal/domain/ports/adapter"
)

var _ adapter.LyricsRenderer = (*Renderer)(nil)

type genreStyle struct {
	intro string
	hook  string
}

var genreStyles = map[string]genreStyle{
	"country": {
		intro: "Well howdy y'all, {team} ridin' in",
		hook:  "{team}! {team}! Gonna rope 'em up tight",
	},
	"rap": {
		intro: "Yo, {team} in the house, bout to bring the heat",
		hook:  "{team} on top, we don't ever miss a beat",
	},
	"electronic": {
		intro: "System loading, {team} activated",
		hook:  "Beat drop, {team}, we're elevated",
	},
	"pop": {
		intro: "Turn it up, {team} here to play",
		hook:  "{team}, {team}, gonna win this game!",
	},
	"blues": {
		intro: "Got them {opponent} blues, {team} here to play",
		hook:  "Sing it loud, {team}, this is our day",
	},
	"funk": {
		intro: "Get on up, {team} got that funky flow",
		hook:  "Funk it up, {team}, let the good times roll",
	},
	"rnb": {
		intro: "Smooth like silk, {team} here tonight",
		hook:  "Oh yeah, {team}, we're reaching new heights",
	},
	"gospel": {
		intro: "Hallelujah, {team} blessed to play",
		hook:  "Praise the game, {team}, this is our day",
	},
}

var toneEndings = map[string][]string{
	"mild":   {"Good game coming up", "May the best team win", "See you on the field"},
	"medium": {"Bring your A-game", "Time to settle this", "Game on!"},
	"savage": {"No mercy given", "Prepare for defeat", "Domination incoming"},
}

// Position-flavored verse lines keyed by common labels; anything unknown
// falls back to a generic line so free-form roster labels never break a render.
var positionLines = map[string]map[string]string{
	"QB": {
		"mild":   "{player} throws with precision",
		"medium": "{player} commands the field",
		"savage": "{player} is surgical with those passes",
	},
	"RB": {
		"mild":   "{player} runs through the gaps",
		"medium": "{player} breaks through the line",
		"savage": "{player} tramples the defense",
	},
	"WR1": {
		"mild":   "{player} catches passes clean",
		"medium": "{player} burns the secondary",
		"savage": "{player} leaves defenders in the dust",
	},
	"WR2": {
		"mild":   "{player} finds the open space",
		"medium": "{player} makes clutch catches",
		"savage": "{player} torches every corner",
	},
	"TE": {
		"mild":   "{player} reliable in the middle",
		"medium": "{player} splits the seams wide",
		"savage": "{player} unstoppable over the middle",
	},
	"FLEX": {
		"mild":   "{player} adds versatility",
		"medium": "{player} brings the extra punch",
		"savage": "{player} is the ultimate weapon",
	},
	"K": {
		"mild":   "{player} kicks them through",
		"medium": "{player} splits the uprights",
		"savage": "{player} never misses when it counts",
	},
	"DEF": {
		"mild":   "{player} plays solid defense",
		"medium": "{player} shuts down the offense",
		"savage": "{player} creates chaos and mayhem",
	},
}

var genericLines = map[string]string{
	"mild":   "{player} shows up ready to play",
	"medium": "{player} came here to take over",
	"savage": "{player} ends careers for fun",
}

// Renderer produces deterministic lyrics: the same input always yields the
// same text, which keeps the content hash and dedup cache honest.
type Renderer struct{}

func NewRenderer() *Renderer { return &Renderer{} }

func (r *Renderer) Render(in adapter.LyricsInput) (string, error) {
	style, ok := genreStyles[in.Genre]
	if !ok {
		return "", fmt.Errorf("%w: unknown genre %q", domain.ErrInvalidArgument, in.Genre)
	}
	endings, ok := toneEndings[in.Tone]
	if !ok {
		return "", fmt.Errorf("%w: unknown tone %q", domain.ErrInvalidArgument, in.Tone)
	}

	intro := expand(style.intro, in.TeamName, in.OpponentTeamName)
	hook := expand(style.hook, in.TeamName, in.OpponentTeamName)

	yourLines := verseLines(in.YourRoster, in.Tone, false)
	oppLines := verseLines(in.OpponentRoster, in.Tone, true)

	parts := []string{
		"[Intro]",
		intro,
		"",
		"[Verse 1 - Our Champions]",
	}
	parts = append(parts, firstN(yourLines, 4)...)
	parts = append(parts,
		"",
		"[Hook]",
		hook,
		fmt.Sprintf("%s, prepare for the fight!", in.OpponentTeamName),
		"",
		"[Verse 2 - Their Struggle]",
	)
	parts = append(parts, firstN(oppLines, 4)...)
	parts = append(parts,
		"",
		"[Bridge]",
		"When the dust settles and the game is done,",
		fmt.Sprintf("%s stands tall, we're second to none!", in.TeamName),
		"",
		"[Outro]",
		pickEnding(endings, in.TeamName),
		fmt.Sprintf("%s victory, loud and clear!", in.TeamName),
	)

	text := strings.Join(parts, "\n")
	return FilterContent(text, in.RatingMode), nil
}

// verseLines builds one line per roster slot, in roster order. Opponent
// verses get deflating substitutions so the roast lands on the right side.
func verseLines(roster model.Roster, tone string, opponent bool) []string {
	lines := make([]string, 0, len(roster))
	for _, slot := range roster {
		if slot.Player == "" {
			continue
		}
		byTone, ok := positionLines[slot.Position]
		if !ok {
			byTone = genericLines
		}
		tmpl, ok := byTone[tone]
		if !ok {
			tmpl = byTone["medium"]
		}
		line := strings.ReplaceAll(tmpl, "{player}", slot.Player)
		if opponent && tone != "mild" {
			line = deflate(line)
		}
		lines = append(lines, line)
	}
	return lines
}

var deflater = strings.NewReplacer(
	"commands", "struggles to command",
	"burns", "tries to burn",
	"breaks through", "gets stopped at",
	"dominates", "hopes to compete",
	"demolishes", "barely challenges",
)

func deflate(line string) string { return deflater.Replace(line) }

func expand(tmpl, team, opponent string) string {
	s := strings.ReplaceAll(tmpl, "{team}", team)
	return strings.ReplaceAll(s, "{opponent}", opponent)
}

func firstN(lines []string, n int) []string {
	if len(lines) > n {
		return lines[:n]
	}
	return lines
}

// pickEnding is a stable choice seeded by the team name so renders stay
// deterministic across processes.
func pickEnding(endings []string, teamName string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(teamName))
	return endings[int(h.Sum32())%len(endings)]
}
