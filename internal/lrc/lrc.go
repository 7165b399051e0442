// Package lrc builds and parses the lyric-timing file format: one line per
// entry, pattern [MM:SS.CC]<line text>, zero-padded two-digit fields.
package lrc

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Line is one parsed entry: a playback offset in seconds and the lyric text.
type Line struct {
	Time float64
	Text string
}

var linePattern = regexp.MustCompile(`^\[(\d{2}):(\d{2})\.(\d{2})\](.*)$`)

// Build assigns naive, evenly spaced timestamps to the non-empty lines of
// lyrics over durationSec. Line i gets floor(i * durationSec / lineCount)
// seconds. Bracketed section headers ("[Verse 1]") are stamped like any other
// line. Zero lines yields an empty string, never a division by zero.
func Build(lyrics string, durationSec int) string {
	var lines []string
	for _, l := range strings.Split(lyrics, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return ""
	}

	timePerLine := float64(durationSec) / float64(len(lines))
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		ts := int(float64(i) * timePerLine)
		out = append(out, fmt.Sprintf("[%02d:%02d.00]%s", ts/60, ts%60, line))
	}
	return strings.Join(out, "\n")
}

// Parse extracts every [MM:SS.CC]text entry and returns them sorted ascending
// by time. Lines that do not match the pattern are skipped silently; the
// input may be a partial or hand-edited file.
func Parse(content string) []Line {
	var parsed []Line
	for _, raw := range strings.Split(content, "\n") {
		m := linePattern.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		minutes, _ := strconv.Atoi(m[1])
		seconds, _ := strconv.Atoi(m[2])
		centis, _ := strconv.Atoi(m[3])
		parsed = append(parsed, Line{
			Time: float64(minutes)*60 + float64(seconds) + float64(centis)/100,
			Text: m[4],
		})
	}
	sort.SliceStable(parsed, func(i, j int) bool { return parsed[i].Time < parsed[j].Time })
	return parsed
}
