// Package lyrics fetches synced lyrics from lrclib and follows playback
// through them.
package lyrics

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultLead is subtracted from every timestamp so a line shows slightly
// before it is sung.
const DefaultLead = time.Second

// Line is one timed lyric line.
type Line struct {
	Time time.Duration `json:"time"`
	Text string        `json:"text"`
}

var lrcLine = regexp.MustCompile(`\[(\d{2}):(\d{2}\.\d{2})\](.*)`)

// ParseLRC parses LRC text into lines sorted by time. Lines without a
// [mm:ss.xx] tag are skipped.
func ParseLRC(text string, lead time.Duration) []Line {
	var lines []Line
	for _, raw := range strings.Split(text, "\n") {
		m := lrcLine.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		minutes, _ := strconv.Atoi(m[1])
		seconds, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		at := time.Duration(minutes)*time.Minute + time.Duration(math.Round(seconds*1000))*time.Millisecond - lead
		if at < 0 {
			at = 0
		}
		lines = append(lines, Line{Time: at, Text: strings.TrimSpace(m[3])})
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Time < lines[j].Time })
	return lines
}

// IndexAt returns the line being sung at pos: the line before the first one
// that starts after pos, never less than 0, and the last line once every line
// has started. It returns -1 for no lines.
func IndexAt(lines []Line, pos time.Duration) int {
	if len(lines) == 0 {
		return -1
	}
	next := sort.Search(len(lines), func(i int) bool { return lines[i].Time > pos })
	if next == len(lines) {
		return len(lines) - 1
	}
	return max(0, next-1)
}
