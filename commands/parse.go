package commands

import (
	"regexp"
	"sort"
	"strings"

	"github.com/google/shlex"
)

var (
	replayURLRe = regexp.MustCompile(`http[s]?://(?:[a-zA-Z]|[0-9]|[$-_@.&+]|[!*(),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+osr`)
	digitsRe    = regexp.MustCompile(`\d+`)
)

// Parse splits a command line into words, honouring quotes ("osu user \"Mr Ekko\"").
// Unbalanced quotes fall back to whitespace splitting.
func Parse(line string) []string {
	words, err := shlex.Split(line)
	if err != nil {
		return strings.Fields(line)
	}
	return words
}

// StripPrefix returns content without the first matching prefix. Longer prefixes are tried
// first so ">>" wins over ">".
func StripPrefix(content string, prefixes []string) (string, bool) {
	ps := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p != "" {
			ps = append(ps, p)
		}
	}
	sort.SliceStable(ps, func(i, j int) bool { return len(ps[i]) > len(ps[j]) })
	for _, p := range ps {
		if strings.HasPrefix(content, p) {
			return strings.TrimSpace(content[len(p):]), true
		}
	}
	return "", false
}

// DetectReplay returns the replay URL for a message: the first attachment if it is an .osr
// file, otherwise the first .osr link in the text.
func DetectReplay(content string, attachments []string) (string, bool) {
	if len(attachments) > 0 {
		first := attachments[0]
		path := first
		if i := strings.IndexAny(path, "?#"); i >= 0 {
			path = path[:i]
		}
		if strings.HasSuffix(strings.ToLower(path), ".osr") {
			return first, true
		}
	}
	if m := replayURLRe.FindString(content); m != "" {
		return m, true
	}
	return "", false
}

// ExtractBeatmapID picks the beatmap id from a beatmap URL or bare id. URLs carry the
// beatmapset id first and the beatmap id second, so the second digit run wins.
func ExtractBeatmapID(s string) (string, bool) {
	m := digitsRe.FindAllString(s, -1)
	switch len(m) {
	case 0:
		return "", false
	case 1:
		return m[0], true
	default:
		return m[1], true
	}
}
