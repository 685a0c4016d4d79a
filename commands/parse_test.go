package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	assert.Equal(t, []string{"osu", "user", "Mr Ekko", "stats"}, Parse(`osu user "Mr Ekko" stats`))
	assert.Equal(t, []string{"osu", "user", `"broken`}, Parse(`osu user "broken`))
	assert.Empty(t, Parse("   "))
}

func TestStripPrefix(t *testing.T) {
	tests := []struct {
		content  string
		prefixes []string
		want     string
		ok       bool
	}{
		{content: ">>help", prefixes: []string{">", ">>"}, want: "help", ok: true},
		{content: ">help", prefixes: []string{">", ">>"}, want: "help", ok: true},
		{content: "<@42>  osu user", prefixes: []string{"", "<@42>"}, want: "osu user", ok: true},
		{content: "help", prefixes: []string{">>", ""}, ok: false},
	}
	for _, tt := range tests {
		got, ok := StripPrefix(tt.content, tt.prefixes)
		assert.Equal(t, tt.ok, ok, tt.content)
		assert.Equal(t, tt.want, got, tt.content)
	}
}

func TestDetectReplay(t *testing.T) {
	url, ok := DetectReplay("", []string{"https://cdn.discordapp.com/a/b/play.OSR?ex=1"})
	assert.True(t, ok)
	assert.Equal(t, "https://cdn.discordapp.com/a/b/play.OSR?ex=1", url)

	_, ok = DetectReplay("look", []string{"https://cdn.discordapp.com/a/b/pic.png", "https://cdn/x.osr"})
	assert.False(t, ok, "only the first attachment counts")

	url, ok = DetectReplay("here https://example.com/r/1.osr", nil)
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/r/1.osr", url)
}

func TestExtractBeatmapID(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "https://osu.ppy.sh/beatmapsets/1#osu/75", want: "75", ok: true},
		{in: "75", want: "75", ok: true},
		{in: "no digits", ok: false},
	}
	for _, tt := range tests {
		got, ok := ExtractBeatmapID(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
