package options

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/dtnitsch/corpus-collector/models"
)

func TestResolve(t *testing.T) {
	opts, ok := Resolve(models.FormState{
		BaseURL:      "http://localhost:8000/",
		Pages:        "  a.html\n\n b.html  \n\t\n",
		Ruleset:      "overlay",
		Wait:         "3",
		RetryOnError: true,
	})
	require.True(t, ok)

	assert.Equal(t, DefaultTimeout, opts.Timeout)
	assert.Equal(t, []models.URLEntry{
		{URL: "http://localhost:8000/a.html"},
		{URL: "http://localhost:8000/b.html"},
	}, opts.URLs)
	assert.Equal(t, models.OtherOptions{TraineeID: "overlay", WaitSeconds: 3, RetryOnError: true}, opts.OtherOptions)
}

func TestResolve_NoPages(t *testing.T) {
	for _, pages := range []string{"", "\n", "   \n\t\n  "} {
		_, ok := Resolve(models.FormState{BaseURL: "http://x/", Pages: pages, Wait: "1"})
		assert.False(t, ok, "pages %q", pages)
	}
}

func TestResolve_FilenameLeftUnset(t *testing.T) {
	opts, ok := Resolve(models.FormState{Pages: "one"})
	require.True(t, ok)
	assert.Empty(t, opts.URLs[0].Filename)
	assert.Equal(t, "one", opts.URLs[0].URL)
}

func TestParseWait(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"0", 0},
		{"5", 5},
		{" 7", 7},
		{"12s", 12},
		{"-3", -3},
		{"+4", 4},
		{"abc", 0},
		{"", 0},
		{"3.9", 3},
		{"2147483647", math.MaxInt32},
		{"2147483650", math.MaxInt32},
		{"99999999999", math.MaxInt32},
		{"-99999999999", -math.MaxInt32},
		{"123456789012345678901234567890s", math.MaxInt32},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseWait(tt.in), "input %q", tt.in)
	}
}

func TestResolve_URLCountMatchesNonBlankLines(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lines := rapid.SliceOf(rapid.SampledFrom([]string{"", " ", "\t", "a", "b/c", " d ", "page.html"})).Draw(t, "lines")

		nonBlank := 0
		for _, line := range lines {
			if strings.TrimSpace(line) != "" {
				nonBlank++
			}
		}

		opts, ok := Resolve(models.FormState{BaseURL: "http://h/", Pages: strings.Join(lines, "\n")})
		if nonBlank == 0 {
			if ok {
				t.Fatalf("expected no work for %q", lines)
			}
			return
		}
		if !ok {
			t.Fatalf("expected options for %q", lines)
		}
		if len(opts.URLs) != nonBlank {
			t.Fatalf("got %d urls, want %d", len(opts.URLs), nonBlank)
		}
		for _, u := range opts.URLs {
			if !strings.HasPrefix(u.URL, "http://h/") {
				t.Fatalf("url %q missing base prefix", u.URL)
			}
		}
	})
}
