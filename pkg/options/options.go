// Package options turns the raw run form into RunOptions.
package options

import (
	"math"
	"strings"
	"time"

	"github.com/dtnitsch/corpus-collector/models"
)

// DefaultTimeout is the per-page timeout handed to the driver. The collector's
// own retry loop bounds page time, so this is effectively no limit.
const DefaultTimeout = 9999 * time.Second

// Resolve builds RunOptions from form state. It reports false when no page
// remains after discarding blank lines; callers must then not start a run.
func Resolve(form models.FormState) (models.RunOptions, bool) {
	urls := PageURLs(form.BaseURL, form.Pages)
	if len(urls) == 0 {
		return models.RunOptions{}, false
	}

	return models.RunOptions{
		Timeout: DefaultTimeout,
		URLs:    urls,
		OtherOptions: models.OtherOptions{
			TraineeID:    form.Ruleset,
			WaitSeconds:  ParseWait(form.Wait),
			RetryOnError: form.RetryOnError,
		},
	}, true
}

// PageURLs trims each line of pages, drops blank ones and prefixes the rest with baseURL.
func PageURLs(baseURL, pages string) []models.URLEntry {
	var urls []models.URLEntry
	for _, line := range strings.Split(pages, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		urls = append(urls, models.URLEntry{URL: baseURL + line})
	}
	return urls
}

// maxWaitSeconds clamps ParseWait so the wait still fits a time.Duration.
const maxWaitSeconds = math.MaxInt32

// ParseWait reads a leading, optionally signed, integer from s after skipping
// leading whitespace ("12s" is 12). Input without a leading integer yields 0.
// Negative values are returned as-is; magnitudes above maxWaitSeconds are clamped.
func ParseWait(s string) int {
	s = strings.TrimLeft(s, " \t\r\n")
	sign := 1
	if s != "" && (s[0] == '-' || s[0] == '+') {
		if s[0] == '-' {
			sign = -1
		}
		s = s[1:]
	}

	var n int64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int64(c-'0')
		if n > maxWaitSeconds {
			n = maxWaitSeconds
		}
	}
	return sign * int(n)
}
