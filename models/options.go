package models

import "time"

// FormState holds the raw run inputs exactly as the user entered them.
type FormState struct {
	BaseURL      string
	Pages        string // newline-separated page list
	Ruleset      string
	Wait         string // seconds, parsed leniently
	RetryOnError bool
}

// URLEntry is one page to visit. Filename is left empty for the driver to assign.
type URLEntry struct {
	Filename string `json:"filename,omitempty" yaml:"filename,omitempty"`
	URL      string `json:"url" yaml:"url"`
}

// OtherOptions carries the collector-specific part of a run's options.
type OtherOptions struct {
	TraineeID    string `json:"traineeId" yaml:"trainee_id"`
	WaitSeconds  int    `json:"wait" yaml:"wait"`
	RetryOnError bool   `json:"retryOnError" yaml:"retry_on_error"`
}

// RunOptions is created once per run and is read-only afterwards.
// URLs is never empty.
type RunOptions struct {
	Timeout      time.Duration `json:"timeout" yaml:"timeout"`
	URLs         []URLEntry    `json:"urls" yaml:"urls"`
	OtherOptions OtherOptions  `json:"otherOptions" yaml:"other_options"`
}
