package models

// Status is a progress report for the page currently being visited.
type Status struct {
	Message string `json:"message"`
	IsError bool   `json:"isError"`
	IsFinal bool   `json:"isFinal"`

	// Outcome is set on final statuses only.
	Outcome Outcome `json:"outcome,omitempty"`
}

// Outcome classifies a page's final status for the run log and metrics.
type Outcome string

const (
	OutcomeVectorized Outcome = "vectorized"
	OutcomeWarning    Outcome = "warning"
	OutcomeFailed     Outcome = "failed"
)

// Tab is a browser tab with a page loaded in it.
type Tab struct {
	ID  int    `json:"tabId"`
	URL string `json:"url"`
}
