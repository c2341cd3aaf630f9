package stream

import (
	"fmt"
	"strings"
)

// Status tags how a streaming session ended.
type Status int

const (
	StatusCompleted Status = iota
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

const (
	referencesHeader = "--- References ---"
	failurePrefix    = "Error occurred: "
)

// Document is the final report of a session.
type Document struct {
	Status     Status      `json:"status"`
	Body       string      `json:"body"`
	References []Reference `json:"references,omitempty"`
	Failure    string      `json:"failure,omitempty"`
}

// Failed reports whether the upstream stream broke.
func (d Document) Failed() bool {
	return d.Status == StatusFailed
}

// String renders the body followed by the References section, or the error line for a
// failed session.
func (d Document) String() string {
	if d.Failed() {
		return failurePrefix + d.Failure
	}

	var b strings.Builder
	b.WriteString(d.Body)
	b.WriteString("\n\n")
	b.WriteString(referencesHeader)
	for _, ref := range d.References {
		fmt.Fprintf(&b, "\n[%d] %s", ref.Index, ref.URL)
	}
	return b.String()
}
