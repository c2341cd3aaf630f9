// Package stream rewrites a token-streamed LLM answer into a citation-numbered report.
//
// A Session is confined to one goroutine from Start to Finish. Concurrent reports need
// one session each.
package stream

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrSessionClosed is returned when a finished or failed session is fed again.
var ErrSessionClosed = errors.New("stream session closed")

var urlPattern = regexp.MustCompile(`https?://[^\s)\]}]+`)

var schemes = []string{"https://", "http://"}

// Session accumulates fragments, replacing every URL with a [n] marker.
type Session struct {
	buf       string
	out       strings.Builder
	citations *citationMap
	closed    bool
}

// Start opens a new session.
func Start() *Session {
	return &Session{citations: newCitationMap()}
}

// Feed appends a fragment. A non-nil citations list replaces the provider-furnished
// citations seen so far.
func (s *Session) Feed(fragment string, citations []string) error {
	if s.closed {
		return ErrSessionClosed
	}
	if citations != nil {
		s.citations.replaceProvider(citations)
	}
	s.buf += fragment
	s.drain(false)
	return nil
}

// Finish flushes the buffer and returns the completed document.
func (s *Session) Finish() (Document, error) {
	if s.closed {
		return Document{}, ErrSessionClosed
	}
	s.drain(true)
	s.closed = true
	return Document{
		Status:     StatusCompleted,
		Body:       s.out.String(),
		References: s.citations.references(),
	}, nil
}

// Fail ends the session with a transport failure. Content received so far is dropped.
func (s *Session) Fail(err error) Document {
	s.closed = true
	s.buf = ""
	detail := "unknown error"
	if err != nil {
		detail = err.Error()
	}
	return Document{Status: StatusFailed, Failure: detail}
}

// drain rewrites URLs in the buffer and moves processed text to the output. Unless
// final, a URL touching the end of the buffer, or a trailing partial scheme, stays
// buffered because the next fragment may extend it.
func (s *Session) drain(final bool) {
	var b strings.Builder
	rest := s.buf
	for {
		loc := urlPattern.FindStringIndex(rest)
		if loc == nil {
			break
		}
		if !final && loc[1] == len(rest) {
			b.WriteString(rest[:loc[0]])
			rest = rest[loc[0]:]
			s.out.WriteString(b.String())
			s.buf = rest
			return
		}
		url := rest[loc[0]:loc[1]]
		b.WriteString(rest[:loc[0]])
		fmt.Fprintf(&b, "[%d]", s.citations.index(url))
		rest = rest[loc[1]:]
	}

	keep := 0
	if !final {
		keep = partialScheme(rest)
	}
	b.WriteString(rest[:len(rest)-keep])
	s.out.WriteString(b.String())
	s.buf = rest[len(rest)-keep:]
}

// partialScheme returns the length of the longest suffix of text that could still grow
// into a URL scheme.
func partialScheme(text string) int {
	longest := len(schemes[0])
	if len(text) < longest {
		longest = len(text)
	}
	for n := longest; n > 0; n-- {
		suffix := text[len(text)-n:]
		for _, scheme := range schemes {
			if strings.HasPrefix(scheme, suffix) {
				return n
			}
		}
	}
	return 0
}
