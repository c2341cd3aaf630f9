package stream

import (
	"errors"
	"io"
)

// Fragment is one item of an upstream token stream.
type Fragment struct {
	Text      string
	Citations []string // nil unless the provider sent a citation list with this item
}

// Source yields fragments in order and returns io.EOF once the stream is done.
type Source interface {
	Recv() (Fragment, error)
}

// Consume drains src through a fresh session. A stream error other than io.EOF ends
// the session with a failed document.
func Consume(src Source) Document {
	session := Start()
	for {
		frag, err := src.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return session.Fail(err)
		}
		if err := session.Feed(frag.Text, frag.Citations); err != nil {
			return session.Fail(err)
		}
	}
	doc, err := session.Finish()
	if err != nil {
		return session.Fail(err)
	}
	return doc
}

// SliceSource replays a fixed list of fragments, then Err (or io.EOF when Err is nil).
type SliceSource struct {
	Fragments []Fragment
	Err       error
	pos       int
}

func (s *SliceSource) Recv() (Fragment, error) {
	if s.pos < len(s.Fragments) {
		frag := s.Fragments[s.pos]
		s.pos++
		return frag, nil
	}
	if s.Err != nil {
		return Fragment{}, s.Err
	}
	return Fragment{}, io.EOF
}
