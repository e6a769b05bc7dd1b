package llm

import (
	"bytes"
	"encoding/json"
)

// arrayScanner incrementally extracts completed elements of a top-level JSON
// array from content that arrives in arbitrary chunks. Anything before the
// opening '[' is skipped, so models that preface the array with prose do not
// break decoding.
type arrayScanner struct {
	started  bool
	finished bool
	mode     scanMode
	depth    int
	inString bool
	escaped  bool
	collect  []byte
}

type scanMode int

const (
	scanIdle      scanMode = iota // between elements
	scanContainer                 // inside an object or array element
	scanString                    // inside a string element
	scanScalar                    // inside a number/bool/null element
)

// feed consumes one content chunk and returns every element completed by it.
func (s *arrayScanner) feed(chunk string) []json.RawMessage {
	var out []json.RawMessage
	for i := 0; i < len(chunk) && !s.finished; i++ {
		b := chunk[i]
		if !s.started {
			if b == '[' {
				s.started = true
			}
			continue
		}

		switch s.mode {
		case scanIdle:
			switch {
			case b == ']':
				s.finished = true
			case b == ',' || b == ' ' || b == '\t' || b == '\n' || b == '\r':
			case b == '{' || b == '[':
				s.mode = scanContainer
				s.depth = 1
				s.inString = false
				s.collect = append(s.collect[:0], b)
			case b == '"':
				s.mode = scanString
				s.escaped = false
				s.collect = append(s.collect[:0], b)
			default:
				s.mode = scanScalar
				s.collect = append(s.collect[:0], b)
			}

		case scanContainer:
			s.collect = append(s.collect, b)
			if s.inString {
				switch {
				case s.escaped:
					s.escaped = false
				case b == '\\':
					s.escaped = true
				case b == '"':
					s.inString = false
				}
				continue
			}
			switch b {
			case '"':
				s.inString = true
			case '{', '[':
				s.depth++
			case '}', ']':
				s.depth--
				if s.depth == 0 {
					out = append(out, s.take())
				}
			}

		case scanString:
			s.collect = append(s.collect, b)
			switch {
			case s.escaped:
				s.escaped = false
			case b == '\\':
				s.escaped = true
			case b == '"':
				out = append(out, s.take())
			}

		case scanScalar:
			if b == ',' || b == ']' {
				if el := bytes.TrimSpace(s.collect); len(el) > 0 {
					out = append(out, append(json.RawMessage(nil), el...))
				}
				s.mode = scanIdle
				if b == ']' {
					s.finished = true
				}
			} else {
				s.collect = append(s.collect, b)
			}
		}
	}
	return out
}

func (s *arrayScanner) take() json.RawMessage {
	el := append(json.RawMessage(nil), s.collect...)
	s.mode = scanIdle
	s.collect = s.collect[:0]
	return el
}
