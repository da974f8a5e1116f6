package stream

import (
	"bytes"
)

// Splitter turns arbitrarily fragmented chunks into complete newline-terminated
// lines. One Splitter serves exactly one upstream connection.
type Splitter struct {
	carry []byte
}

func NewSplitter() *Splitter {
	return &Splitter{}
}

// Feed appends chunk to the carry-over buffer and returns every complete line,
// without its terminator. The trailing fragment is kept for the next call.
// Returned slices are copies and stay valid after later calls.
func (s *Splitter) Feed(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}

	if bytes.IndexByte(chunk, '\n') < 0 {
		s.carry = append(s.carry, chunk...)
		return nil
	}

	buf := append(s.carry, chunk...)
	var lines []string
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(bytes.TrimSuffix(buf[:i], []byte{'\r'})))
		buf = buf[i+1:]
	}

	s.carry = append(s.carry[:0:0], buf...)
	return lines
}

// Pending is the length of the incomplete record held back. Whatever remains
// when the upstream ends is discarded.
func (s *Splitter) Pending() int {
	return len(s.carry)
}

// CountLines counts record terminators in a raw chunk.
func CountLines(chunk []byte) int {
	return bytes.Count(chunk, []byte{'\n'})
}
