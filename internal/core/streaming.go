package core

// streaming.go turns raw upload bytes into UTF-8 text one buffer at a time.
//
//   - skipBOM drops a leading UTF-8 byte order mark
//   - UTF8Sanitizer replaces invalid bytes with '?'
//
// decodeText (encoding.go) chains them with charset detection.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skipBOM discards a UTF-8 BOM at the current position of br, if present.
func skipBOM(br *bufio.Reader) {
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
}

// UTF8Sanitizer wraps an io.Reader and replaces every byte that is not part
// of a valid UTF-8 sequence with '?'. Replacing with a single byte keeps the
// output no longer than the input, so sanitizing happens in place.
type UTF8Sanitizer struct {
	r     io.Reader
	carry []byte // start of a rune cut off by the previous read
}

// NewUTF8Sanitizer creates a sanitizing reader.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	return &UTF8Sanitizer{r: r, carry: make([]byte, 0, utf8.UTFMax)}
}

func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n := copy(p, s.carry)
	s.carry = s.carry[:0]

	m, err := s.r.Read(p[n:])
	n += m
	if n == 0 {
		return 0, err
	}
	return s.sanitize(p[:n], err == io.EOF), err
}

// sanitize rewrites buf in place and returns the number of bytes kept.
// Unless atEOF, a partial rune at the end is moved to carry.
func (s *UTF8Sanitizer) sanitize(buf []byte, atEOF bool) int {
	if utf8.Valid(buf) {
		return len(buf)
	}

	w := 0
	for i := 0; i < len(buf); {
		if !atEOF && !utf8.FullRune(buf[i:]) {
			s.carry = append(s.carry, buf[i:]...)
			break
		}
		r, size := utf8.DecodeRune(buf[i:])
		if r == utf8.RuneError && size == 1 {
			buf[w] = '?'
			w++
		} else {
			w += copy(buf[w:], buf[i:i+size])
		}
		i += size
	}
	return w
}

// partialRuneLen returns the length of an incomplete multi-byte rune at the
// end of data, or 0 when data ends on a rune boundary.
func partialRuneLen(data []byte) int {
	for i := 1; i < utf8.UTFMax && i <= len(data); i++ {
		tail := data[len(data)-i:]
		if utf8.RuneStart(tail[0]) {
			if utf8.FullRune(tail) {
				return 0
			}
			return i
		}
	}
	return 0
}
