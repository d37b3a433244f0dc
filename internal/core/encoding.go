package core

import (
	"bufio"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// sniffSize is how much input charset detection looks at.
const sniffSize = 4096

// legacyCharsets are the single-byte encodings decoded to UTF-8 when the
// detector reports them. Keys are lowercase chardet charset names.
var legacyCharsets = map[string]encoding.Encoding{
	"windows-1252": charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
	"windows-1251": charmap.Windows1251,
}

// decodeText returns a reader yielding UTF-8 text for r.
//
// A leading BOM is dropped. If the first sniffSize bytes are not valid UTF-8
// the charset is detected and, for the known legacy encodings, decoded.
// Whatever invalid bytes remain are replaced with '?'.
func decodeText(r io.Reader) io.Reader {
	br := bufio.NewReaderSize(r, sniffSize)
	skipBOM(br)

	peek, _ := br.Peek(sniffSize)
	if enc := detectLegacyCharset(peek); enc != nil {
		return transform.NewReader(br, enc.NewDecoder())
	}
	return NewUTF8Sanitizer(br)
}

// detectLegacyCharset returns the encoding of sample when it is not UTF-8
// and the detector recognises one of legacyCharsets. Returns nil otherwise.
func detectLegacyCharset(sample []byte) encoding.Encoding {
	if len(sample) == 0 {
		return nil
	}
	// A multi-byte rune may be cut at the end of the sample
	if n := partialRuneLen(sample); n > 0 && n < len(sample) {
		sample = sample[:len(sample)-n]
	}
	if utf8.Valid(sample) {
		return nil
	}

	res, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil || res == nil {
		return nil
	}
	return legacyCharsets[strings.ToLower(res.Charset)]
}
