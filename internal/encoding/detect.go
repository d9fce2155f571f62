// Package encoding normalizes bank statement files to UTF-8.
package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	xenc "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// sniffSize is how much of the file detection looks at.
const sniffSize = 4096

type bom struct {
	prefix  []byte
	charset string
	decoder func() *xenc.Decoder
}

var boms = []bom{
	{[]byte{0xEF, 0xBB, 0xBF}, "UTF-8", nil},
	{[]byte{0xFF, 0xFE}, "UTF-16LE", unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder},
	{[]byte{0xFE, 0xFF}, "UTF-16BE", unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder},
}

// legacy maps chardet results to decoders. Brazilian banks still export Latin-1 and
// Windows-1252.
var legacy = map[string]*charmap.Charmap{
	"ISO-8859-1":   charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
	"ISO-8859-15":  charmap.ISO8859_15,
	"ISO-8859-9":   charmap.ISO8859_9,
}

// fallback is used when nothing else matches.
const fallback = "windows-1252"

// UTF8Reader returns a reader yielding r's content as UTF-8 and the charset it was decoded
// from. A UTF-8 BOM is dropped.
func UTF8Reader(r io.Reader) (io.Reader, string, error) {
	br := bufio.NewReaderSize(r, sniffSize)

	head, err := br.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, "", fmt.Errorf("peek: %w", err)
	}

	for _, b := range boms {
		if !bytes.HasPrefix(head, b.prefix) {
			continue
		}

		if b.decoder == nil {
			_, _ = br.Discard(len(b.prefix))
			return br, b.charset, nil
		}

		return transform.NewReader(br, b.decoder()), b.charset, nil
	}

	if utf8.Valid(head) {
		return br, "UTF-8", nil
	}

	charset := Detect(head)
	if charset == "UTF-8" {
		return br, charset, nil
	}

	cm, ok := legacy[charset]
	if !ok {
		cm, charset = charmap.Windows1252, fallback
	}

	return transform.NewReader(br, cm.NewDecoder()), charset, nil
}

// Detect guesses the charset of sample, returning "" when undecided.
func Detect(sample []byte) string {
	res, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil {
		return ""
	}

	return res.Charset
}
