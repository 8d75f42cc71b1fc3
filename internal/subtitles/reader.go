package subtitles

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"

	"subburn/internal/services"
)

// Document is a subtitle file as ordered lines. Every line except possibly the
// last ends in "\n".
type Document []string

// Text joins the document back into file contents.
func (d Document) Text() string {
	return strings.Join(d, "")
}

// fallbackEncodings are tried, in order, after the detected charset.
var fallbackEncodings = []string{"utf-8", "windows-1251", "latin1"}

const (
	byteOrderMark = "\ufeff"
	replacement   = "\ufffd"
)

// ReadLines reads path, resolves its character encoding, and returns the
// decoded lines together with the name of the encoding that succeeded.
func ReadLines(path string) (Document, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read subtitle file: %w", err)
	}
	text, enc, err := decode(data, candidateEncodings(data))
	if err != nil {
		return nil, "", services.Wrap(services.ErrDecode, "subtitles", "read", path, err)
	}
	return SplitLines(text), enc, nil
}

// SplitLines splits text into lines that keep their "\n" terminators.
// "\r\n" and lone "\r" are normalized to "\n" first.
func SplitLines(text string) Document {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if text == "" {
		return Document{}
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return Document(lines)
}

// candidateEncodings returns the detected charset followed by the fallbacks,
// without duplicates.
func candidateEncodings(data []byte) []string {
	candidates := make([]string, 0, len(fallbackEncodings)+1)
	if detected := detectCharset(data); detected != "" {
		candidates = append(candidates, detected)
	}
	candidates = append(candidates, fallbackEncodings...)

	seen := make(map[string]struct{}, len(candidates))
	out := candidates[:0]
	for _, name := range candidates {
		key := canonicalName(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}

// minDetectConfidence is the chardet confidence below which a guess is
// ignored and the fallback order decides.
const minDetectConfidence = 20

func detectCharset(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if isASCII(data) {
		return "utf-8"
	}
	results, err := chardet.NewTextDetector().DetectAll(data)
	if err != nil {
		return ""
	}
	return pickCharset(results)
}

// pickCharset accepts the top guess only when it is confident and not tied.
func pickCharset(results []chardet.Result) string {
	if len(results) == 0 {
		return ""
	}
	top := results[0]
	if top.Confidence < minDetectConfidence {
		return ""
	}
	if len(results) > 1 && results[1].Confidence >= top.Confidence {
		return ""
	}
	return strings.ToLower(top.Charset)
}

func decode(data []byte, candidates []string) (string, string, error) {
	var failures []string
	for _, name := range candidates {
		text, err := decodeAs(data, name)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		return strings.TrimPrefix(text, byteOrderMark), name, nil
	}
	return "", "", fmt.Errorf("no candidate encoding decoded the file (%s)", strings.Join(failures, "; "))
}

func decodeAs(data []byte, name string) (string, error) {
	enc, err := lookupEncoding(name)
	if err != nil {
		return "", err
	}
	if enc == unicode.UTF8 {
		if !utf8.Valid(data) {
			return "", fmt.Errorf("invalid utf-8 sequence")
		}
		return string(data), nil
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	if bytes.Count(out, []byte(replacement)) > bytes.Count(data, []byte(replacement)) {
		return "", fmt.Errorf("undefined byte sequence")
	}
	return string(out), nil
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch canonicalName(name) {
	case "utf-8":
		return unicode.UTF8, nil
	case "windows-1251":
		return charmap.Windows1251, nil
	case "iso-8859-1":
		return charmap.ISO8859_1, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc, nil
}

func canonicalName(name string) string {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "utf8", "utf-8", "ascii", "us-ascii":
		return "utf-8"
	case "cp1251", "windows-1251":
		return "windows-1251"
	case "latin1", "latin-1", "iso-8859-1", "iso_8859-1":
		return "iso-8859-1"
	default:
		return n
	}
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
