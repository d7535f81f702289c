// Package printable turns raw bytes received from a peer into something safe
// to log: valid text is decoded to NFC-normalized UTF-8, anything else is
// base64-encoded.
//
// Text in other encodings is decoded with the supplied charset label, or with
// the charset github.com/saintfish/chardet detects when no label is given.
// After decoding, content is treated as text only if more than 95% of the
// first 1024 runes are printable or whitespace.
package printable

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"unicode"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"
)

// printabilityCheckLen bounds how many bytes the printability check samples.
const printabilityCheckLen = 1024

// Payload is a loggable rendering of raw bytes.
type Payload struct {
	Base64          bool   `json:"base64,omitempty"`
	Charset         string `json:"charset,omitempty"`
	Content         string `json:"content"`
	Length          int64  `json:"length"`
	TruncatedLength int64  `json:"truncatedLength,omitempty"`
}

// Bytes converts raw into a Payload, guessing the charset when it is not UTF-8.
// It returns nil for empty input.
func Bytes(raw []byte) *Payload {
	return Decode(raw, "")
}

// Decode converts raw into a Payload using charsetLabel (e.g. "latin1") as a
// hint. An empty or unknown label falls back to detection.
func Decode(raw []byte, charsetLabel string) *Payload {
	if len(raw) == 0 {
		return nil
	}

	text, label, ok := toUTF8(raw, charsetLabel)
	if !ok || !looksPrintable(text) {
		return binary(raw)
	}

	text = norm.NFC.Bytes(text)

	return &Payload{
		Charset: label,
		Content: string(text),
		Length:  int64(len(text)),
	}
}

func binary(raw []byte) *Payload {
	return &Payload{
		Base64:  true,
		Content: base64.StdEncoding.EncodeToString(raw),
		Length:  int64(len(raw)),
	}
}

// toUTF8 decodes raw to UTF-8 and reports the charset it used.
func toUTF8(raw []byte, label string) ([]byte, string, bool) {
	if label != "" {
		if out, ok := decodeWith(raw, label); ok {
			return out, label, true
		}
	}

	if utf8.Valid(raw) {
		return raw, "utf-8", true
	}

	best, err := chardet.NewTextDetector().DetectBest(raw)
	if err != nil {
		return raw, "", false
	}

	out, ok := decodeWith(raw, best.Charset)

	return out, best.Charset, ok
}

func decodeWith(raw []byte, label string) ([]byte, bool) {
	r, err := charset.NewReaderLabel(label, bytes.NewReader(raw))
	if err != nil {
		return nil, false
	}

	out, err := io.ReadAll(r)
	if err != nil || !utf8.Valid(out) {
		return nil, false
	}

	return out, true
}

func looksPrintable(text []byte) bool {
	sample := text
	if len(sample) > printabilityCheckLen {
		sample = sample[:printabilityCheckLen]
	}

	printable, total := 0, 0

	for len(sample) > 0 {
		r, size := utf8.DecodeRune(sample)
		sample = sample[size:]
		total++

		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}

	return total > 0 && float64(printable)/float64(total) > 0.95 //nolint:mnd
}

func (p *Payload) String() string {
	if p == nil {
		return "<nil>"
	}

	if p.IsTruncated() {
		return p.Content + "…"
	}

	return p.Content
}

// LogValue renders the payload as a group; JSON text is expanded into
// nested attributes.
func (p *Payload) LogValue() slog.Value {
	if p == nil {
		return slog.StringValue("<nil>")
	}

	attrs := []slog.Attr{slog.String("raw", p.String())}

	if !p.Base64 && json.Valid([]byte(p.Content)) {
		var v any
		if err := json.Unmarshal([]byte(p.Content), &v); err == nil {
			attrs = append(attrs, slog.Any("json", jsonToSlogValue(v)))
		}
	}

	attrs = append(attrs,
		slog.Bool("base64", p.Base64),
		slog.Int64("size", p.Length))

	if p.IsTruncated() {
		attrs = append(attrs, slog.Int64("sizeTruncated", p.TruncatedLength))
	}

	return slog.GroupValue(attrs...)
}

func jsonToSlogValue(v any) slog.Value {
	switch value := v.(type) {
	case map[string]any:
		attrs := make([]slog.Attr, 0, len(value))
		for k, val := range value {
			attrs = append(attrs, slog.Attr{Key: k, Value: jsonToSlogValue(val)})
		}

		return slog.GroupValue(attrs...)
	case []any:
		attrs := make([]slog.Attr, len(value))
		for i, val := range value {
			attrs[i] = slog.Attr{Key: fmt.Sprint(i), Value: jsonToSlogValue(val)}
		}

		return slog.GroupValue(attrs...)
	case string:
		return slog.StringValue(value)
	case float64:
		return slog.Float64Value(value)
	case bool:
		return slog.BoolValue(value)
	default:
		return slog.AnyValue(value)
	}
}

// ContentBytes returns the decoded bytes, undoing base64 if needed.
func (p *Payload) ContentBytes() ([]byte, error) {
	if p == nil {
		return nil, nil
	}

	if p.Base64 {
		return base64.StdEncoding.DecodeString(p.Content)
	}

	return []byte(p.Content), nil
}

// IsTruncated reports whether Truncate cut the content.
func (p *Payload) IsTruncated() bool {
	return p != nil && p.TruncatedLength > 0 && p.TruncatedLength < p.Length
}

// Truncate returns a copy holding at most size bytes of content. Text is cut
// on a rune boundary. The receiver is returned unchanged when it already fits.
func (p *Payload) Truncate(size int) (*Payload, error) {
	if p == nil || size < 0 {
		return p, nil
	}

	raw, err := p.ContentBytes()
	if err != nil {
		return nil, fmt.Errorf("error getting content bytes: %w", err)
	}

	if len(raw) <= size {
		return p, nil
	}

	out := *p
	cut := raw[:size]

	if p.Base64 {
		out.Content = base64.StdEncoding.EncodeToString(cut)
	} else {
		for len(cut) > 0 && !utf8.Valid(cut) {
			cut = cut[:len(cut)-1]
		}

		out.Content = string(cut)
	}

	out.TruncatedLength = int64(len(cut))

	return &out, nil
}
