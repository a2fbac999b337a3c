// Package codec encodes arbitrary byte content into a syntax-inert
// alphabet so it can be spliced literally into generated SQL text and
// into the JSON tag blob without escaping.
//
// The encoding is uppercase hex. It is byte-order preserving: for any
// byte strings a < b, Encode(a) < Encode(b), so ORDER BY over encoded
// columns matches byte order over the decoded values.
//
// Decode accepts only text produced by Encode. Anything else (odd
// length, lowercase digits, non-hex bytes) is rejected rather than
// guessed at, since a lossy decode would silently corrupt stored
// labels and tags.
package codec

import "fmt"

const alphabet = "0123456789ABCDEF"

// Encode maps arbitrary bytes (including empty and NUL) to uppercase hex.
func Encode(b []byte) string {
	out := make([]byte, 0, len(b)*2)
	for _, c := range b {
		out = append(out, alphabet[c>>4], alphabet[c&0x0F])
	}
	return string(out)
}

// EncodeString is Encode over the raw bytes of s.
func EncodeString(s string) string {
	return Encode([]byte(s))
}

// DecodeError reports text that was not produced by Encode.
type DecodeError struct {
	Text   string
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("codec: cannot decode %q at offset %d: %s", e.Text, e.Offset, e.Reason)
}

// Decode is the exact inverse of Encode.
func Decode(text string) ([]byte, error) {
	if len(text)%2 != 0 {
		return nil, &DecodeError{Text: text, Offset: len(text), Reason: "odd length"}
	}
	out := make([]byte, 0, len(text)/2)
	for i := 0; i < len(text); i += 2 {
		hi, ok := nibble(text[i])
		if !ok {
			return nil, &DecodeError{Text: text, Offset: i, Reason: "not an uppercase hex digit"}
		}
		lo, ok := nibble(text[i+1])
		if !ok {
			return nil, &DecodeError{Text: text, Offset: i + 1, Reason: "not an uppercase hex digit"}
		}
		out = append(out, hi<<4|lo)
	}
	return out, nil
}

// DecodeString is Decode returning a string.
func DecodeString(text string) (string, error) {
	b, err := Decode(text)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func nibble(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
