package cli

import "fmt"

// Lex splits query language source into tokens. Names accumulate
// until whitespace or punctuation; '.', '(' and ')' are single-byte
// tokens; string literals keep their surrounding quotes so the parser
// can tell them from names; "//" starts a comment running to end of
// line. The statement terminator ';' is an ordinary name byte here
// and reaches the parser as its own token because scripts surround it
// with whitespace or punctuation boundaries.
func Lex(text string) ([]string, error) {
	var out []string
	var cur []byte

	flush := func() {
		if len(cur) > 0 {
			out = append(out, string(cur))
			cur = cur[:0]
		}
	}

	var enclosure byte
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case enclosure != 0:
			cur = append(cur, c)
			if c == '\\' {
				escaped = true
			} else if c == enclosure {
				if enclosure != '\n' {
					out = append(out, string(cur))
				}
				enclosure = 0
				cur = cur[:0]
			}
		case c == '\'' || c == '"':
			flush()
			cur = append(cur, c)
			enclosure = c
		case c == ' ' || c == '\t' || c == '\n':
			flush()
		case c == '.' || c == '(' || c == ')':
			flush()
			out = append(out, string(c))
		default:
			cur = append(cur, c)
			if len(cur) == 2 && cur[0] == '/' && cur[1] == '/' {
				cur = cur[:0]
				enclosure = '\n'
			}
		}
	}
	flush()

	if enclosure != 0 && enclosure != '\n' {
		return nil, fmt.Errorf("unterminated %c quote", enclosure)
	}
	return out, nil
}
