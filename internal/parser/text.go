package parser

import (
	"os"
	"strings"
	"unicode/utf8"

	seekderrors "github.com/seekd/seekd/internal/errors"
)

// parseText reads a plain-text file. Non-UTF-8 content is reinterpreted as
// Latin-1 so legacy files still index rather than fail.
func (p *Parser) parseText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", seekderrors.Wrap(seekderrors.ErrCodeParseFailed, err)
	}
	if !utf8.Valid(data) {
		return strings.TrimSpace(latin1ToString(data)), nil
	}
	return strings.TrimSpace(string(data)), nil
}

// latin1ToString maps each byte to the Unicode code point of the same value.
func latin1ToString(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		b.WriteRune(rune(c))
	}
	return b.String()
}
