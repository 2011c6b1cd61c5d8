package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultMaxLineSize bounds one console command line.
	DefaultMaxLineSize = 1024
	// DefaultMaxParamsSize bounds the JSON params of a node creation request.
	DefaultMaxParamsSize = 4096
	// MaxArgs bounds the words of one console command.
	MaxArgs = 64

	// EnvMaxLineSize overrides DefaultMaxLineSize.
	EnvMaxLineSize = "WEFT_MAX_LINE_SIZE"
	// EnvMaxParamsSize overrides DefaultMaxParamsSize.
	EnvMaxParamsSize = "WEFT_MAX_PARAMS_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
	ErrTooManyArgs   = errors.New("too many arguments")
)

// SanitizeLine validates one console command line. Tabs become spaces and
// every other control character (ANSI escapes, NUL, line breaks) is dropped,
// so a command never spans lines or repaints the terminal.
func SanitizeLine(line string) (string, error) {
	clean, err := sanitize(line, limit(EnvMaxLineSize, DefaultMaxLineSize), func(r rune) (rune, bool) {
		if r == '\t' {
			return ' ', true
		}
		return r, false
	})
	if err != nil {
		return "", err
	}
	if n := len(strings.Fields(clean)); n > MaxArgs {
		return "", fmt.Errorf("%w: %d words, limit %d", ErrTooManyArgs, n, MaxArgs)
	}
	return clean, nil
}

// SanitizeParams validates a JSON params document. JSON whitespace is kept;
// other control characters are dropped.
func SanitizeParams(raw string) (string, error) {
	return sanitize(raw, limit(EnvMaxParamsSize, DefaultMaxParamsSize), func(r rune) (rune, bool) {
		return r, r == '\n' || r == '\t' || r == '\r'
	})
}

// sanitize rejects oversized or malformed input and filters control
// characters through keep, which may also rewrite them.
func sanitize(input string, max int, keep func(rune) (rune, bool)) (string, error) {
	if len(input) > max {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), max)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}
	if strings.IndexFunc(input, unicode.IsControl) < 0 {
		return input, nil
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unicode.IsControl(r) {
			b.WriteRune(r)
			continue
		}
		if out, ok := keep(r); ok {
			b.WriteRune(out)
		}
	}
	return b.String(), nil
}

func limit(env string, def int) int {
	if val := os.Getenv(env); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return def
}
