package tokens

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Counter measures text in model tokens.
type Counter interface {
	Count(text string) int
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewCounter loads the named BPE encoding. The ranks are fetched once and
// cached by tiktoken-go; callers that cannot reach them should fall back to
// Estimator.
func NewCounter(encoding string) (Counter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %s: %w", encoding, err)
	}
	return tiktokenCounter{enc: enc}, nil
}

func (c tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// Estimator approximates token counts from rune counts. Persian text averages
// well under three runes per token, so it errs on the large side.
type Estimator struct {
	RunesPerToken int
}

func (e Estimator) Count(text string) int {
	per := e.RunesPerToken
	if per <= 0 {
		per = 3
	}
	n := utf8.RuneCountInString(text)
	return (n + per - 1) / per
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) (string, bool) {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s, false
	}
	runes := []rune(s)
	return string(runes[:n]), true
}
