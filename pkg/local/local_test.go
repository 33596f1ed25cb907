package local

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextSet(t *testing.T) {
	set := NewSet("پیش‌فرض %s", NewTrans(Eng, "default %s"))

	assert.Equal(t, "default %s", set.Text(Eng))
	assert.Equal(t, "پیش‌فرض %s", set.Text(Fas))
	assert.Equal(t, "default x", set.Format(Eng, "x"))
	assert.Equal(t, "پیش‌فرض x", set.DefaultFormat("x"))
}

func TestFormatMultipleArgs(t *testing.T) {
	line := WebResultLine.Format(Eng, 1, "Title", "Snippet", "https://example.com")
	assert.Equal(t, "1. **Title**: Snippet [link](https://example.com)", line)
}

func TestParseLanguage(t *testing.T) {
	assert.Equal(t, Eng, ParseLanguage("en"))
	assert.Equal(t, Fas, ParseLanguage("fa"))
	assert.Equal(t, Fas, ParseLanguage(""))
}
