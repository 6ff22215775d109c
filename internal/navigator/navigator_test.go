package navigator

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestParseOutcome(t *testing.T) {
	tests := []struct {
		name string
		text string
		kind OutcomeKind
	}{
		{name: "Success token", text: "SUCCESS: 地址已设置", kind: OutcomeSuccess},
		{name: "Lowercase success", text: "task finished with success", kind: OutcomeSuccess},
		{name: "Captcha token", text: "CAPTCHA", kind: OutcomeCaptcha},
		{name: "Captcha in prose", text: "遇到滑块，captcha encountered", kind: OutcomeCaptcha},
		{name: "Plain failure", text: "FAILED: 找不到搜索框", kind: OutcomeFailed},
		{name: "Empty", text: "", kind: OutcomeFailed},
		{name: "Success wins over captcha", text: "SUCCESS despite earlier CAPTCHA", kind: OutcomeSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, ParseOutcome(tt.text).Kind)
		})
	}
}

func TestParseOutcomeTruncatesDetail(t *testing.T) {
	outcome := ParseOutcome("FAILED: " + strings.Repeat("x", 500))
	assert.Equal(t, OutcomeFailed, outcome.Kind)
	assert.Len(t, outcome.Detail, 200)
}

func TestParseOutcomeTruncationKeepsRunesIntact(t *testing.T) {
	outcome := ParseOutcome("FAILED: " + strings.Repeat("验证失败。", 100))
	assert.Equal(t, OutcomeFailed, outcome.Kind)
	assert.True(t, utf8.ValidString(outcome.Detail), "truncation must not split a multibyte rune")
	assert.Len(t, []rune(outcome.Detail), 200)
}

func TestNoop(t *testing.T) {
	var nav Navigator = Noop{}
	assert.False(t, nav.Available())

	outcome, err := nav.Attempt(context.Background(), Task{Text: "设置地址"})
	assert.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome.Kind)
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		action string
		arg    string
		rest   string
	}{
		{
			name:   "Navigate",
			reply:  "NAVIGATE: https://h5.waimai.meituan.com",
			action: "NAVIGATE",
			arg:    "https://h5.waimai.meituan.com",
		},
		{
			name:   "Click",
			reply:  `CLICK: [class*="location"]`,
			action: "CLICK",
			arg:    `[class*="location"]`,
		},
		{
			name:   "Type with separator",
			reply:  `TYPE: input[placeholder*="搜索"] | 南坪西路`,
			action: "TYPE",
			arg:    `input[placeholder*="搜索"]`,
			rest:   "南坪西路",
		},
		{
			name:   "Type without separator keeps remainder as arg",
			reply:  "TYPE: 南坪西路",
			action: "TYPE",
			arg:    "南坪西路",
		},
		{
			name:   "Done keeps nested colon intact",
			reply:  "DONE: SUCCESS: 地址已设置为南坪",
			action: "DONE",
			arg:    "SUCCESS: 地址已设置为南坪",
		},
		{
			name:   "Leading blank lines skipped",
			reply:  "\n\n  PRESS: Enter\nCLICK: .ignored",
			action: "PRESS",
			arg:    "Enter",
		},
		{
			name:   "Bare verb without colon",
			reply:  "done",
			action: "DONE",
		},
		{
			name:  "Empty reply",
			reply: "\n  \n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, arg, rest := parseAction(tt.reply)
			assert.Equal(t, tt.action, action)
			assert.Equal(t, tt.arg, arg)
			assert.Equal(t, tt.rest, rest)
		})
	}
}
