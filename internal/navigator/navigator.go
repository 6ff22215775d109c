// Package navigator models the optional AI-planning capability: a task
// description goes in, a terminal outcome comes out. Its internal reasoning
// is opaque to the rest of the crawler, which only parses the literal
// SUCCESS / CAPTCHA tokens from whatever text comes back.
package navigator

import (
	"context"
	"strings"
)

// Task is one bounded navigation assignment.
type Task struct {
	Text     string
	MaxSteps int
}

type OutcomeKind int

const (
	OutcomeFailed OutcomeKind = iota
	OutcomeSuccess
	OutcomeCaptcha
)

// Outcome is the terminal result of a navigator attempt.
type Outcome struct {
	Kind   OutcomeKind
	Detail string
}

// Navigator executes a natural-language task against a live page. The core
// must tolerate it being absent or misconfigured; callers check Available
// and fall back to the deterministic path on anything but success.
type Navigator interface {
	Available() bool
	Attempt(ctx context.Context, task Task) (Outcome, error)
}

// ParseOutcome scans free-form response text for the literal outcome
// tokens. Anything without SUCCESS or CAPTCHA is a failure, with the text
// retained as detail.
func ParseOutcome(text string) Outcome {
	upper := strings.ToUpper(text)
	detail := strings.TrimSpace(text)
	if runes := []rune(detail); len(runes) > 200 {
		detail = string(runes[:200])
	}
	switch {
	case strings.Contains(upper, "SUCCESS"):
		return Outcome{Kind: OutcomeSuccess, Detail: detail}
	case strings.Contains(upper, "CAPTCHA"):
		return Outcome{Kind: OutcomeCaptcha, Detail: detail}
	default:
		return Outcome{Kind: OutcomeFailed, Detail: detail}
	}
}

// Noop is the null-object navigator: never available, always unavailable
// as an outcome. It keeps the deterministic path the only one in play when
// no AI backend is configured.
type Noop struct{}

func (Noop) Available() bool { return false }

func (Noop) Attempt(context.Context, Task) (Outcome, error) {
	return Outcome{Kind: OutcomeFailed, Detail: "navigator unavailable"}, nil
}
