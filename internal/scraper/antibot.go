package scraper

import (
	"strings"
)

// blockPhrases are the known rate-limit and challenge signatures the
// storefront renders when it suspects automated traffic. The bare "403"
// matches anywhere in the page text; the block page sometimes shows the
// status code alone, so keep it broad.
var blockPhrases = []string{
	"系统繁忙",
	"出了点小差",
	"访问太频繁",
	"请求异常",
	"403 Forbidden",
	"403",
}

// captchaPhrases indicate an explicit human-verification prompt, which is
// reported distinctly and never auto-retried.
var captchaPhrases = []string{
	"请完成验证",
	"安全验证",
	"拖动滑块",
	"验证码",
}

// Verdict is the Anti-Bot Monitor's inspection result.
type Verdict struct {
	Blocked bool
	Captcha bool
	Phrase  string
}

// Inspect matches known block and challenge signatures against the full
// visible text of the current page.
func Inspect(pageText string) Verdict {
	for _, phrase := range captchaPhrases {
		if strings.Contains(pageText, phrase) {
			return Verdict{Blocked: true, Captcha: true, Phrase: phrase}
		}
	}
	for _, phrase := range blockPhrases {
		if strings.Contains(pageText, phrase) {
			return Verdict{Blocked: true, Phrase: phrase}
		}
	}
	return Verdict{}
}

// Err maps the verdict onto the error taxonomy, or nil when clear.
func (v Verdict) Err() error {
	switch {
	case v.Captcha:
		return ErrCaptcha
	case v.Blocked:
		return ErrBlocked
	default:
		return nil
	}
}
