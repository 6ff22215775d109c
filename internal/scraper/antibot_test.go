package scraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInspect(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		blocked bool
		captcha bool
	}{
		{name: "Clean page", text: "附近商家 绿源超市 ¥3.50"},
		{name: "System busy", text: "系统繁忙，请稍后再试", blocked: true},
		{name: "Transient error page", text: "哎呀，出了点小差", blocked: true},
		{name: "Rate limited", text: "您的访问太频繁了", blocked: true},
		{name: "Forbidden", text: "403 Forbidden", blocked: true},
		{name: "Bare status code", text: "错误 403", blocked: true},
		{name: "Slider captcha", text: "请拖动滑块完成验证", blocked: true, captcha: true},
		{name: "Verification code", text: "请输入验证码", blocked: true, captcha: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := Inspect(tt.text)
			assert.Equal(t, tt.blocked, verdict.Blocked)
			assert.Equal(t, tt.captcha, verdict.Captcha)
		})
	}
}

func TestVerdictErr(t *testing.T) {
	assert.NoError(t, Verdict{}.Err())
	assert.ErrorIs(t, Verdict{Blocked: true}.Err(), ErrBlocked)
	assert.ErrorIs(t, Verdict{Blocked: true, Captcha: true}.Err(), ErrCaptcha)
}

func TestRecoverIfBlockedRetriesOnce(t *testing.T) {
	page := newFakePage()
	page.bodyTexts = []string{"系统繁忙", "附近商家 绿源超市"}
	c := newTestController(newFakeSession(page), Options{})

	err := c.recoverIfBlocked(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, page.reloads, "a transient block gets exactly one reload")
}

func TestRecoverIfBlockedGivesUpAfterSecondBlock(t *testing.T) {
	page := newFakePage()
	page.bodyTexts = []string{"系统繁忙", "系统繁忙"}
	c := newTestController(newFakeSession(page), Options{})

	err := c.recoverIfBlocked(context.Background())
	assert.ErrorIs(t, err, ErrBlocked)
	assert.Equal(t, 1, page.reloads, "no third attempt against a persistent block")
}

func TestRecoverIfBlockedCaptchaNotRetried(t *testing.T) {
	page := newFakePage()
	page.bodyTexts = []string{"请完成安全验证"}
	c := newTestController(newFakeSession(page), Options{})

	err := c.recoverIfBlocked(context.Background())
	assert.ErrorIs(t, err, ErrCaptcha)
	assert.Zero(t, page.reloads, "captchas are surfaced, never auto-retried")
}
