package scraper

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/flashprice/radar-crawler/internal/navigator"
)

// regionPrefixRe strips the "city + district" prefix from a postal address
// so only the street-level part is typed into the storefront search box.
var regionPrefixRe = regexp.MustCompile(`^[\p{Han}]{1,6}市([\p{Han}]{1,6}区)?`)

func shortAddress(address string) string {
	short := regionPrefixRe.ReplaceAllString(address, "")
	if short == "" {
		return address
	}
	return short
}

// EnsureLocation establishes the session's delivery address. Once set, the
// flag is monotonic: subsequent calls return immediately with no
// navigation. The Navigator capability is tried first when configured;
// anything short of an explicit SUCCESS falls through to the deterministic
// selector-cascade procedure, except a CAPTCHA outcome, which is surfaced
// distinctly and never retried automatically.
func (c *Controller) EnsureLocation(ctx context.Context) error {
	if c.session.LocationSet() {
		return nil
	}

	if c.nav != nil && c.nav.Available() {
		outcome, err := c.nav.Attempt(ctx, c.locationTask())
		switch {
		case err != nil:
			c.logger.Warn("navigator attempt errored, falling back", "error", err)
		case outcome.Kind == navigator.OutcomeSuccess:
			c.logger.Info("navigator set delivery location", "detail", outcome.Detail)
			c.session.MarkLocationSet()
			return nil
		case outcome.Kind == navigator.OutcomeCaptcha:
			c.logger.Warn("navigator hit a captcha challenge")
			return ErrCaptcha
		default:
			c.logger.Warn("navigator failed, falling back", "detail", outcome.Detail)
		}
	}

	return c.setLocationDeterministic(ctx)
}

// locationTask builds the bounded task description for the Navigator,
// including the literal response grammar the core parses afterwards.
func (c *Controller) locationTask() navigator.Task {
	address := shortAddress(c.session.Location().Address)
	text := fmt.Sprintf(`你需要在%s的H5页面设置收货地址。

【步骤】
1. 打开 %s
2. 等待页面加载，关闭所有弹窗（点击关闭按钮或空白处）
3. 点击页面顶部的地址栏
4. 如果出现城市选择，点击"%s"
5. 在搜索框输入"%s"
6. 点击第一个搜索结果
7. 确认返回首页，地址已更新

【成功标准】
页面顶部显示包含"%s"的地址

【回复】
- 成功: SUCCESS: [显示的地址]
- 失败: FAILED: [原因]
- 验证码: CAPTCHA

【注意】
- 中文页面
- 遇到403就刷新重试
- 每步等待1-2秒`,
		c.platform.Name, c.platform.H5URL, c.city, address, address)

	return navigator.Task{Text: text, MaxSteps: 25}
}

// setLocationDeterministic is the selector-cascade fallback: entry page,
// overlay dismissal, address control, optional city prompt, humanized
// typing, then the first matching suggestion. Success requires a suggestion
// click; a missing suggestion after the bounded wait is a failure, not a
// retry.
func (c *Controller) setLocationDeterministic(ctx context.Context) error {
	page := c.session.Page()
	address := shortAddress(c.session.Location().Address)

	c.logger.Info("setting delivery location", "location", c.session.Location().Name)

	if err := page.Goto(c.platform.H5URL); err != nil {
		return fmt.Errorf("open storefront: %w", err)
	}
	if err := c.sleep(ctx, c.timings.SettleWait); err != nil {
		return err
	}
	if err := c.recoverIfBlocked(ctx); err != nil {
		return err
	}

	c.dismissOverlays(ctx)
	c.session.Screenshot("home")

	// Address control at the top of the page; a blind tap on the header
	// region is the last resort.
	addressControl, err := c.resolver.First(page, "address control", []Candidate{
		{Selector: `[class*="location"]`},
		{Selector: `[class*="address"]`},
		{Selector: `[class*="poi"]`},
	})
	if err == nil {
		if err := addressControl.Click(); err != nil {
			return fmt.Errorf("open address control: %w", err)
		}
	} else {
		_ = page.ClickAt(180, 40)
	}
	if err := c.sleep(ctx, c.timings.SuggestWait); err != nil {
		return err
	}
	c.session.Screenshot("address-page")

	if err := c.selectCityIfPrompted(ctx); err != nil {
		return err
	}

	input, err := c.resolver.First(page, "address input", []Candidate{
		{Selector: `input[placeholder*="搜索"]`},
		{Selector: `input[placeholder*="地址"]`},
		{Selector: `input`},
	})
	if err != nil {
		return fmt.Errorf("address input: %w", ErrLocationNotSet)
	}
	if err := input.Click(); err != nil {
		return fmt.Errorf("focus address input: %w", err)
	}
	if err := c.typeHumanly(ctx, input, address); err != nil {
		return fmt.Errorf("type address: %w", err)
	}
	c.session.Screenshot("address-input")

	suggestions, err := c.waitForAny(ctx, "address suggestion", []Candidate{
		{Selector: `[class*="suggest"]`},
		{Selector: `[class*="poi"]`},
		{Selector: `[class*="item"]`},
	}, c.timings.SuggestWait)
	if err != nil {
		return fmt.Errorf("suggestion list: %w", ErrLocationNotSet)
	}

	accepted := append([]string{address}, c.aliases...)
	for i, suggestion := range suggestions {
		if i >= 5 {
			break
		}
		text, err := suggestion.Text()
		if err != nil {
			continue
		}
		if !containsAny(text, accepted) {
			continue
		}
		if err := suggestion.Click(); err != nil {
			continue
		}
		_ = c.sleep(ctx, c.timings.SuggestWait)
		c.session.MarkLocationSet()
		c.logger.Info("delivery location set", "suggestion", strings.TrimSpace(text))
		return nil
	}

	return ErrLocationNotSet
}

func (c *Controller) selectCityIfPrompted(ctx context.Context) error {
	page := c.session.Page()
	text, err := page.BodyText()
	if err != nil {
		return err
	}
	if !strings.Contains(text, "选择城市") {
		return nil
	}

	cityButton, err := c.resolver.First(page, "city choice", []Candidate{
		{Selector: "text=" + c.city},
	})
	if err != nil {
		return fmt.Errorf("city prompt shown but %q not offered: %w", c.city, ErrLocationNotSet)
	}
	if err := cityButton.Click(); err != nil {
		return fmt.Errorf("select city: %w", err)
	}
	return c.sleep(ctx, c.timings.SuggestWait)
}
