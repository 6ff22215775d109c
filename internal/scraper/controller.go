package scraper

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/flashprice/radar-crawler/internal/models"
	"github.com/flashprice/radar-crawler/internal/navigator"
	"github.com/flashprice/radar-crawler/internal/ratelimit"
)

// Timings are the bounded waits of the stateful procedures. Every wait has
// a ceiling; nothing in the controller hangs unboundedly.
type Timings struct {
	ReadyTimeout  time.Duration // initial render after navigation
	SettleWait    time.Duration // results render after triggering search
	SuggestWait   time.Duration // address suggestion list
	PollInterval  time.Duration
	TypeDelayMin  time.Duration // per-character humanized typing
	TypeDelayMax  time.Duration
	BlockCooldown time.Duration // before the single reload-and-retry
}

func DefaultTimings() Timings {
	return Timings{
		ReadyTimeout:  15 * time.Second,
		SettleWait:    4 * time.Second,
		SuggestWait:   2 * time.Second,
		PollInterval:  200 * time.Millisecond,
		TypeDelayMin:  30 * time.Millisecond,
		TypeDelayMax:  120 * time.Millisecond,
		BlockCooldown: 5 * time.Second,
	}
}

// Options configure a Controller.
type Options struct {
	Platform  models.Platform
	Navigator navigator.Navigator // nil means deterministic path only
	Pacer     ratelimit.RateLimiter
	Timings   Timings
	City      string   // city prompt choice during address setup
	Aliases   []string // neighborhood aliases accepted in suggestions
	Logger    *slog.Logger
}

// Controller drives one storefront session through the stateful
// location-then-search procedures and extracts price records. It owns no
// browser primitives itself; all DOM access goes through the Page and
// Element capabilities of the session.
type Controller struct {
	session  Session
	resolver *Resolver
	nav      navigator.Navigator
	platform models.Platform
	pacer    ratelimit.RateLimiter
	timings  Timings
	city     string
	aliases  []string
	logger   *slog.Logger

	// sleep is swapped for a no-op in tests so procedures run instantly.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewController(session Session, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "controller", "platform", opts.Platform.ID)

	timings := opts.Timings
	if timings == (Timings{}) {
		timings = DefaultTimings()
	}

	city := opts.City
	if city == "" {
		city = "重庆"
	}

	return &Controller{
		session:  session,
		resolver: NewResolver(logger),
		nav:      opts.Navigator,
		platform: opts.Platform,
		pacer:    opts.Pacer,
		timings:  timings,
		city:     city,
		aliases:  opts.Aliases,
		logger:   logger,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// typeHumanly types text one character at a time with a randomized
// inter-character delay, to keep input cadence below pattern-detection
// thresholds.
func (c *Controller) typeHumanly(ctx context.Context, el Element, text string) error {
	spread := c.timings.TypeDelayMax - c.timings.TypeDelayMin
	for _, r := range text {
		if err := el.Type(string(r)); err != nil {
			return err
		}
		delay := c.timings.TypeDelayMin
		if spread > 0 {
			delay += time.Duration(rand.Int63n(int64(spread)))
		}
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return nil
}

// dismissOverlays closes promo dialogs covering the page: close-button-like
// small elements first, then a tap on a blank area far from center, then
// an escape key.
func (c *Controller) dismissOverlays(ctx context.Context) {
	page := c.session.Page()

	closeCandidates := []Candidate{
		{Selector: `[class*="close"]`, MaxBox: 100},
		{Selector: `[class*="Close"]`, MaxBox: 100},
		{Selector: `text=×`, MaxBox: 100},
		{Selector: `text=关闭`, MaxBox: 100},
		{Selector: `text=取消`, MaxBox: 100},
	}

	if buttons, err := c.resolver.Resolve(page, "overlay close button", closeCandidates); err == nil {
		for i, btn := range buttons {
			if i >= 3 {
				break
			}
			if err := btn.Click(); err != nil {
				continue
			}
			_ = c.sleep(ctx, 300*time.Millisecond)
		}
	}

	_ = page.ClickAt(10, 10)
	_ = page.Press("Escape")
	_ = c.sleep(ctx, 200*time.Millisecond)
}

// recoverIfBlocked inspects the page for anti-bot signatures. On a block it
// cools down, forces one full reload, and re-inspects; a second consecutive
// block aborts the current step. Captchas are surfaced immediately and
// never retried.
func (c *Controller) recoverIfBlocked(ctx context.Context) error {
	page := c.session.Page()

	text, err := page.BodyText()
	if err != nil {
		return err
	}
	verdict := Inspect(text)
	if !verdict.Blocked {
		return nil
	}
	if verdict.Captcha {
		c.logger.Warn("captcha challenge detected", "phrase", verdict.Phrase)
		return ErrCaptcha
	}

	c.logger.Warn("anti-bot block detected, reloading once", "phrase", verdict.Phrase)
	if err := c.sleep(ctx, c.timings.BlockCooldown); err != nil {
		return err
	}
	if err := page.Reload(); err != nil {
		return err
	}
	if err := c.sleep(ctx, c.timings.SettleWait); err != nil {
		return err
	}

	text, err = page.BodyText()
	if err != nil {
		return err
	}
	return Inspect(text).Err()
}

// waitForAny polls the cascade until it resolves or the timeout elapses.
// The wait is bounded by attempt count, not wall-clock reads, so it stays
// deterministic when the sleep function is stubbed out in tests.
func (c *Controller) waitForAny(ctx context.Context, intent string, candidates []Candidate, timeout time.Duration) ([]Element, error) {
	attempts := int(timeout/c.timings.PollInterval) + 1
	for i := 0; i < attempts; i++ {
		elements, err := c.resolver.Resolve(c.session.Page(), intent, candidates)
		if err == nil {
			return elements, nil
		}
		if err := c.sleep(ctx, c.timings.PollInterval); err != nil {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if needle != "" && strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
