package browser

import (
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/flashprice/radar-crawler/internal/models"
	"github.com/flashprice/radar-crawler/internal/scraper"
)

// stealthScript masks the common automation markers the storefront checks
// before rendering content.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3] });
Object.defineProperty(navigator, 'languages', { get: () => ['zh-CN', 'zh'] });
`

// mobileUserAgents are plausible iPhone profiles; one is picked per session
// so repeated sessions do not share a fingerprint.
var mobileUserAgents = []string{
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
}

type Options struct {
	Headless      bool
	Timeout       time.Duration
	ScreenshotDir string
}

func DefaultOptions() *Options {
	return &Options{
		Headless: true,
		Timeout:  30 * time.Second,
	}
}

// Session owns one browser context bound to a pilot location: mobile
// viewport and fingerprint, geolocation override, zh-CN locale, and the
// automation-masking init script. All interaction with a session is
// strictly sequential.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    *Page
	logger  *slog.Logger

	location    models.Location
	locationSet bool
	shotCount   int
	shotDir     string
	closed      bool
}

// Open launches a browser context for the given pilot location. It fails
// with scraper.ErrSessionInit when the browser process cannot start, which
// is the one error fatal to a crawl run.
func Open(location models.Location, opts *Options) (*Session, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	logger := slog.Default().With("component", "browser", "location", location.Name)

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("%w: start playwright: %v", scraper.ErrSessionInit, err)
	}

	userAgent := mobileUserAgents[rand.Intn(len(mobileUserAgents))]

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		SlowMo:   playwright.Float(50),
		Args: []string{
			"--no-sandbox",
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--lang=zh-CN",
		},
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("%w: launch browser: %v", scraper.ErrSessionInit, err)
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(userAgent),
		Viewport: &playwright.Size{
			Width:  375,
			Height: 812,
		},
		Geolocation: &playwright.Geolocation{
			Latitude:  location.Latitude,
			Longitude: location.Longitude,
		},
		Permissions:       []string{"geolocation"},
		Locale:            playwright.String("zh-CN"),
		TimezoneId:        playwright.String("Asia/Shanghai"),
		DeviceScaleFactor: playwright.Float(3),
		IsMobile:          playwright.Bool(true),
		HasTouch:          playwright.Bool(true),
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("%w: create context: %v", scraper.ErrSessionInit, err)
	}

	if err := context.AddInitScript(playwright.Script{
		Content: playwright.String(stealthScript),
	}); err != nil {
		context.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("%w: inject stealth script: %v", scraper.ErrSessionInit, err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("%w: open page: %v", scraper.ErrSessionInit, err)
	}
	page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))

	logger.Info("session opened", "address", location.Address, "user_agent", userAgent)

	return &Session{
		pw:       pw,
		browser:  browser,
		context:  context,
		page:     &Page{page: page},
		logger:   logger,
		location: location,
		shotDir:  opts.ScreenshotDir,
	}, nil
}

func (s *Session) Page() scraper.Page { return s.page }

func (s *Session) Location() models.Location { return s.location }

func (s *Session) LocationSet() bool { return s.locationSet }

func (s *Session) MarkLocationSet() { s.locationSet = true }

// Driver exposes the narrow action surface the AI navigator is allowed to
// use against this session's page.
func (s *Session) Driver() *Driver { return &Driver{page: s.page.page} }

// Screenshot stores a numbered debug artifact. Failures are logged and
// otherwise ignored; nothing depends on these files existing.
func (s *Session) Screenshot(stage string) {
	s.shotCount++
	path := filepath.Join(s.shotDir, fmt.Sprintf("debug_%02d_%s.png", s.shotCount, stage))
	if _, err := s.page.page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
	}); err != nil {
		s.logger.Debug("screenshot failed", "stage", stage, "error", err)
	}
}

// Close releases the context, the browser, and the playwright driver.
// Safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close context: %w", err))
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop playwright: %w", err))
		}
	}

	s.logger.Info("session closed")
	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}
