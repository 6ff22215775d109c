package scraper

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/flashprice/radar-crawler/internal/models"
)

type fakeElement struct {
	text     string
	visible  bool
	width    float64
	height   float64
	clicks   int
	typed    string
	clickErr error
	fillErrs []error
	fills    int
}

func visibleElement(text string) *fakeElement {
	return &fakeElement{text: text, visible: true, width: 50, height: 50}
}

func (e *fakeElement) Visible() (bool, error) { return e.visible, nil }

func (e *fakeElement) Box() (float64, float64, bool, error) {
	if e.width == 0 && e.height == 0 {
		return 0, 0, false, nil
	}
	return e.width, e.height, true, nil
}

func (e *fakeElement) Text() (string, error) { return e.text, nil }

func (e *fakeElement) Click() error {
	if e.clickErr != nil {
		return e.clickErr
	}
	e.clicks++
	return nil
}

func (e *fakeElement) Fill(value string) error {
	defer func() { e.fills++ }()
	if e.fills < len(e.fillErrs) && e.fillErrs[e.fills] != nil {
		return e.fillErrs[e.fills]
	}
	e.typed = value
	return nil
}

func (e *fakeElement) Type(text string) error {
	e.typed += text
	return nil
}

type fakePage struct {
	url       string
	selectors map[string][]Element
	// bodyTexts is consumed one element per BodyText call; the last entry
	// keeps repeating once the queue is drained.
	bodyTexts []string
	bodyIdx   int
	content   string
	gotos     []string
	reloads   int
	pressed   []string
	clicksAt  int
}

func newFakePage() *fakePage {
	return &fakePage{selectors: make(map[string][]Element)}
}

func (p *fakePage) add(selector string, elements ...Element) {
	p.selectors[selector] = append(p.selectors[selector], elements...)
}

func (p *fakePage) Goto(url string) error {
	p.gotos = append(p.gotos, url)
	p.url = url
	return nil
}

func (p *fakePage) Reload() error {
	p.reloads++
	return nil
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) Query(selector string) ([]Element, error) {
	return p.selectors[selector], nil
}

func (p *fakePage) BodyText() (string, error) {
	if len(p.bodyTexts) == 0 {
		return "", nil
	}
	text := p.bodyTexts[p.bodyIdx]
	if p.bodyIdx < len(p.bodyTexts)-1 {
		p.bodyIdx++
	}
	return text, nil
}

func (p *fakePage) Content() (string, error) { return p.content, nil }

func (p *fakePage) Press(key string) error {
	p.pressed = append(p.pressed, key)
	return nil
}

func (p *fakePage) ClickAt(x, y float64) error {
	p.clicksAt++
	return nil
}

type fakeSession struct {
	page     *fakePage
	location models.Location
	set      bool
	shots    []string
}

func newFakeSession(page *fakePage) *fakeSession {
	return &fakeSession{
		page: page,
		location: models.Location{
			Name:      "南坪步行街",
			Latitude:  29.5286,
			Longitude: 106.5694,
			Address:   "重庆市南岸区南坪西路",
		},
	}
}

func (s *fakeSession) Page() Page                { return s.page }
func (s *fakeSession) Location() models.Location { return s.location }
func (s *fakeSession) LocationSet() bool         { return s.set }
func (s *fakeSession) MarkLocationSet()          { s.set = true }
func (s *fakeSession) Screenshot(stage string)   { s.shots = append(s.shots, stage) }

func testTimings() Timings {
	return Timings{
		ReadyTimeout:  10 * time.Millisecond,
		SettleWait:    time.Millisecond,
		SuggestWait:   2 * time.Millisecond,
		PollInterval:  time.Millisecond,
		TypeDelayMin:  0,
		TypeDelayMax:  0,
		BlockCooldown: time.Millisecond,
	}
}

func newTestController(session Session, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Platform == (models.Platform{}) {
		opts.Platform = models.Platform{
			ID:      "meituan",
			Name:    "美团闪购",
			H5URL:   "https://h5.waimai.meituan.com",
			Enabled: true,
		}
	}
	if opts.Timings == (Timings{}) {
		opts.Timings = testTimings()
	}
	c := NewController(session, opts)
	c.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return c
}
