package browser

import (
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/flashprice/radar-crawler/internal/scraper"
)

// Page adapts a playwright page to the controller's page capability.
type Page struct {
	page playwright.Page
}

func (p *Page) Goto(url string) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	return err
}

func (p *Page) Reload() error {
	_, err := p.page.Reload(playwright.PageReloadOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	return err
}

func (p *Page) URL() string { return p.page.URL() }

func (p *Page) Query(selector string) ([]scraper.Element, error) {
	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, err
	}
	elements := make([]scraper.Element, 0, len(handles))
	for _, handle := range handles {
		elements = append(elements, &element{handle: handle})
	}
	return elements, nil
}

func (p *Page) BodyText() (string, error) {
	return p.page.InnerText("body")
}

func (p *Page) Content() (string, error) {
	return p.page.Content()
}

func (p *Page) Press(key string) error {
	return p.page.Keyboard().Press(key)
}

func (p *Page) ClickAt(x, y float64) error {
	return p.page.Mouse().Click(x, y)
}

// element adapts a playwright element handle to the controller's element
// capability.
type element struct {
	handle playwright.ElementHandle
}

func (e *element) Visible() (bool, error) {
	return e.handle.IsVisible()
}

func (e *element) Box() (width, height float64, ok bool, err error) {
	box, err := e.handle.BoundingBox()
	if err != nil {
		return 0, 0, false, err
	}
	if box == nil {
		return 0, 0, false, nil
	}
	return box.Width, box.Height, true, nil
}

func (e *element) Text() (string, error) {
	return e.handle.InnerText()
}

func (e *element) Click() error {
	return e.handle.Click()
}

func (e *element) Fill(value string) error {
	return e.handle.Fill(value)
}

func (e *element) Type(text string) error {
	return e.handle.Type(text)
}

// Driver is the bounded action surface handed to the AI navigator: a few
// verbs addressed by selector, nothing else.
type Driver struct {
	page playwright.Page
}

func (d *Driver) Goto(url string) error {
	_, err := d.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	return err
}

func (d *Driver) BodyText() (string, error) {
	return d.page.InnerText("body")
}

func (d *Driver) Click(selector string) error {
	handle, err := d.page.QuerySelector(selector)
	if err != nil {
		return err
	}
	if handle == nil {
		return fmt.Errorf("no element matches %q", selector)
	}
	return handle.Click()
}

func (d *Driver) Type(selector, text string) error {
	handle, err := d.page.QuerySelector(selector)
	if err != nil {
		return err
	}
	if handle == nil {
		return fmt.Errorf("no element matches %q", selector)
	}
	if err := handle.Fill(""); err != nil {
		return err
	}
	return handle.Type(text)
}

func (d *Driver) Press(key string) error {
	return d.page.Keyboard().Press(key)
}
