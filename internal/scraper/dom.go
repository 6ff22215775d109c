package scraper

import (
	"github.com/flashprice/radar-crawler/internal/models"
)

// Element is the capability set the controller needs from a DOM element.
// The real implementation wraps a playwright element handle; tests use
// in-memory fakes so no browser is required.
type Element interface {
	Visible() (bool, error)
	// Box returns the element's bounding box width and height in CSS pixels.
	// ok is false when the element has no layout box.
	Box() (width, height float64, ok bool, err error)
	Text() (string, error)
	Click() error
	// Fill replaces the element's current value.
	Fill(value string) error
	// Type appends text to the element without clearing it first.
	Type(text string) error
}

// Page is the capability set the controller needs from a rendered page.
type Page interface {
	Goto(url string) error
	Reload() error
	URL() string
	// Query returns all elements matching the selector, visible or not.
	// An empty result is not an error.
	Query(selector string) ([]Element, error)
	// BodyText returns the full visible text of the page.
	BodyText() (string, error)
	// Content returns the page's HTML snapshot.
	Content() (string, error)
	// Press sends a keyboard key (e.g. "Escape", "Enter") to the page.
	Press(key string) error
	// ClickAt clicks at absolute page coordinates, for dismissing overlays
	// by tapping a blank area.
	ClickAt(x, y float64) error
}

// Session is one browser context bound to a pilot location. All interaction
// with a session is strictly sequential; the controller never issues two
// concurrent actions against the same session.
type Session interface {
	Page() Page
	Location() models.Location
	// LocationSet reports whether a delivery address has been established.
	// The flag is monotonic: it only moves false -> true for the lifetime
	// of the session.
	LocationSet() bool
	MarkLocationSet()
	// Screenshot stores a sequentially numbered debug artifact for the
	// given stage tag. Purely diagnostic; failures are ignored.
	Screenshot(stage string)
}
