package scraper

import (
	"log/slog"
)

// Candidate is one strategy in a selector cascade.
type Candidate struct {
	Selector string
	// MaxBox, when > 0, keeps only elements whose bounding box is at most
	// MaxBox x MaxBox pixels. Used to pick out close-button-like elements.
	MaxBox float64
	// MinCount, when > 0, requires the candidate to yield more than
	// MinCount visible matches before it is accepted. Guards result-card
	// cascades against matching a single unrelated container.
	MinCount int
}

// Resolver tries ordered candidate queries against a live page and returns
// the first strategy that yields a qualifying visible element. Markup on
// the storefront drifts constantly; an ordered cascade with visibility and
// size filters tolerates that drift without semantic page understanding.
type Resolver struct {
	logger *slog.Logger
}

func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger.With("component", "cascade")}
}

// Resolve evaluates candidates strictly in order and returns the visible
// matches of the first candidate that qualifies. Candidates that error are
// skipped. ErrNotFound is returned when every candidate comes up empty.
func (r *Resolver) Resolve(page Page, intent string, candidates []Candidate) ([]Element, error) {
	for _, c := range candidates {
		elements, err := page.Query(c.Selector)
		if err != nil {
			r.logger.Debug("candidate query failed", "intent", intent, "selector", c.Selector, "error", err)
			continue
		}

		visible := filterVisible(elements, c.MaxBox)
		if len(visible) == 0 {
			continue
		}
		if c.MinCount > 0 && len(visible) <= c.MinCount {
			continue
		}

		r.logger.Debug("cascade resolved", "intent", intent, "selector", c.Selector, "matches", len(visible))
		return visible, nil
	}

	r.logger.Debug("cascade exhausted", "intent", intent, "candidates", len(candidates))
	return nil, ErrNotFound
}

// First is Resolve narrowed to a single element.
func (r *Resolver) First(page Page, intent string, candidates []Candidate) (Element, error) {
	elements, err := r.Resolve(page, intent, candidates)
	if err != nil {
		return nil, err
	}
	return elements[0], nil
}

func filterVisible(elements []Element, maxBox float64) []Element {
	var visible []Element
	for _, el := range elements {
		ok, err := el.Visible()
		if err != nil || !ok {
			continue
		}
		if maxBox > 0 {
			w, h, hasBox, err := el.Box()
			if err != nil || !hasBox || w > maxBox || h > maxBox {
				continue
			}
		}
		visible = append(visible, el)
	}
	return visible
}
