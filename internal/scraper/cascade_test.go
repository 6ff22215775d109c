package scraper

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResolver() *Resolver {
	return NewResolver(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestResolverOrder(t *testing.T) {
	page := newFakePage()
	page.add(".first", visibleElement("first"))
	page.add(".second", visibleElement("second"))

	elements, err := testResolver().Resolve(page, "test", []Candidate{
		{Selector: ".first"},
		{Selector: ".second"},
	})
	require.NoError(t, err)
	require.Len(t, elements, 1)

	text, _ := elements[0].Text()
	assert.Equal(t, "first", text, "candidates must be evaluated strictly in order")
}

func TestResolverMinCount(t *testing.T) {
	// Candidate groups A: 1 match, B: 5 matches, C: 10 matches. With a
	// plausibility threshold of >2 the resolver must settle on B, the
	// first group that clears the bar.
	page := newFakePage()
	page.add(".a", visibleElement("a"))
	for i := 0; i < 5; i++ {
		page.add(".b", visibleElement("b"))
	}
	for i := 0; i < 10; i++ {
		page.add(".c", visibleElement("c"))
	}

	elements, err := testResolver().Resolve(page, "result card", []Candidate{
		{Selector: ".a", MinCount: 2},
		{Selector: ".b", MinCount: 2},
		{Selector: ".c", MinCount: 2},
	})
	require.NoError(t, err)
	require.Len(t, elements, 5)

	text, _ := elements[0].Text()
	assert.Equal(t, "b", text)
}

func TestResolverVisibilityFilter(t *testing.T) {
	page := newFakePage()
	hidden := &fakeElement{text: "hidden", visible: false, width: 50, height: 50}
	page.add(".mixed", hidden, visibleElement("shown"))

	elements, err := testResolver().Resolve(page, "test", []Candidate{{Selector: ".mixed"}})
	require.NoError(t, err)
	require.Len(t, elements, 1)

	text, _ := elements[0].Text()
	assert.Equal(t, "shown", text)
}

func TestResolverBoxConstraint(t *testing.T) {
	page := newFakePage()
	big := &fakeElement{text: "big", visible: true, width: 400, height: 300}
	small := &fakeElement{text: "small", visible: true, width: 40, height: 40}
	page.add(".close", big, small)

	elements, err := testResolver().Resolve(page, "close button", []Candidate{
		{Selector: ".close", MaxBox: 100},
	})
	require.NoError(t, err)
	require.Len(t, elements, 1)

	text, _ := elements[0].Text()
	assert.Equal(t, "small", text, "oversized elements are not close-button-like")
}

func TestResolverNotFound(t *testing.T) {
	page := newFakePage()

	_, err := testResolver().Resolve(page, "test", []Candidate{
		{Selector: ".missing"},
		{Selector: ".also-missing"},
	})
	assert.ErrorIs(t, err, ErrNotFound)
}
