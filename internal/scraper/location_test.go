package scraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashprice/radar-crawler/internal/navigator"
)

type fakeNavigator struct {
	outcome navigator.Outcome
	err     error
	calls   int
}

func (f *fakeNavigator) Available() bool { return true }

func (f *fakeNavigator) Attempt(context.Context, navigator.Task) (navigator.Outcome, error) {
	f.calls++
	return f.outcome, f.err
}

// wireDeterministicSuccess sets up a page on which the fallback procedure
// can complete: address control, input, and a matching suggestion.
func wireDeterministicSuccess(page *fakePage) (input, suggestion *fakeElement) {
	input = visibleElement("")
	suggestion = visibleElement("南坪西路公交站")
	page.add(`[class*="location"]`, visibleElement("当前位置"))
	page.add(`input[placeholder*="搜索"]`, input)
	page.add(`[class*="suggest"]`, suggestion)
	return input, suggestion
}

func TestEnsureLocationIdempotent(t *testing.T) {
	page := newFakePage()
	session := newFakeSession(page)
	session.set = true
	c := newTestController(session, Options{})

	require.NoError(t, c.EnsureLocation(context.Background()))
	assert.Empty(t, page.gotos, "an already-set session performs no navigation")
	assert.Zero(t, page.reloads)
}

func TestEnsureLocationDeterministic(t *testing.T) {
	page := newFakePage()
	input, suggestion := wireDeterministicSuccess(page)
	session := newFakeSession(page)
	c := newTestController(session, Options{})

	require.NoError(t, c.EnsureLocation(context.Background()))

	assert.True(t, session.set)
	assert.Contains(t, page.gotos, "https://h5.waimai.meituan.com")
	assert.Equal(t, "南坪西路", input.typed, "city and district prefix is stripped before typing")
	assert.Equal(t, 1, suggestion.clicks)
}

func TestEnsureLocationAliasMatch(t *testing.T) {
	page := newFakePage()
	input := visibleElement("")
	suggestion := visibleElement("南坪地铁站2号口")
	page.add(`[class*="location"]`, visibleElement("当前位置"))
	page.add(`input[placeholder*="搜索"]`, input)
	page.add(`[class*="suggest"]`, suggestion)

	session := newFakeSession(page)
	c := newTestController(session, Options{Aliases: []string{"南坪"}})

	require.NoError(t, c.EnsureLocation(context.Background()))
	assert.True(t, session.set)
	assert.Equal(t, 1, suggestion.clicks, "a neighborhood alias qualifies a suggestion")
}

func TestEnsureLocationCityPrompt(t *testing.T) {
	page := newFakePage()
	wireDeterministicSuccess(page)
	page.bodyTexts = []string{"", "选择城市 北京 上海 重庆", ""}
	city := visibleElement("重庆")
	page.add("text=重庆", city)

	session := newFakeSession(page)
	c := newTestController(session, Options{City: "重庆"})

	require.NoError(t, c.EnsureLocation(context.Background()))
	assert.Equal(t, 1, city.clicks)
	assert.True(t, session.set)
}

func TestEnsureLocationNoSuggestion(t *testing.T) {
	page := newFakePage()
	page.add(`[class*="location"]`, visibleElement("当前位置"))
	page.add(`input[placeholder*="搜索"]`, visibleElement(""))

	session := newFakeSession(page)
	c := newTestController(session, Options{})

	err := c.EnsureLocation(context.Background())
	assert.ErrorIs(t, err, ErrLocationNotSet)
	assert.False(t, session.set)
}

func TestEnsureLocationNonMatchingSuggestions(t *testing.T) {
	page := newFakePage()
	page.add(`[class*="location"]`, visibleElement("当前位置"))
	page.add(`input[placeholder*="搜索"]`, visibleElement(""))
	page.add(`[class*="suggest"]`, visibleElement("解放碑步行街"))

	session := newFakeSession(page)
	c := newTestController(session, Options{})

	err := c.EnsureLocation(context.Background())
	assert.ErrorIs(t, err, ErrLocationNotSet)
}

func TestEnsureLocationNavigatorSuccess(t *testing.T) {
	page := newFakePage()
	nav := &fakeNavigator{outcome: navigator.Outcome{Kind: navigator.OutcomeSuccess}}
	session := newFakeSession(page)
	c := newTestController(session, Options{Navigator: nav})

	require.NoError(t, c.EnsureLocation(context.Background()))
	assert.True(t, session.set)
	assert.Equal(t, 1, nav.calls)
	assert.Empty(t, page.gotos, "navigator success skips the deterministic path")
}

func TestEnsureLocationNavigatorCaptcha(t *testing.T) {
	page := newFakePage()
	nav := &fakeNavigator{outcome: navigator.Outcome{Kind: navigator.OutcomeCaptcha}}
	session := newFakeSession(page)
	c := newTestController(session, Options{Navigator: nav})

	err := c.EnsureLocation(context.Background())
	assert.ErrorIs(t, err, ErrCaptcha)
	assert.False(t, session.set)
	assert.Empty(t, page.gotos, "captcha is surfaced, not worked around")
}

func TestEnsureLocationNavigatorFailureFallsBack(t *testing.T) {
	page := newFakePage()
	wireDeterministicSuccess(page)
	nav := &fakeNavigator{outcome: navigator.Outcome{Kind: navigator.OutcomeFailed, Detail: "lost"}}
	session := newFakeSession(page)
	c := newTestController(session, Options{Navigator: nav})

	require.NoError(t, c.EnsureLocation(context.Background()))
	assert.Equal(t, 1, nav.calls)
	assert.True(t, session.set, "ordinary navigator failure falls through to the cascade path")
	assert.NotEmpty(t, page.gotos)
}

func TestShortAddress(t *testing.T) {
	assert.Equal(t, "南坪西路", shortAddress("重庆市南岸区南坪西路"))
	assert.Equal(t, "弹子石新街", shortAddress("重庆市南岸区弹子石新街"))
	assert.Equal(t, "某地无前缀", shortAddress("某地无前缀"))
}
