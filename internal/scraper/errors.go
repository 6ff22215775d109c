package scraper

import (
	"errors"
)

var (
	// ErrSessionInit is the only error that aborts a whole crawl run.
	ErrSessionInit = errors.New("browser session could not be initialized")

	// ErrBlocked signals an anti-bot challenge on the current page.
	ErrBlocked = errors.New("blocked by storefront anti-bot challenge")

	// ErrCaptcha signals an explicit human-verification prompt. It is never
	// retried automatically.
	ErrCaptcha = errors.New("captcha verification required")

	// ErrNotFound means no candidate of a selector cascade yielded a
	// qualifying element. It tells the caller to try the next strategy,
	// not that something broke.
	ErrNotFound = errors.New("no element matched the selector cascade")

	// ErrLocationNotSet means the delivery address could not be established.
	ErrLocationNotSet = errors.New("delivery location could not be set")
)
