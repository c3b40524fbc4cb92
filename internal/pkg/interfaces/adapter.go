// Package interfaces holds the capability contracts shared across the
// pipeline.
package interfaces

import (
	"context"

	"github.com/kestrelodds/arbiter/internal/pkg/enums"
	"github.com/kestrelodds/arbiter/internal/pkg/models"
)

// Adapter is the capability interface every provider implements. No
// subclassing:
// the four adapter shapes (flat platform, structured, compressed overview,
// browser-driven) all satisfy this one contract and share httputil helpers.
type Adapter interface {
	// BaseURL returns the provider's root endpoint, for logging and health checks.
	BaseURL() string

	// SupportedSports returns the set of sports this adapter can scrape.
	SupportedSports() []enums.SportID

	// Scrape fetches one sport's current events and odds. Adapters never
	// write to the database directly; they return data to the
	// scheduler. ctx carries the per-cycle deadline.
	Scrape(ctx context.Context, sport enums.SportID) ([]models.RawMatch, error)
}

// SessionLifecycle is implemented by adapters that hold a session across
// cycles (session lifetime is at least one scrape cycle; on failure, tear
// down and recreate on the next cycle), currently only the browser-driven
// shape. Plain-HTTP adapters don't need it — their *http.Client is reused
// implicitly and has no fallible teardown step.
type SessionLifecycle interface {
	Adapter
	Close(ctx context.Context) error
}
