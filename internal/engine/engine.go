package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/coachbook/internal/domain"
	"github.com/roach88/coachbook/internal/state"
)

// DefaultFallbackPrice is the session price used when no "standard" rate exists.
const DefaultFallbackPrice = 100.00

// Renderer turns assembled data into an opaque document artifact.
// The engine never inspects the returned bytes.
type Renderer interface {
	RenderConsent(ctx context.Context, data ConsentData) ([]byte, error)
	RenderInvoice(ctx context.Context, data InvoiceData) ([]byte, error)
}

// ConsentData is everything a renderer needs for a consent record.
type ConsentData struct {
	CompanyName string
	CoacheeID   string
	CoacheeName string
	Type        domain.ConsentType
	PolicyText  string
	GrantedAt   time.Time
}

// InvoiceData is everything a renderer needs for an invoice.
type InvoiceData struct {
	Invoice     domain.Invoice
	CoacheeName string
	Settings    domain.Settings
}

// Engine applies business rules on top of a state.Store.
//
// Thread-safety model:
//   - All methods are safe from any goroutine
//   - Each committed rule is exactly one Dispatch; IssueDue commits one
//     Dispatch per issued schedule
//   - Methods that derive a commit from the snapshot (invoice numbers,
//     billing, schedule dates) hold commitMu from the read to the Dispatch,
//     so two engine calls never derive from the same snapshot. Writers that
//     dispatch to the store directly are not covered.
//   - GrantConsent renders outside commitMu; the store itself refuses a
//     second grant of the same consent
type Engine struct {
	commitMu sync.Mutex

	store         *state.Store
	clock         Clock
	ids           IDGenerator
	renderer      Renderer
	logger        *slog.Logger
	fallbackPrice float64
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithClock sets the clock used for dates on new entities.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithIDGenerator sets the entity id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithRenderer sets the document renderer. Without one, consent grants fail
// with RENDER_FAILED.
func WithRenderer(r Renderer) Option {
	return func(e *Engine) { e.renderer = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithFallbackPrice sets the session price used when no standard rate exists.
//
// Default: 100.00 (DefaultFallbackPrice)
func WithFallbackPrice(p float64) Option {
	return func(e *Engine) { e.fallbackPrice = p }
}

// New creates an Engine over the given store.
func New(s *state.Store, opts ...Option) *Engine {
	e := &Engine{
		store:         s,
		clock:         SystemClock{},
		ids:           UUIDv7Generator{},
		logger:        slog.Default(),
		fallbackPrice: DefaultFallbackPrice,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Store returns the underlying store.
func (e *Engine) Store() *state.Store { return e.store }

// NewID returns a fresh entity id from the configured generator.
func (e *Engine) NewID() string { return e.ids.Generate() }

// Now returns the configured clock's time.
func (e *Engine) Now() time.Time { return e.clock.Now() }
