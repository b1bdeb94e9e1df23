// Package publisher delivers enumeration results to the status surface.
package publisher

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iconwatch/iconwatch/internal/enumerator"
)

// Surface is the status display fed by the publisher. Implementations must
// be safe for use from multiple goroutines.
type Surface interface {
	SetLoadingState()
	SetIconListText(text string)
	SetIconCountText(text string)
	SetFailureState(err error)
}

// ResultSurface is a Surface that can take the list and the count of a
// result in a single update
type ResultSurface interface {
	Surface
	SetResult(listText, countText string)
}

// Outcome classifies a completed enumeration
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeFailed    Outcome = "failed"
	OutcomeDiscarded Outcome = "discarded"
)

// Ticket identifies one in-flight enumeration
type Ticket struct {
	ID         string
	Generation uint64
	Started    time.Time
}

// Report describes what happened to a completed enumeration
type Report struct {
	Ticket
	Outcome  Outcome
	Result   enumerator.Result
	Err      error
	Finished time.Time
}

// Duration returns how long the enumeration ran
func (r Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Observer is told about every completed enumeration, after the surface was updated
type Observer func(Report)

// Option configures a Publisher
type Option func(*Publisher)

// WithDiscardStale drops completions that are older than the latest Begin
func WithDiscardStale(discard bool) Option {
	return func(p *Publisher) { p.discardStale = discard }
}

// WithObserver registers an observer
func WithObserver(o Observer) Option {
	return func(p *Publisher) { p.observers = append(p.observers, o) }
}

// WithLogger sets the publisher's logger
func WithLogger(l zerolog.Logger) Option {
	return func(p *Publisher) { p.log = l }
}

// Publisher serializes surface updates. The list and the count of one result
// are always written together, so a surface never mixes two results.
type Publisher struct {
	mu           sync.Mutex
	surface      Surface
	discardStale bool
	latest       uint64
	observers    []Observer
	log          zerolog.Logger
	now          func() time.Time
}

// New creates a publisher writing to surface
func New(surface Surface, opts ...Option) *Publisher {
	p := &Publisher{
		surface: surface,
		log:     zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Begin starts a new generation and puts the surface in its loading state.
// It is called on the detection path, before the worker is spawned.
func (p *Publisher) Begin() Ticket {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.latest++
	p.surface.SetLoadingState()

	return Ticket{
		ID:         uuid.NewString(),
		Generation: p.latest,
		Started:    p.now(),
	}
}

// Complete publishes the outcome of the enumeration identified by t
func (p *Publisher) Complete(t Ticket, res enumerator.Result, err error) Report {
	p.mu.Lock()
	report := Report{Ticket: t, Result: res, Err: err, Finished: p.now()}

	switch {
	case p.discardStale && t.Generation < p.latest:
		report.Outcome = OutcomeDiscarded
		p.log.Debug().
			Str("scan_id", t.ID).
			Uint64("generation", t.Generation).
			Uint64("latest", p.latest).
			Msg("Discarding stale enumeration")
	case err != nil:
		report.Outcome = OutcomeFailed
		p.surface.SetFailureState(err)
		p.log.Warn().Err(err).Str("scan_id", t.ID).Msg("Desktop enumeration failed")
	default:
		report.Outcome = OutcomeOK
		p.writeResult(res)
		p.log.Info().
			Str("scan_id", t.ID).
			Int("count", res.Count).
			Dur("took", report.Duration()).
			Msg("Desktop icons published")
	}
	observers := p.observers
	p.mu.Unlock()

	for _, o := range observers {
		o(report)
	}
	return report
}

func (p *Publisher) writeResult(res enumerator.Result) {
	if rs, ok := p.surface.(ResultSurface); ok {
		rs.SetResult(res.ListText(), res.CountText())
		return
	}
	p.surface.SetIconListText(res.ListText())
	p.surface.SetIconCountText(res.CountText())
}

// Latest returns the most recent generation handed out by Begin
func (p *Publisher) Latest() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}
