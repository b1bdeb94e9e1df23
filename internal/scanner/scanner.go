// Package scanner decides when the desktop became the foreground window and
// hands the icon enumeration to a worker goroutine.
package scanner

import (
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/iconwatch/iconwatch/internal/enumerator"
	"github.com/iconwatch/iconwatch/internal/metrics"
	"github.com/iconwatch/iconwatch/internal/publisher"
	"github.com/iconwatch/iconwatch/pkg/window"
)

const (
	// DesktopTitle is the title of the desktop shell window. The match is
	// exact and case-sensitive; localized shells are not recognized.
	DesktopTitle = "Program Manager"

	// MaxTitleLength is the number of title characters read per check
	MaxTitleLength = 256
)

// Presenter is the part of window presentation the scanner drives
type Presenter interface {
	RestoreToNormal()
}

// Enumerator lists the desktop icons
type Enumerator interface {
	Enumerate() (enumerator.Result, error)
}

// Publisher receives the loading signal and the enumeration outcome
type Publisher interface {
	Begin() publisher.Ticket
	Complete(t publisher.Ticket, res enumerator.Result, err error) publisher.Report
}

// Scanner connects foreground notifications to desktop enumerations
type Scanner struct {
	query     window.Querier
	presenter Presenter
	enum      Enumerator
	pub       Publisher
	log       zerolog.Logger

	wg sync.WaitGroup
}

// New creates a scanner
func New(query window.Querier, presenter Presenter, enum Enumerator, pub Publisher, logger zerolog.Logger) *Scanner {
	return &Scanner{
		query:     query,
		presenter: presenter,
		enum:      enum,
		pub:       pub,
		log:       logger,
	}
}

// CheckActiveWindow reports whether the desktop shell is the foreground
// window. A missing window or an empty title is not an error.
func (s *Scanner) CheckActiveWindow() bool {
	h, err := s.query.ForegroundWindow()
	if err != nil {
		s.log.Debug().Err(err).Msg("Foreground window query failed")
		return false
	}
	if h == window.NoHandle {
		return false
	}

	title, err := s.query.WindowText(h, MaxTitleLength)
	if err != nil {
		s.log.Debug().Err(err).Uint64("hwnd", uint64(h)).Msg("Window title query failed")
		return false
	}
	title = truncate(title, MaxTitleLength)
	if title == "" {
		return false
	}

	return title == DesktopTitle
}

// HandleForegroundChange is the notifier callback. It runs on the hook's
// delivery goroutine and returns without waiting for the enumeration.
func (s *Scanner) HandleForegroundChange() {
	metrics.ForegroundEventsTotal.Inc()

	if !s.CheckActiveWindow() {
		return
	}

	metrics.DesktopDetectionsTotal.Inc()
	s.log.Debug().Msg("Desktop became the foreground window")

	s.presenter.RestoreToNormal()
	s.Dispatch()
}

// Dispatch starts an enumeration on a new worker goroutine
func (s *Scanner) Dispatch() publisher.Ticket {
	ticket := s.pub.Begin()

	s.wg.Add(1)
	metrics.ScansInFlight.Inc()
	go func() {
		defer s.wg.Done()
		defer metrics.ScansInFlight.Dec()

		res, err := s.enum.Enumerate()
		s.pub.Complete(ticket, res, err)
	}()

	return ticket
}

// ScanNow runs one enumeration on the calling goroutine
func (s *Scanner) ScanNow() publisher.Report {
	ticket := s.pub.Begin()
	res, err := s.enum.Enumerate()
	return s.pub.Complete(ticket, res, err)
}

// Wait blocks until every dispatched enumeration has been published
func (s *Scanner) Wait() {
	s.wg.Wait()
}

func truncate(title string, maxChars int) string {
	if utf8.RuneCountInString(title) <= maxChars {
		return title
	}
	runes := []rune(title)
	return string(runes[:maxChars])
}
