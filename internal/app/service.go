// Package app wires the desktop pipeline together: platform hook, notifier,
// scanner, publisher, status board, presenter, journal and web API.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/iconwatch/iconwatch/internal/config"
	"github.com/iconwatch/iconwatch/internal/enumerator"
	"github.com/iconwatch/iconwatch/internal/log"
	"github.com/iconwatch/iconwatch/internal/metrics"
	"github.com/iconwatch/iconwatch/internal/models"
	"github.com/iconwatch/iconwatch/internal/notifier"
	"github.com/iconwatch/iconwatch/internal/presenter"
	"github.com/iconwatch/iconwatch/internal/publisher"
	"github.com/iconwatch/iconwatch/internal/scanner"
	"github.com/iconwatch/iconwatch/internal/status"
	"github.com/iconwatch/iconwatch/internal/web"
	"github.com/iconwatch/iconwatch/pkg/window"
)

// ErrAlreadyStarted is returned by a second Start. A Service runs once.
var ErrAlreadyStarted = errors.New("service already started")

// Journal persists scan outcomes and errors
type Journal interface {
	web.Journal
	CreateScan(record *models.ScanRecord) error
	CreateErrorLog(errorLog *models.ErrorLog) error
	DeleteOldScans(before time.Time) (int64, error)
}

// Service runs the desktop pipeline until its context ends or Stop is called
type Service struct {
	config    *config.Config
	platform  window.Platform
	journal   Journal
	board     *status.Board
	presenter *presenter.Presenter
	publisher *publisher.Publisher
	scanner   *scanner.Scanner
	notifier  *notifier.Notifier
	log       zerolog.Logger

	mu       sync.Mutex
	started  bool
	stopChan chan struct{}
	stopOnce sync.Once
	ready    chan struct{}
}

// NewService builds the pipeline over platform. journal, tray and balloon
// may be nil.
func NewService(cfg *config.Config, platform window.Platform, journal Journal, tray presenter.TrayPresence, balloon presenter.Balloon) *Service {
	s := &Service{
		config:   cfg,
		platform: platform,
		journal:  journal,
		board:    status.NewBoard(),
		log:      log.WithComponent("app"),
		stopChan: make(chan struct{}),
		ready:    make(chan struct{}),
	}

	s.presenter = presenter.New(tray, balloon, cfg.Tray.BalloonTitle, cfg.Tray.BalloonText, log.WithComponent("presenter"))
	s.publisher = publisher.New(s.board,
		publisher.WithDiscardStale(cfg.Scanner.DiscardStale),
		publisher.WithObserver(s.recordScan),
		publisher.WithLogger(log.WithComponent("publisher")),
	)
	s.scanner = scanner.New(platform, s.presenter, enumerator.New(platform.Tree()), s.publisher, log.WithComponent("scanner"))
	s.notifier = notifier.New(platform.Hook(), platform.Name(), log.WithComponent("notifier"))

	return s
}

// Board returns the status board the surfaces render
func (s *Service) Board() *status.Board {
	return s.board
}

// Presenter returns the surface visibility owner
func (s *Service) Presenter() *presenter.Presenter {
	return s.presenter
}

// Scanner returns the scanner, for one-shot scans
func (s *Service) Scanner() *scanner.Scanner {
	return s.scanner
}

// Ready is closed once Start has registered the foreground subscription
func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Start subscribes to foreground changes, puts the application in the
// background and serves the web API when enabled. It blocks until ctx is
// done or Stop is called. A refused subscription is returned immediately.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	s.pruneJournal()

	s.notifier.OnForegroundChanged(s.scanner.HandleForegroundChange)
	if err := s.notifier.Start(); err != nil {
		s.storeError("notifier", err)
		return err
	}
	defer s.shutdownPipeline()

	s.log.Info().
		Str("backend", s.platform.Name()).
		Bool("discard_stale", s.config.Scanner.DiscardStale).
		Msg("Watching for the desktop")

	s.presenter.Start()
	close(s.ready)

	g, gctx := errgroup.WithContext(ctx)

	if s.config.Web.Enabled {
		server := web.NewServer(s.config, web.NewHandler(s.config, s.board, s.journal, s.platform.Name(), log.WithComponent("web")), 0, log.WithComponent("web"))
		s.log.Info().Str("addr", server.GetAddress()).Msg("Status API enabled")
		g.Go(server.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Web.ShutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		select {
		case <-gctx.Done():
			return gctx.Err()
		case <-s.stopChan:
			s.log.Info().Msg("Stop requested")
			return errStopped
		}
	})

	err := g.Wait()
	if errors.Is(err, errStopped) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

var errStopped = errors.New("stopped")

// Stop ends Start. It is safe to call more than once.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// RestoreToNormal shows the status surface
func (s *Service) RestoreToNormal() {
	s.presenter.RestoreToNormal()
}

// Minimize sends the status surface back to the tray
func (s *Service) Minimize() {
	s.presenter.Minimize()
}

// RequestShutdown is the tray's quit action
func (s *Service) RequestShutdown() {
	s.Stop()
}

// ScanOnce reports whether the desktop is in the foreground and, when it
// is or force is set, enumerates the icons on the calling goroutine
func (s *Service) ScanOnce(force bool) (bool, publisher.Report, error) {
	isDesktop := s.scanner.CheckActiveWindow()
	if !isDesktop && !force {
		return false, publisher.Report{}, nil
	}
	report := s.scanner.ScanNow()
	return isDesktop, report, report.Err
}

func (s *Service) shutdownPipeline() {
	if err := s.notifier.Close(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to close foreground hook")
	}
	s.scanner.Wait()
}

// pruneJournal drops scans older than the configured retention
func (s *Service) pruneJournal() {
	days := s.config.Database.RetentionDays
	if s.journal == nil || days <= 0 {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	deleted, err := s.journal.DeleteOldScans(cutoff)
	if err != nil {
		s.storeError("journal", fmt.Errorf("failed to prune scans before %s: %w", cutoff.Format(time.DateOnly), err))
		return
	}
	if deleted > 0 {
		s.log.Info().Int64("deleted", deleted).Int("retention_days", days).Msg("Pruned old scans")
	}
}

func (s *Service) recordScan(r publisher.Report) {
	metrics.RecordScan(string(r.Outcome), r.Duration(), r.Result.Count)

	event := s.log.Debug()
	if r.Outcome == publisher.OutcomeFailed {
		event = s.log.Warn().Err(r.Err)
	}
	event.
		Str("scan_id", r.ID).
		Uint64("generation", r.Generation).
		Str("outcome", string(r.Outcome)).
		Int("count", r.Result.Count).
		Dur("took", r.Duration()).
		Msg("Scan completed")

	if s.journal == nil {
		return
	}

	record := &models.ScanRecord{
		ScanID:     r.ID,
		Generation: r.Generation,
		StartedAt:  r.Started,
		DurationMs: r.Duration().Milliseconds(),
		Outcome:    string(r.Outcome),
		IconCount:  r.Result.Count,
		Backend:    s.platform.Name(),
	}
	if r.Err != nil {
		record.Error = r.Err.Error()
	}
	if err := s.journal.CreateScan(record); err != nil {
		s.storeError("journal", fmt.Errorf("failed to journal scan %s: %w", r.ID, err))
	}
}

func (s *Service) storeError(component string, err error) {
	if s.journal == nil {
		s.log.Error().Err(err).Str("component", component).Msg("Error")
		return
	}

	errorLog := &models.ErrorLog{
		Timestamp: time.Now(),
		Component: component,
		ErrorMsg:  err.Error(),
	}

	if dbErr := s.journal.CreateErrorLog(errorLog); dbErr != nil {
		s.log.Error().Err(err).AnErr("db_error", dbErr).Msg("Failed to store error in database")
	} else {
		s.log.Error().Err(err).Str("component", component).Msg("Error logged to database")
	}
}
