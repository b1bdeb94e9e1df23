package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iconwatch/iconwatch/internal/app"
	"github.com/iconwatch/iconwatch/internal/config"
	"github.com/iconwatch/iconwatch/internal/daemon"
	"github.com/iconwatch/iconwatch/internal/database"
	"github.com/iconwatch/iconwatch/internal/log"
	"github.com/iconwatch/iconwatch/internal/presenter"
	"github.com/iconwatch/iconwatch/internal/tray"
	"github.com/iconwatch/iconwatch/pkg/detector"
	"github.com/iconwatch/iconwatch/pkg/window"
)

type runOptions struct {
	headless bool
	web      bool
	port     int
	backend  string
	fixture  string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watch the desktop in the foreground",
		Long: `Run subscribes to foreground window changes and lists the desktop icons
every time the desktop comes to the front. It runs with a tray icon unless
--headless is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if err := opts.apply(cmd, cfg); err != nil {
				return err
			}
			return runService(cfg, opts.headless || !cfg.Tray.Enabled)
		},
	}

	cmd.Flags().BoolVar(&opts.headless, "headless", false, "Run without tray icon or balloons")
	cmd.Flags().BoolVar(&opts.web, "web", false, "Serve the status API")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Port for the status API")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "Desktop backend (auto, win32, x11, fixture)")
	cmd.Flags().StringVar(&opts.fixture, "fixture", "", "Fixture file for the fixture backend")

	return cmd
}

func (o *runOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	if o.backend != "" {
		if err := cfg.SetBackend(o.backend); err != nil {
			return err
		}
	}
	if o.fixture != "" {
		cfg.Detector.FixturePath = o.fixture
		if o.backend == "" {
			cfg.Detector.Backend = config.BackendFixture
		}
	}
	if cmd.Flags().Changed("web") {
		cfg.Web.Enabled = o.web
	}
	if o.port > 0 {
		if err := cfg.SetWebPort(o.port); err != nil {
			return err
		}
		cfg.Web.Enabled = true
	}
	return cfg.Validate()
}

// openJournal returns nil when the journal is disabled
func openJournal(cfg *config.Config) (*database.DB, *database.Repository, error) {
	if !cfg.Database.Enabled {
		return nil, nil, nil
	}
	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Initialize(); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, database.NewRepository(db), nil
}

func runService(cfg *config.Config, headless bool) error {
	logger := log.WithComponent("cli")

	dm := daemon.New(cfg.Daemon.PIDFile)
	if err := dm.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := dm.RemovePID(); err != nil {
			logger.Warn().Err(err).Msg("Failed to remove PID file")
		}
	}()

	platform, err := detector.New(cfg.Detector, log.WithComponent("detector"))
	if err != nil {
		return err
	}
	defer platform.Close()

	db, repo, err := openJournal(cfg)
	if err != nil {
		return err
	}
	var journal app.Journal
	if repo != nil {
		defer db.Close()
		journal = repo
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Int("pid", os.Getpid()).Str("backend", platform.Name()).Bool("headless", headless).Msg("iconwatch started")

	if headless {
		svc := app.NewService(cfg, platform, journal, nil, nil)
		return svc.Start(ctx)
	}
	return runWithTray(ctx, cfg, platform, journal)
}

// runWithTray runs the service with a system tray icon on the calling
// goroutine, which must be the main one.
func runWithTray(ctx context.Context, cfg *config.Config, platform window.Platform, journal app.Journal) error {
	svc := app.NewService(cfg, platform, journal, tray.Presence{}, presenter.BeeepBalloon{IconPath: cfg.Tray.IconPath})
	svc.Board().Subscribe(tray.Update)

	errCh := make(chan error, 1)
	var started atomic.Bool
	onStart := func() {
		started.Store(true)
		go func() {
			errCh <- svc.Start(ctx)
			tray.Quit()
		}()
	}
	onExit := func() {
		svc.Stop()
	}

	// Blocks until the tray exits
	tray.Run(svc, onStart, onExit)

	if !started.Load() {
		return fmt.Errorf("tray exited before the service started")
	}
	return <-errCh
}
