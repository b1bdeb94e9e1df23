package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iconwatch/iconwatch/internal/daemon"
)

const (
	stopTimeout  = 10 * time.Second
	startupGrace = 500 * time.Millisecond
)

func newStartCmd(root *rootOptions) *cobra.Command {
	var headless bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start iconwatch in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			dm := daemon.New(cfg.Daemon.PIDFile)
			running, pid, err := dm.IsRunning()
			if err != nil {
				return fmt.Errorf("failed to check daemon status: %w", err)
			}
			if running {
				fmt.Fprintf(cmd.OutOrStdout(), "iconwatch is already running (PID %d)\n", pid)
				return nil
			}

			childArgs := []string{"run"}
			if root.configPath != "" {
				childArgs = append(childArgs, "--config", root.configPath)
			}
			if root.logLevel != "" {
				childArgs = append(childArgs, "--log-level", root.logLevel)
			}
			if headless {
				childArgs = append(childArgs, "--headless")
			}

			pid, err = daemon.Spawn(childArgs, cfg.Daemon.LogFile)
			if err != nil {
				return err
			}

			// Give the child a moment to fail fast on a bad backend
			time.Sleep(startupGrace)
			if running, _, _ := dm.IsRunning(); !running {
				return fmt.Errorf("iconwatch exited during startup, see %s", cfg.Daemon.LogFile)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "iconwatch started (PID %d)\n", pid)
			fmt.Fprintf(cmd.OutOrStdout(), "Logs: %s\n", cfg.Daemon.LogFile)
			return nil
		},
	}

	cmd.Flags().BoolVar(&headless, "headless", false, "Run without tray icon or balloons")
	return cmd
}

func newStopCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background iconwatch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			dm := daemon.New(cfg.Daemon.PIDFile)
			if err := dm.Stop(stopTimeout); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "iconwatch stopped")
			return nil
		},
	}
}

func newStatusCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether iconwatch is running and the last scan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			dm := daemon.New(cfg.Daemon.PIDFile)
			running, pid, err := dm.IsRunning()
			if err != nil {
				return fmt.Errorf("failed to check daemon status: %w", err)
			}

			if running {
				fmt.Fprintf(out, "Status: Running (PID: %d)\n", pid)
			} else {
				fmt.Fprintln(out, "Status: Not running")
			}
			fmt.Fprintf(out, "Backend: %s\n", cfg.Detector.Backend)
			if cfg.Web.Enabled {
				fmt.Fprintf(out, "Web: http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
			}

			db, repo, err := openJournal(cfg)
			if err != nil {
				fmt.Fprintf(out, "\nJournal unavailable: %v\n", err)
				return nil
			}
			if repo == nil {
				return nil
			}
			defer db.Close()

			latest, err := repo.GetLatest()
			if err != nil {
				return err
			}
			if latest == nil {
				fmt.Fprintln(out, "\nNo scans recorded yet")
			} else {
				fmt.Fprintf(out, "\nLast scan:\n")
				fmt.Fprintf(out, "  At: %s\n", latest.StartedAt.In(cfg.Location()).Format("2006-01-02 15:04:05"))
				fmt.Fprintf(out, "  Outcome: %s\n", latest.Outcome)
				fmt.Fprintf(out, "  Icons: %d\n", latest.IconCount)
				if latest.Error != "" {
					fmt.Fprintf(out, "  Error: %s\n", latest.Error)
				}
			}

			errs, err := repo.ListErrors(1)
			if err != nil {
				return err
			}
			if len(errs) > 0 {
				fmt.Fprintf(out, "\nLast error (%s, %s):\n  %s\n",
					errs[0].Component,
					errs[0].Timestamp.In(cfg.Location()).Format("2006-01-02 15:04:05"),
					errs[0].ErrorMsg)
			}
			return nil
		},
	}
}
