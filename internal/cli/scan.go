package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iconwatch/iconwatch/internal/app"
	"github.com/iconwatch/iconwatch/internal/log"
	"github.com/iconwatch/iconwatch/pkg/detector"
)

type scanOutput struct {
	Desktop bool     `json:"desktop_foreground"`
	Scanned bool     `json:"scanned"`
	Count   int      `json:"count"`
	Names   []string `json:"names"`
	Error   string   `json:"error,omitempty"`
}

func newScanCmd(root *rootOptions) *cobra.Command {
	var (
		force   bool
		asJSON  bool
		backend string
		fixture string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Check the foreground window once and list the desktop icons",
		Long: `Scan checks whether the desktop is the foreground window and, if it is,
lists its icons. --force lists them regardless of the foreground window.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			run := &runOptions{backend: backend, fixture: fixture}
			if err := run.apply(cmd, cfg); err != nil {
				return err
			}

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

			svc := app.NewService(cfg, platform, journal, nil, nil)
			isDesktop, report, scanErr := svc.ScanOnce(force)

			result := scanOutput{
				Desktop: isDesktop,
				Scanned: isDesktop || force,
				Count:   report.Result.Count,
				Names:   report.Result.Names,
			}
			if result.Names == nil {
				result.Names = []string{}
			}
			if scanErr != nil {
				result.Error = scanErr.Error()
			}

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal JSON: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return scanErr
			}

			if !result.Scanned {
				fmt.Fprintln(out, "The desktop is not the foreground window")
				return nil
			}
			if scanErr != nil {
				return scanErr
			}
			fmt.Fprintf(out, "Desktop icons: %d\n", result.Count)
			for _, name := range result.Names {
				fmt.Fprintf(out, "  %s\n", name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Enumerate even when the desktop is not in the foreground")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().StringVar(&backend, "backend", "", "Desktop backend (auto, win32, x11, fixture)")
	cmd.Flags().StringVar(&fixture, "fixture", "", "Fixture file for the fixture backend")

	return cmd
}
