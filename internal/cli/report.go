package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iconwatch/iconwatch/internal/database"
	"github.com/iconwatch/iconwatch/internal/reporter"
)

func newReportCmd(root *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:       "report [day|week|month]",
		Short:     "Summarize recorded scans",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"day", "week", "month"},
		RunE: func(cmd *cobra.Command, args []string) error {
			periodType := "day"
			if len(args) > 0 {
				periodType = args[0]
			}

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			db, err := database.Connect(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Initialize(); err != nil {
				return err
			}

			rep := reporter.New(cfg, database.NewRepository(db))
			report, err := rep.GenerateReport(periodType)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				text, err := rep.FormatReportJSON(report)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, text)
				return nil
			}
			fmt.Fprint(out, rep.FormatReportText(report))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func newClearCmd(root *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded scans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if !yes {
				fmt.Fprint(out, "This will delete all recorded scans. Are you sure? (yes/no): ")
				response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				response = strings.TrimSpace(response)
				if response != "yes" && response != "y" {
					fmt.Fprintln(out, "Operation cancelled")
					return nil
				}
			}

			db, err := database.Connect(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Initialize(); err != nil {
				return err
			}

			if err := database.NewRepository(db).Clear(); err != nil {
				return fmt.Errorf("failed to clear database: %w", err)
			}

			fmt.Fprintln(out, "Database cleared successfully")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
