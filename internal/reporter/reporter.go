package reporter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/iconwatch/iconwatch/internal/config"
	"github.com/iconwatch/iconwatch/internal/models"
	"github.com/iconwatch/iconwatch/pkg/utils"
)

// Store is the part of the journal the reporter reads
type Store interface {
	GetOutcomeSummarySince(since time.Time) ([]models.OutcomeSummary, error)
	GetLatestSuccessful() (*models.ScanRecord, error)
}

// Reporter handles report generation
type Reporter struct {
	config *config.Config
	repo   Store
	now    func() time.Time
}

// New creates a new reporter
func New(cfg *config.Config, repo Store) *Reporter {
	return &Reporter{
		config: cfg,
		repo:   repo,
		now:    time.Now,
	}
}

// GenerateReport generates a scan report for the specified period
func (r *Reporter) GenerateReport(periodType string) (*models.Report, error) {
	period, err := r.getPeriod(periodType)
	if err != nil {
		return nil, err
	}

	summaries, err := r.repo.GetOutcomeSummarySince(period.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to get outcome summary: %w", err)
	}

	report := &models.Report{
		Period:      *period,
		Outcomes:    summaries,
		GeneratedAt: r.now(),
	}

	var succeeded int
	var totalMs int64
	for _, s := range summaries {
		report.TotalScans += s.ScanCount
		totalMs += s.TotalMs
		if s.Outcome == "ok" {
			succeeded = s.ScanCount
		}
	}
	if report.TotalScans > 0 {
		report.SuccessRate = float64(succeeded) / float64(report.TotalScans) * 100.0
		report.AverageLatency = float64(totalMs) / float64(report.TotalScans)
	}

	latest, err := r.repo.GetLatestSuccessful()
	if err != nil {
		return nil, fmt.Errorf("failed to get latest scan: %w", err)
	}
	if latest != nil {
		report.LastIconCount = latest.IconCount
		at := latest.StartedAt
		report.LastScanAt = &at
	}

	return report, nil
}

// getPeriod calculates the time range for the report
func (r *Reporter) getPeriod(periodType string) (*models.ReportPeriod, error) {
	now := r.now().In(r.config.Location())
	var start, end time.Time

	switch periodType {
	case "day", "today":
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 0, 1)

	case "week":
		// Start of week (Monday)
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday = 7
		}
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0)

	default:
		return nil, fmt.Errorf("invalid period type: %s (valid: day, week, month)", periodType)
	}

	return &models.ReportPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *models.Report) string {
	output := fmt.Sprintf("Desktop Scan Report - %s\n", report.Period.Type)
	output += fmt.Sprintf("Period: %s to %s\n",
		report.Period.Start.Format("2006-01-02 15:04"),
		report.Period.End.Format("2006-01-02 15:04"))

	if report.TotalScans == 0 {
		output += "\nNo scans recorded for this period.\n"
		return output
	}

	output += fmt.Sprintf("Scans: %d (%.1f%% succeeded, average %s)\n",
		report.TotalScans,
		report.SuccessRate,
		utils.FormatLatency(time.Duration(report.AverageLatency*float64(time.Millisecond))))
	if report.LastScanAt != nil {
		output += fmt.Sprintf("Last icon count: %d at %s\n",
			report.LastIconCount,
			report.LastScanAt.In(r.config.Location()).Format("2006-01-02 15:04:05"))
	}
	output += "\n"

	output += fmt.Sprintf("%-12s %8s %12s %10s\n", "Outcome", "Scans", "Avg", "Max Icons")
	output += fmt.Sprintf("%s\n", "----------------------------------------------")

	for _, s := range report.Outcomes {
		output += fmt.Sprintf("%-12s %8d %12s %10d\n",
			utils.Truncate(s.Outcome, 12),
			s.ScanCount,
			utils.FormatLatency(time.Duration(s.AverageMs*float64(time.Millisecond))),
			s.MaxIconCount)
	}

	return output
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}
