package analytics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/davidleathers/aurelius-backend/internal/domain/errors"
)

// ExportedReport is a report rendered for hand-off outside the log store
type ExportedReport struct {
	Filename string
	Content  []byte
}

// ExportFilename is aurelius_report_{period}_{YYYYMMDD_HHMMSS}.json
func ExportFilename(period Period, at time.Time) string {
	if period == "" {
		period = "unknown"
	}
	return fmt.Sprintf("aurelius_report_%s_%s.json", period, at.UTC().Format("20060102_150405"))
}

// ExportReportJSON renders report as JSON indented by two spaces
func ExportReportJSON(report *Report, at time.Time) (*ExportedReport, error) {
	if report == nil {
		return nil, errors.NewValidationError("INVALID_REPORT", "report cannot be nil")
	}

	content, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, errors.NewInternalError("failed to encode report").WithCause(err)
	}

	return &ExportedReport{
		Filename: ExportFilename(report.Period, at),
		Content:  content,
	}, nil
}

// Save writes the export into dir, creating it if needed, and returns the file path
func (e *ExportedReport) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(dir, e.Filename)
	if err := os.WriteFile(path, e.Content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report export: %w", err)
	}

	return path, nil
}

// ExportReport renders the report and, when an export directory is configured, writes it there
func (s *service) ExportReport(report *Report) (*ExportedReport, error) {
	export, err := ExportReportJSON(report, s.now())
	if err != nil {
		s.logger.Error("failed to export report", zap.Error(err))
		return nil, err
	}

	if s.cfg.ExportDir != "" {
		path, err := export.Save(s.cfg.ExportDir)
		if err != nil {
			s.logger.Error("failed to save report export", zap.String("dir", s.cfg.ExportDir), zap.Error(err))
			return export, err
		}
		s.logger.Info("exported report", zap.String("path", path))
		return export, nil
	}

	s.logger.Info("exported report as JSON", zap.String("filename", export.Filename))
	return export, nil
}
