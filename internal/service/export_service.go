package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/codepet/classroom-sync-api/internal/models"
	appErrors "github.com/codepet/classroom-sync-api/pkg/errors"
	"github.com/codepet/classroom-sync-api/pkg/export"
)

// Export formats supported for the run history.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type runHistory interface {
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]models.ImportRun, error)
}

// ExportService renders the import run history as downloadable files.
type ExportService struct {
	runs   runHistory
	logger *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(runs runHistory, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{runs: runs, logger: logger}
}

// ExportFile is a rendered export ready to serve.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportRuns renders the owner's recent import runs in the requested format.
func (s *ExportService) ExportRuns(ctx context.Context, ownerID, format string, limit int) (*ExportFile, error) {
	runs, err := s.runs.ListByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, err
	}

	table := buildRunTable(ownerID, runs)
	stamp := time.Now().UTC().Format("20060102-150405")

	switch strings.ToLower(format) {
	case ExportFormatCSV:
		body, err := export.RenderCSV(table)
		if err != nil {
			return nil, fmt.Errorf("render csv: %w", err)
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("import-runs-%s.csv", stamp),
			ContentType: "text/csv",
			Body:        body,
		}, nil
	case ExportFormatPDF:
		body, err := export.RenderPDF(table)
		if err != nil {
			return nil, fmt.Errorf("render pdf: %w", err)
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("import-runs-%s.pdf", stamp),
			ContentType: "application/pdf",
			Body:        body,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("unsupported export format %q", format))
	}
}

func buildRunTable(ownerID string, runs []models.ImportRun) export.Table {
	table := export.Table{
		Title: fmt.Sprintf("Import runs for %s", ownerID),
		Columns: []string{"Run ID", "Outcome", "Short-circuited", "Entities written",
			"Errors", "Duration (ms)", "Finished at"},
	}
	for _, run := range runs {
		table.Rows = append(table.Rows, []string{
			run.ID,
			run.Outcome,
			strconv.FormatBool(run.ShortCircuited),
			strconv.Itoa(entitiesWritten(run.Stats)),
			strconv.Itoa(run.ErrorCount),
			strconv.FormatInt(run.DurationMs, 10),
			run.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return table
}

func entitiesWritten(raw json.RawMessage) int {
	var stats models.ImportStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return 0
	}
	return stats.ClassroomsCreated + stats.ClassroomsUpdated +
		stats.AssignmentsCreated + stats.AssignmentsUpdated +
		stats.SubmissionsCreated + stats.SubmissionsUpdated + stats.SubmissionsVersioned +
		stats.EnrollmentsCreated + stats.EnrollmentsUpdated
}
