package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/survey-service/internal/codec"
	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/navigation"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
)

const exportSheet = "Responses"

// ExportService renders completed responses as a spreadsheet.
type ExportService interface {
	ExportResponses(ctx context.Context, surveyID, ownerID string) ([]byte, error)
}

type exportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		logger: logger,
	}
}

// ExportResponses writes one row per completed response and one column per
// answerable question, in stored question order. Unanswered questions
// leave the cell blank.
func (s *exportService) ExportResponses(ctx context.Context, surveyID, ownerID string) ([]byte, error) {
	if _, err := ownedSurvey(ctx, s.repo, surveyID, ownerID, "export"); err != nil {
		return nil, err
	}

	rows, err := s.repo.Question().ListBySurvey(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	responses, err := s.repo.Response().ListCompleted(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}

	var columns []*models.PersistedQuestion
	for _, q := range navigation.New(rows).Questions() {
		if q.Type != models.ImageBanner {
			columns = append(columns, q)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	header := []interface{}{"Response ID", "Started At", "Completed At"}
	for _, q := range columns {
		header = append(header, q.Text)
	}
	if err := s.writeRow(f, 1, header); err != nil {
		return nil, err
	}

	for i := range responses {
		r := &responses[i]
		row := []interface{}{r.ID, r.StartedAt.UTC().Format(time.RFC3339), ""}
		if r.CompletedAt != nil {
			row[2] = r.CompletedAt.UTC().Format(time.RFC3339)
		}
		for _, q := range columns {
			raw, ok := r.AnswerFor(q.ID)
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, codec.Decode(q, raw).Display())
		}
		if err := s.writeRow(f, i+2, row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Responses exported",
		"survey_id", surveyID,
		"responses", len(responses),
		"columns", len(columns))
	return buf.Bytes(), nil
}

func (s *exportService) writeRow(f *excelize.File, rowNumber int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNumber)
	if err != nil {
		return fmt.Errorf("failed to address row %d: %w", rowNumber, err)
	}
	if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNumber, err)
	}
	return nil
}
