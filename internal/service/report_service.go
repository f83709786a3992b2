package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/questionbank-api/internal/models"
	"github.com/noah-isme/questionbank-api/internal/repository"
)

const (
	reportAnswersSheet = "Answers"
	reportSummarySheet = "Summary"
	reportTimeLayout   = "2006-01-02 15:04:05"
)

var reportHeaders = []string{
	"Answer ID", "Submitted By", "Type", "Score", "Max Score", "Correct",
	"Plagiarism Score", "Plagiarized", "Submitted At",
}

// Report is a generated spreadsheet ready to be streamed.
type Report struct {
	Filename string
	Data     []byte
}

// ReportService exports the answers to a question as a spreadsheet.
type ReportService interface {
	QuestionReport(ctx context.Context, questionID uuid.UUID) (Report, error)
}

type reportService struct {
	questions repository.QuestionRepository
	answers   repository.AnswerRepository
	logger    zerolog.Logger
}

// NewReportService builds the report service.
func NewReportService(questions repository.QuestionRepository, answers repository.AnswerRepository, logger zerolog.Logger) ReportService {
	return &reportService{
		questions: questions,
		answers:   answers,
		logger:    logger.With().Str("component", "report_service").Logger(),
	}
}

func (s *reportService) QuestionReport(ctx context.Context, questionID uuid.UUID) (Report, error) {
	question, err := findQuestion(ctx, s.questions, questionID)
	if err != nil {
		return Report{}, err
	}
	answers, err := s.answers.ListByQuestion(ctx, questionID)
	if err != nil {
		return Report{}, err
	}

	file := excelize.NewFile()
	defer func() {
		if err := file.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to close report workbook")
		}
	}()

	if err := file.SetSheetName("Sheet1", reportAnswersSheet); err != nil {
		return Report{}, fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeAnswerRows(file, answers); err != nil {
		return Report{}, err
	}
	if _, err := file.NewSheet(reportSummarySheet); err != nil {
		return Report{}, fmt.Errorf("create summary sheet: %w", err)
	}
	if err := writeSummary(file, question, answers); err != nil {
		return Report{}, err
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return Report{}, fmt.Errorf("write report: %w", err)
	}

	s.logger.Info().Str("question_id", questionID.String()).Int("answers", len(answers)).Msg("question report generated")
	return Report{
		Filename: fmt.Sprintf("question-%s-report.xlsx", questionID.String()[:8]),
		Data:     buf.Bytes(),
	}, nil
}

func writeAnswerRows(file *excelize.File, answers []models.Answer) error {
	if err := file.SetSheetRow(reportAnswersSheet, "A1", &reportHeaders); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	style, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = file.SetRowStyle(reportAnswersSheet, 1, 1, style)
	}

	for i, answer := range answers {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			answer.ID.String(),
			answer.SubmittedBy,
			answer.Type.DisplayName(),
			answer.Score,
			answer.MaxScore,
			yesNo(answer.IsCorrect),
			answer.PlagiarismScore,
			yesNo(answer.IsPlagiarized),
			answer.CreatedAt.UTC().Format(reportTimeLayout),
		}
		if err := file.SetSheetRow(reportAnswersSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return file.SetColWidth(reportAnswersSheet, "A", "I", 18)
}

func writeSummary(file *excelize.File, question models.Question, answers []models.Answer) error {
	var total float64
	var correct, flagged int
	for _, answer := range answers {
		total += answer.Score
		if answer.IsCorrect {
			correct++
		}
		if answer.IsPlagiarized {
			flagged++
		}
	}
	average := 0.0
	if len(answers) > 0 {
		average = total / float64(len(answers))
	}

	rows := [][]interface{}{
		{"Question", strings.TrimSpace(question.Title)},
		{"Type", question.Type.DisplayName()},
		{"Points", question.Points},
		{"Answers", len(answers)},
		{"Correct", correct},
		{"Average Score", average},
		{"Flagged For Plagiarism", flagged},
	}
	for i := range rows {
		if err := file.SetSheetRow(reportSummarySheet, fmt.Sprintf("A%d", i+1), &rows[i]); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	return file.SetColWidth(reportSummarySheet, "A", "B", 26)
}

func yesNo(value bool) string {
	if value {
		return "Yes"
	}
	return "No"
}
