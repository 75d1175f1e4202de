package service

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/whatif-grades-api/internal/models"
	appErrors "github.com/noah-isme/whatif-grades-api/pkg/errors"
	"github.com/noah-isme/whatif-grades-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

var exportHeaders = []string{"Name", "Points", "Max Points", "Percent", "Letter", "Detail", "Status"}

// ExportResult is a rendered download.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService flattens a rendered course tree into CSV or PDF.
type ExportService struct {
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// Render produces the download for a course view.
func (s *ExportService) Render(view models.CourseView, format string) (*ExportResult, error) {
	dataset := buildCourseDataset(view)
	title := view.Name
	if view.WhatIf {
		title += " (what-if)"
	}

	var (
		body        []byte
		err         error
		contentType string
	)
	switch strings.ToLower(format) {
	case "", ExportFormatCSV:
		format = ExportFormatCSV
		contentType = "text/csv"
		body, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		format = ExportFormatPDF
		contentType = "application/pdf"
		body, err = s.pdf.Render(dataset, title)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %s", format))
	}
	if err != nil {
		s.logger.Error("export render failed", zap.String("course_id", view.ID), zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportResult{
		Filename:    s.buildFilename(view, format),
		ContentType: contentType,
		Body:        body,
	}, nil
}

func (s *ExportService) buildFilename(view models.CourseView, format string) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	mode := "actual"
	if view.WhatIf {
		mode = "whatif"
	}
	return fmt.Sprintf("%s_%s_%s.%s", sanitizeFilename(view.Name), mode, timestamp, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "course"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_", `"`, "")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func buildCourseDataset(view models.CourseView) export.Dataset {
	rows := []export.Row{gradeRow(view.GradeView, 0, true)}
	for _, period := range view.Periods {
		rows = append(rows, gradeRow(period.GradeView, 1, true))
		for _, category := range period.Categories {
			rows = append(rows, gradeRow(category.GradeView, 2, true))
			for _, assignment := range category.Assignments {
				row := gradeRow(assignment.GradeView, 3, false)
				if assignment.Exception != "" {
					row.Values["Status"] = joinStatus(row.Values["Status"], assignment.Exception)
				}
				rows = append(rows, row)
			}
		}
	}
	return export.Dataset{
		Headers: exportHeaders,
		Rows:    rows,
		Widths:  []float64{5, 1.2, 1.2, 1.2, 1.5, 3, 2},
	}
}

func gradeRow(v models.GradeView, depth int, emphasis bool) export.Row {
	var status []string
	if v.Loading {
		status = append(status, "loading")
	}
	if v.Failed {
		status = append(status, "failed")
	}
	if v.Modified {
		status = append(status, "modified")
	}
	if v.Dropped {
		status = append(status, "dropped")
	}
	if v.Ignored {
		status = append(status, "ignored")
	}
	return export.Row{
		Depth:    depth,
		Emphasis: emphasis,
		Values: map[string]string{
			"Name":       v.Name,
			"Points":     v.Points,
			"Max Points": v.MaxPoints,
			"Percent":    v.Percent,
			"Letter":     v.Letter,
			"Detail":     v.Detail,
			"Status":     strings.Join(status, " "),
		},
	}
}

func joinStatus(status, extra string) string {
	if status == "" {
		return extra
	}
	return status + " " + extra
}
