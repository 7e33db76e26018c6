package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
)

const (
	paymentsSheet = "Pagos"
	revenueSheet  = "Ingresos diarios"
	rankingSheet  = "Ranking"

	reportDateLayout = "2006-01-02 15:04"
)

type reportService struct {
	repo     repositories.Repository
	db       *gorm.DB
	logger   *slog.Logger
	progress ProgressService
}

func NewReportService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, progress ProgressService) ReportService {
	return &reportService{
		repo:     repo,
		db:       db,
		logger:   logger,
		progress: progress,
	}
}

// PaymentsReport exports payments in [from, to) plus their daily approved revenue.
// Open bounds default to the last 30 days.
func (s *reportService) PaymentsReport(ctx context.Context, from, to *time.Time) ([]byte, error) {
	end := time.Now().UTC()
	if to != nil {
		end = to.UTC()
	}
	start := end.AddDate(0, 0, -defaultTrendDays)
	if from != nil {
		start = from.UTC()
	}
	if !start.Before(end) {
		return nil, ErrInvalidDateRange
	}

	payments, _, err := s.repo.Payment().List(ctx, nil, repositories.PaymentFilters{
		DateFrom: &start,
		DateTo:   &end,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	trends, err := s.repo.Dashboard().GetRevenueTrends(ctx, nil, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get revenue trends: %w", err)
	}

	rows := make([][]interface{}, 0, len(payments))
	for _, p := range payments {
		sent := ""
		if p.InvoiceSentAt != nil {
			sent = p.InvoiceSentAt.UTC().Format(reportDateLayout)
		}
		rows = append(rows, []interface{}{
			p.ID,
			p.MPPaymentID,
			p.UserID,
			p.PayerEmail,
			courseTitle(p.Course),
			p.Amount,
			p.Currency,
			string(p.Status),
			p.PaidAt.UTC().Format(reportDateLayout),
			sent,
		})
	}

	revenue := make([][]interface{}, 0, len(trends))
	for _, t := range trends {
		revenue = append(revenue, []interface{}{t.Date, t.Payments, t.Revenue})
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writeSheet(f, paymentsSheet, []interface{}{
		"ID", "Pago MP", "Usuario", "Email", "Curso", "Importe", "Moneda", "Estado", "Fecha", "Factura enviada",
	}, rows); err != nil {
		return nil, err
	}
	if err := writeSheet(f, revenueSheet, []interface{}{"Fecha", "Pagos", "Ingresos"}, revenue); err != nil {
		return nil, err
	}

	s.logger.Info("Payments report generated", "from", start, "to", end, "payments", len(payments))
	return workbookBytes(f)
}

func (s *reportService) RankingReport(ctx context.Context) ([]byte, error) {
	rankings, err := s.progress.GetRanking(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([][]interface{}, 0, len(rankings))
	for i, r := range rankings {
		rows = append(rows, []interface{}{
			i + 1,
			r.Title,
			r.TotalModules,
			r.Participants,
			r.Finishers,
			r.CompletedModules,
			r.Percentage,
		})
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writeSheet(f, rankingSheet, []interface{}{
		"Posición", "Curso", "Módulos", "Participantes", "Finalizados", "Módulos completados", "Porcentaje",
	}, rows); err != nil {
		return nil, err
	}
	return workbookBytes(f)
}

// writeSheet fills a sheet with a bold header row. The first call reuses the default sheet.
func writeSheet(f *excelize.File, name string, header []interface{}, rows [][]interface{}) error {
	if len(f.GetSheetList()) == 1 && f.GetSheetName(0) == "Sheet1" {
		if err := f.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("failed to rename sheet: %w", err)
		}
	} else if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	if err := f.SetRowStyle(name, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	last, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	return f.SetColWidth(name, "A", last, 18)
}

func workbookBytes(f *excelize.File) ([]byte, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
