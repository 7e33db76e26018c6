package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func openWorkbook(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestReportService_PaymentsReport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := seedCourse(t, env.db, "Go avanzado", 1500, true, 1)
	now := time.Now().UTC()
	seedPayment(t, env.db, student.ID, course.ID, "mp-1", now.Add(-time.Hour))
	seedPayment(t, env.db, admin.ID, course.ID, "mp-2", now.AddDate(0, 0, -2))
	seedPayment(t, env.db, student.ID, course.ID, "mp-old", now.AddDate(0, 0, -45))

	svc := NewReportService(env.repo, env.db, env.logger, env.progress())

	data, err := svc.PaymentsReport(ctx, nil, nil)
	require.NoError(t, err)

	f := openWorkbook(t, data)
	assert.Equal(t, []string{paymentsSheet, revenueSheet}, f.GetSheetList())

	rows, err := f.GetRows(paymentsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Pago MP", rows[0][1])
	// latest first
	assert.Equal(t, "mp-1", rows[1][1])
	assert.Equal(t, "Go avanzado", rows[1][4])
	assert.Equal(t, "mp-2", rows[2][1])

	revenue, err := f.GetRows(revenueSheet)
	require.NoError(t, err)
	assert.Len(t, revenue, 3)

	from := now.AddDate(0, 0, -60)
	data, err = svc.PaymentsReport(ctx, &from, nil)
	require.NoError(t, err)
	rows, err = openWorkbook(t, data).GetRows(paymentsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestReportService_PaymentsReportRange(t *testing.T) {
	env := newTestEnv(t)
	svc := NewReportService(env.repo, env.db, env.logger, env.progress())

	now := time.Now().UTC()
	earlier := now.AddDate(0, 0, -1)

	tests := []struct {
		name string
		from *time.Time
		to   *time.Time
	}{
		{name: "inverted", from: &now, to: &earlier},
		{name: "empty", from: &now, to: &now},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.PaymentsReport(context.Background(), tt.from, tt.to)
			assert.ErrorIs(t, err, ErrInvalidDateRange)
		})
	}
}

func TestReportService_RankingReport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := seedCourse(t, env.db, "Go", 0, true, 2)
	seedCourse(t, env.db, "Rust", 0, true, 1)
	enroll(t, env.db, student.ID, course.ID)

	progress := env.progress()
	_, err := progress.UpdateProgress(ctx, student, course.ID, course.Modules[0].ID, true)
	require.NoError(t, err)

	data, err := NewReportService(env.repo, env.db, env.logger, progress).RankingReport(ctx)
	require.NoError(t, err)

	f := openWorkbook(t, data)
	assert.Equal(t, []string{rankingSheet}, f.GetSheetList())

	rows, err := f.GetRows(rankingSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Posición", rows[0][0])
	assert.Equal(t, []string{"1", "Go", "2", "1", "0", "1", "50"}, rows[1])
	assert.Equal(t, "Rust", rows[2][1])
}
