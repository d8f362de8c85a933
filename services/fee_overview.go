package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"coachdesk_go/database"
	"coachdesk_go/models"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

const (
	overviewCacheKey = "fees:overview"
	overviewCacheTTL = 60 * time.Second
)

// OverviewRow is one admission's line in the institute-wide fee overview.
type OverviewRow struct {
	AdmissionID   uint   `json:"admission_id"`
	StudentID     string `json:"student_id"`
	StudentName   string `json:"student_name"`
	CourseName    string `json:"course_name"`
	PaymentPlan   string `json:"payment_plan"`
	FinalFees     int64  `json:"final_fees"`
	TotalPaid     int64  `json:"total_paid"`
	BalanceDue    int64  `json:"balance_due"`
	PaymentStatus string `json:"payment_status"`
}

// Overview is the aggregated money position across all approved admissions.
type Overview struct {
	GeneratedAt   time.Time      `json:"generated_at"`
	Rows          []OverviewRow  `json:"rows"`
	TotalExpected int64          `json:"total_expected"`
	TotalPaid     int64          `json:"total_paid"`
	TotalDue      int64          `json:"total_due"`
	StatusCounts  map[string]int `json:"status_counts"`
}

// FeeOverviewService builds the institute-wide collection picture. Reads
// only; the reconciliation engine keeps the per-admission fields it sums.
type FeeOverviewService struct{}

func NewFeeOverviewService() *FeeOverviewService {
	return &FeeOverviewService{}
}

// ledgerRow is the paid-sum-per-admission scan shape.
type ledgerRow struct {
	AdmissionID uint
	Total       int64
}

// Build computes the overview from the database. Only approved admissions
// count; paid ledger entries are summed in one grouped query.
func (s *FeeOverviewService) Build() (*Overview, error) {
	var admissions []models.Admission
	if err := database.DB.Where("approved = ?", true).Order("student_id").Find(&admissions).Error; err != nil {
		return nil, err
	}

	var sums []ledgerRow
	if err := database.DB.Model(&models.Payment{}).
		Select("admission_id, COALESCE(SUM(amount), 0) AS total").
		Where("status = ?", models.PaymentPaid).
		Group("admission_id").
		Scan(&sums).Error; err != nil {
		return nil, err
	}
	paidBy := make(map[uint]int64, len(sums))
	for _, r := range sums {
		paidBy[r.AdmissionID] = r.Total
	}

	return BuildOverview(admissions, paidBy), nil
}

// BuildOverview assembles the overview from already-loaded rows. Pure, so
// the aggregation math is testable without a database.
func BuildOverview(admissions []models.Admission, paidBy map[uint]int64) *Overview {
	ov := &Overview{
		GeneratedAt:  time.Now().UTC(),
		Rows:         make([]OverviewRow, 0, len(admissions)),
		StatusCounts: make(map[string]int),
	}
	for _, a := range admissions {
		paid := paidBy[a.ID]
		due := a.FinalFees - paid
		if due < 0 {
			due = 0
		}
		name := a.FirstName
		if a.LastName != "" {
			name += " " + a.LastName
		}
		ov.Rows = append(ov.Rows, OverviewRow{
			AdmissionID:   a.ID,
			StudentID:     a.StudentID,
			StudentName:   name,
			CourseName:    a.CourseName,
			PaymentPlan:   a.PaymentPlan,
			FinalFees:     a.FinalFees,
			TotalPaid:     paid,
			BalanceDue:    due,
			PaymentStatus: a.PaymentStatus,
		})
		ov.TotalExpected += a.FinalFees
		ov.TotalPaid += paid
		ov.TotalDue += due
		ov.StatusCounts[a.PaymentStatus]++
	}
	return ov
}

// Cached returns the overview from Redis when fresh, rebuilding otherwise.
// Cache problems degrade to a direct build.
func (s *FeeOverviewService) Cached() (*Overview, error) {
	rdb := database.GetRedisClient()
	ctx := context.Background()

	if rdb != nil {
		if raw, err := rdb.Get(ctx, overviewCacheKey).Result(); err == nil {
			var ov Overview
			if err := json.Unmarshal([]byte(raw), &ov); err == nil {
				return &ov, nil
			}
		}
	}

	ov, err := s.Build()
	if err != nil {
		return nil, err
	}

	if rdb != nil {
		if b, err := json.Marshal(ov); err == nil {
			if err := rdb.Set(ctx, overviewCacheKey, b, overviewCacheTTL).Err(); err != nil {
				logrus.WithError(err).Warn("Failed to cache fee overview")
			}
		}
	}
	return ov, nil
}

// Invalidate drops the cached overview. Called after settlements.
func (s *FeeOverviewService) Invalidate() {
	rdb := database.GetRedisClient()
	if rdb == nil {
		return
	}
	if err := rdb.Del(context.Background(), overviewCacheKey).Err(); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate fee overview cache")
	}
}

var overviewHeader = []string{"Student ID", "Student Name", "Course", "Plan", "Final Fees", "Total Paid", "Balance Due", "Status"}

// ExportXLSX renders the overview as a spreadsheet and returns the file
// bytes for download or archival.
func (s *FeeOverviewService) ExportXLSX(ov *Overview) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Fee Overview"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	for col, h := range overviewHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for i, row := range ov.Rows {
		values := []interface{}{
			row.StudentID, row.StudentName, row.CourseName, row.PaymentPlan,
			row.FinalFees, row.TotalPaid, row.BalanceDue, row.PaymentStatus,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	// Totals row below the data.
	totalsRow := len(ov.Rows) + 2
	totals := map[int]interface{}{
		1: "TOTAL",
		5: ov.TotalExpected,
		6: ov.TotalPaid,
		7: ov.TotalDue,
	}
	for col, v := range totals {
		cell, err := excelize.CoordinatesToCellName(col, totalsRow)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
