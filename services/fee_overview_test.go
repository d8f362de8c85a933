package services

import (
	"testing"

	"coachdesk_go/models"
)

func admissionFixture(id uint, studentID string, finalFees int64, status string) models.Admission {
	a := models.Admission{
		StudentID:     studentID,
		CourseName:    "Foundation Batch",
		FinalFees:     finalFees,
		PaymentPlan:   models.PlanFull,
		PaymentStatus: status,
		FirstName:     "Asha",
		LastName:      "Verma",
		Approved:      true,
	}
	a.ID = id
	return a
}

func TestBuildOverviewTotals(t *testing.T) {
	admissions := []models.Admission{
		admissionFixture(1, "CD-2026-0001", 10000, models.PaymentStatusPaid),
		admissionFixture(2, "CD-2026-0002", 8000, models.PaymentStatusPartiallyPaid),
		admissionFixture(3, "CD-2026-0003", 5000, models.PaymentStatusPending),
	}
	paidBy := map[uint]int64{1: 10000, 2: 3000}

	ov := BuildOverview(admissions, paidBy)

	if len(ov.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(ov.Rows))
	}
	if ov.TotalExpected != 23000 {
		t.Fatalf("expected total expected 23000, got %d", ov.TotalExpected)
	}
	if ov.TotalPaid != 13000 {
		t.Fatalf("expected total paid 13000, got %d", ov.TotalPaid)
	}
	if ov.TotalDue != 10000 {
		t.Fatalf("expected total due 10000, got %d", ov.TotalDue)
	}
	if ov.StatusCounts[models.PaymentStatusPaid] != 1 ||
		ov.StatusCounts[models.PaymentStatusPartiallyPaid] != 1 ||
		ov.StatusCounts[models.PaymentStatusPending] != 1 {
		t.Fatalf("unexpected status counts: %v", ov.StatusCounts)
	}
}

func TestBuildOverviewRowFields(t *testing.T) {
	admissions := []models.Admission{admissionFixture(7, "CD-2026-0007", 6000, models.PaymentStatusPartiallyPaid)}
	ov := BuildOverview(admissions, map[uint]int64{7: 2500})

	row := ov.Rows[0]
	if row.StudentName != "Asha Verma" {
		t.Fatalf("expected joined name, got %q", row.StudentName)
	}
	if row.BalanceDue != 3500 {
		t.Fatalf("expected balance 3500, got %d", row.BalanceDue)
	}
}

func TestBuildOverviewOverpaidClamps(t *testing.T) {
	admissions := []models.Admission{admissionFixture(1, "CD-2026-0001", 5000, models.PaymentStatusPaid)}
	ov := BuildOverview(admissions, map[uint]int64{1: 5001})

	if ov.Rows[0].BalanceDue != 0 {
		t.Fatalf("balance must clamp at 0, got %d", ov.Rows[0].BalanceDue)
	}
	if ov.TotalDue != 0 {
		t.Fatalf("total due must clamp at 0, got %d", ov.TotalDue)
	}
}

func TestBuildOverviewEmpty(t *testing.T) {
	ov := BuildOverview(nil, nil)
	if len(ov.Rows) != 0 || ov.TotalExpected != 0 || ov.TotalPaid != 0 {
		t.Fatalf("expected empty overview, got %+v", ov)
	}
}

func TestExportXLSX(t *testing.T) {
	admissions := []models.Admission{
		admissionFixture(1, "CD-2026-0001", 10000, models.PaymentStatusPaid),
		admissionFixture(2, "CD-2026-0002", 8000, models.PaymentStatusPending),
	}
	ov := BuildOverview(admissions, map[uint]int64{1: 10000})

	svc := NewFeeOverviewService()
	data, err := svc.ExportXLSX(ov)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected workbook bytes")
	}
	// XLSX files are zip archives.
	if data[0] != 'P' || data[1] != 'K' {
		t.Fatalf("expected zip signature, got %x%x", data[0], data[1])
	}
}
