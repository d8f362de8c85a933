package services

import (
	"strings"
	"testing"

	"coachdesk_go/models"

	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"
)

func TestLockForSettlementLocksPaymentRow(t *testing.T) {
	// The status guard in Approve/Reject/ConfirmGatewaySession must read the
	// latest committed payment row, not the snapshot taken at the start of
	// the transaction. Without the row lock two racing approvals of the same
	// payment both see pending_approval and both succeed.
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{DryRun: true})
	if err != nil {
		t.Fatalf("failed to open dry-run session: %v", err)
	}

	var payment models.Payment
	stmt := lockForSettlement(db).Find(&payment, 1).Statement
	sql := stmt.SQL.String()
	if !strings.Contains(sql, "FOR UPDATE") {
		t.Fatalf("expected locking payment read, got %q", sql)
	}
}
