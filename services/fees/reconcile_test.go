package fees

import (
	"strings"
	"testing"

	"coachdesk_go/models"

	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"
)

func TestDeriveNothingCollected(t *testing.T) {
	status, balance := Derive(10000, 0, nil, false)
	if status != models.PaymentStatusPending {
		t.Fatalf("expected pending, got %q", status)
	}
	if balance != 10000 {
		t.Fatalf("expected balance 10000, got %d", balance)
	}
}

func TestDerivePartialThenPaid(t *testing.T) {
	ins := []InstallmentState{{Number: 1, Paid: true}, {Number: 2, Paid: false}}

	status, balance := Derive(10000, 5000, ins, false)
	if status != models.PaymentStatusPartiallyPaid {
		t.Fatalf("expected partially_paid, got %q", status)
	}
	if balance != 5000 {
		t.Fatalf("expected balance 5000, got %d", balance)
	}

	ins[1].Paid = true
	status, balance = Derive(10000, 10000, ins, false)
	if status != models.PaymentStatusPaid {
		t.Fatalf("expected paid, got %q", status)
	}
	if balance != 0 {
		t.Fatalf("expected balance 0, got %d", balance)
	}
}

func TestDeriveLedgerCoversObligation(t *testing.T) {
	// Ledger reaches the obligation even though the schedule still shows an
	// open installment, e.g. after a discount shrank the obligation.
	ins := []InstallmentState{{Number: 1, Paid: true}, {Number: 2, Paid: false}}
	status, balance := Derive(5000, 5000, ins, false)
	if status != models.PaymentStatusPaid {
		t.Fatalf("expected paid when ledger covers obligation, got %q", status)
	}
	if balance != 0 {
		t.Fatalf("expected balance 0, got %d", balance)
	}
}

func TestDeriveOverpaymentClampsBalance(t *testing.T) {
	status, balance := Derive(9999, 10000, nil, false)
	if status != models.PaymentStatusPaid {
		t.Fatalf("expected paid, got %q", status)
	}
	if balance != 0 {
		t.Fatalf("balance must never go negative, got %d", balance)
	}
}

func TestDeriveGatewayFailure(t *testing.T) {
	// Gateway failure with nothing collected marks the admission failed.
	status, _ := Derive(10000, 0, nil, true)
	if status != models.PaymentStatusFailed {
		t.Fatalf("expected failed, got %q", status)
	}

	// A later failed attempt must not pull a partially paid admission back.
	ins := []InstallmentState{{Number: 1, Paid: true}, {Number: 2, Paid: false}}
	status, _ = Derive(10000, 5000, ins, true)
	if status != models.PaymentStatusPartiallyPaid {
		t.Fatalf("expected partially_paid preserved on failed retry, got %q", status)
	}

	// Nor a fully paid one.
	ins[1].Paid = true
	status, _ = Derive(10000, 10000, ins, true)
	if status != models.PaymentStatusPaid {
		t.Fatalf("expected paid preserved on failed retry, got %q", status)
	}
}

func TestDeriveZeroObligation(t *testing.T) {
	// Full waiver: nothing owed, so with no collection and no schedule the
	// admission still reads pending until something happens, but any paid
	// ledger entry flips it to paid.
	status, balance := Derive(0, 0, nil, false)
	if status != models.PaymentStatusPending {
		t.Fatalf("expected pending, got %q", status)
	}
	if balance != 0 {
		t.Fatalf("expected balance 0, got %d", balance)
	}
}

func TestDeriveScheduleStatus(t *testing.T) {
	tests := []struct {
		name string
		ins  []InstallmentState
		want string
	}{
		{name: "empty schedule", ins: nil, want: models.PaymentStatusPending},
		{name: "none paid", ins: []InstallmentState{{Number: 1}, {Number: 2}}, want: models.PaymentStatusPending},
		{name: "some paid", ins: []InstallmentState{{Number: 1, Paid: true}, {Number: 2}}, want: models.PaymentStatusPartiallyPaid},
		{name: "all paid", ins: []InstallmentState{{Number: 1, Paid: true}, {Number: 2, Paid: true}}, want: models.PaymentStatusPaid},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveScheduleStatus(tc.ins); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestPaidLedgerIsLockingRead(t *testing.T) {
	// Under REPEATABLE READ a plain aggregate reads the transaction's
	// snapshot, which predates the admission row lock. The sum has to be a
	// locking read or two concurrent settlements can both under-count and
	// leave a fully collected admission partially_paid.
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{DryRun: true})
	if err != nil {
		t.Fatalf("failed to open dry-run session: %v", err)
	}

	var rows []models.Payment
	stmt := paidLedger(db, 7).Find(&rows).Statement
	sql := stmt.SQL.String()
	if !strings.Contains(sql, "FOR UPDATE") {
		t.Fatalf("expected locking ledger read, got %q", sql)
	}
	if !strings.Contains(sql, "admission_id") {
		t.Fatalf("expected admission scope, got %q", sql)
	}
}
