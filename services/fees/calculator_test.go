package fees

import (
	"errors"
	"testing"

	"coachdesk_go/models"
)

func TestCalculateFullPlan(t *testing.T) {
	q, err := Calculate(10000, 0, models.PlanFull, 0, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.FinalFees != 10000 {
		t.Fatalf("expected final fees 10000, got %d", q.FinalFees)
	}
	if len(q.Installments) != 0 {
		t.Fatalf("full plan must not materialize installments, got %d", len(q.Installments))
	}
}

func TestCalculateInstallmentCeiling(t *testing.T) {
	// 9999 over 2 parts: every part gets ceil(4999.5) = 5000, schedule sum
	// overshoots the obligation by 1.
	q, err := Calculate(9999, 0, models.PlanInstallment, 2, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(q.Installments) != 2 {
		t.Fatalf("expected 2 installments, got %d", len(q.Installments))
	}
	var sum int64
	for i, in := range q.Installments {
		if in.Number != i+1 {
			t.Fatalf("installment %d has number %d", i, in.Number)
		}
		if in.Amount != 5000 {
			t.Fatalf("installment %d: expected amount 5000, got %d", in.Number, in.Amount)
		}
		sum += in.Amount
	}
	if sum != 10000 {
		t.Fatalf("expected schedule sum 10000, got %d", sum)
	}
}

func TestCalculateDiscounts(t *testing.T) {
	tests := []struct {
		name      string
		courseFee int64
		discount  int64
		wantFinal int64
		wantErr   bool
	}{
		{name: "no discount", courseFee: 8000, discount: 0, wantFinal: 8000},
		{name: "partial discount", courseFee: 8000, discount: 1500, wantFinal: 6500},
		{name: "discount equals fee", courseFee: 8000, discount: 8000, wantFinal: 0},
		{name: "discount exceeds fee", courseFee: 8000, discount: 8001, wantErr: true},
		{name: "negative discount", courseFee: 8000, discount: -1, wantErr: true},
		{name: "negative course fee", courseFee: -100, discount: 0, wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			q, err := Calculate(tc.courseFee, tc.discount, models.PlanFull, 0, true)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected validation error, got quote %+v", q)
				}
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if q.FinalFees != tc.wantFinal {
				t.Fatalf("expected final fees %d, got %d", tc.wantFinal, q.FinalFees)
			}
		})
	}
}

func TestCalculateUnprivilegedForcedToFull(t *testing.T) {
	q, err := Calculate(12000, 3000, models.PlanInstallment, 4, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.PaymentPlan != models.PlanFull {
		t.Fatalf("expected public submission forced to full plan, got %q", q.PaymentPlan)
	}
	if q.Discount != 0 {
		t.Fatalf("expected public submission discount stripped, got %d", q.Discount)
	}
	if q.FinalFees != 12000 {
		t.Fatalf("expected final fees 12000, got %d", q.FinalFees)
	}
	if len(q.Installments) != 0 {
		t.Fatalf("expected no installments, got %d", len(q.Installments))
	}
}

func TestCalculateDefaultParts(t *testing.T) {
	q, err := Calculate(9000, 0, models.PlanInstallment, 0, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(q.Installments) != DefaultParts {
		t.Fatalf("expected %d installments by default, got %d", DefaultParts, len(q.Installments))
	}
	if q.Installments[0].Amount != 4500 {
		t.Fatalf("expected 4500 per part, got %d", q.Installments[0].Amount)
	}
}

func TestCalculateUnknownPlan(t *testing.T) {
	if _, err := Calculate(1000, 0, "weekly", 0, true); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown plan, got %v", err)
	}
}

func TestFinalFeeClamp(t *testing.T) {
	if got := FinalFee(5000, 6000); got != 0 {
		t.Fatalf("expected clamp to 0, got %d", got)
	}
	if got := FinalFee(5000, 1200); got != 3800 {
		t.Fatalf("expected 3800, got %d", got)
	}
}
