package fees

import (
	"fmt"

	"coachdesk_go/models"
)

// DefaultParts is the installment count used when the caller does not pick one.
const DefaultParts = 2

// ScheduledInstallment is one slot of a computed installment schedule.
type ScheduledInstallment struct {
	Number int   `json:"number"`
	Amount int64 `json:"amount"`
}

// Quote is the result of the fee calculation run once at admission creation.
// For the full plan no installments are materialized; the payment applies to
// the admission total directly.
type Quote struct {
	CourseFee    int64                  `json:"course_fee"`
	Discount     int64                  `json:"discount"`
	FinalFees    int64                  `json:"final_fees"`
	PaymentPlan  string                 `json:"payment_plan"`
	Installments []ScheduledInstallment `json:"installments,omitempty"`
}

// Calculate derives the final fee and installment schedule for an admission.
// Pure: no side effects, called exactly once per admission.
//
// Non-privileged callers are forced onto the full plan with no discount.
// Installment amounts use a uniform ceiling split, so the schedule sum may
// exceed FinalFees by up to parts-1 currency units; callers must not assume
// the sum equals FinalFees.
func Calculate(courseFee, discount int64, plan string, parts int, privileged bool) (*Quote, error) {
	if courseFee < 0 {
		return nil, fmt.Errorf("%w: course fee must not be negative", ErrValidation)
	}
	if discount < 0 {
		return nil, fmt.Errorf("%w: discount must not be negative", ErrValidation)
	}
	if discount > courseFee {
		return nil, fmt.Errorf("%w: discount %d exceeds course fee %d", ErrValidation, discount, courseFee)
	}

	if !privileged {
		// Public enrollment cannot pick a discount or an installment plan.
		discount = 0
		plan = models.PlanFull
	}

	switch plan {
	case models.PlanFull, models.PlanInstallment:
	case "":
		plan = models.PlanFull
	default:
		return nil, fmt.Errorf("%w: unknown payment plan %q", ErrValidation, plan)
	}

	finalFees := courseFee - discount
	if finalFees < 0 {
		finalFees = 0
	}

	quote := &Quote{
		CourseFee:   courseFee,
		Discount:    discount,
		FinalFees:   finalFees,
		PaymentPlan: plan,
	}

	if plan != models.PlanInstallment {
		return quote, nil
	}

	if parts < 1 {
		parts = DefaultParts
	}
	perPart := ceilDiv(finalFees, int64(parts))
	quote.Installments = make([]ScheduledInstallment, 0, parts)
	for n := 1; n <= parts; n++ {
		quote.Installments = append(quote.Installments, ScheduledInstallment{Number: n, Amount: perPart})
	}
	return quote, nil
}

// FinalFee applies a discount to a course fee, clamped at zero. Used when a
// discount changes after creation; validation of the discount range is the
// caller's concern.
func FinalFee(courseFee, discount int64) int64 {
	if f := courseFee - discount; f > 0 {
		return f
	}
	return 0
}

func ceilDiv(total, parts int64) int64 {
	if parts <= 0 {
		return total
	}
	return (total + parts - 1) / parts
}
