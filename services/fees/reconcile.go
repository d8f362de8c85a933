package fees

import (
	"errors"
	"fmt"
	"time"

	"coachdesk_go/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Mode selects how a reconciliation pass was triggered. Exactly one variant
// per ledger or schedule mutation; every mutation path funnels through
// Reconcile so the status derivation lives in one place.
type Mode interface{ mode() }

// InstallmentTargeted marks one installment paid and re-derives the aggregate
// status. Used by manual-payment approval and gateway confirmations that
// carry an installment number.
type InstallmentTargeted struct {
	Number    int
	PaymentID uint
}

// LedgerWide recomputes everything from the paid-payment sum. Used by
// admin-direct recording, discount changes and the audit sweep.
// GatewayFailure is set when a failed external verification triggered the
// pass; it only forces the failed status when nothing has been collected,
// so a failed retry never regresses a partially-paid admission.
type LedgerWide struct {
	GatewayFailure bool
}

func (InstallmentTargeted) mode() {}
func (LedgerWide) mode()          {}

// Snapshot is the reconciled view of one admission returned to callers.
type Snapshot struct {
	AdmissionID   uint   `json:"admission_id"`
	StudentID     string `json:"student_id"`
	FinalFees     int64  `json:"final_fees"`
	TotalPaid     int64  `json:"total_paid"`
	BalanceDue    int64  `json:"balance_due"`
	PaymentStatus string `json:"payment_status"`
}

// InstallmentState is the minimal schedule view the derivation works on.
type InstallmentState struct {
	Number int
	Paid   bool
}

// Derive computes the aggregate payment status and balance from ledger totals
// and schedule state. The ledger sum is canonical; installment flags are a
// synced view and only decide the paid/partial split when the ledger agrees.
func Derive(finalFees, totalPaid int64, installments []InstallmentState, gatewayFailure bool) (string, int64) {
	balanceDue := finalFees - totalPaid
	if balanceDue < 0 {
		balanceDue = 0
	}

	allPaid := len(installments) > 0
	anyPaid := false
	for _, in := range installments {
		if in.Paid {
			anyPaid = true
		} else {
			allPaid = false
		}
	}

	var status string
	switch {
	case allPaid:
		status = models.PaymentStatusPaid
	case totalPaid > 0 && balanceDue == 0:
		status = models.PaymentStatusPaid
	case anyPaid || totalPaid > 0:
		status = models.PaymentStatusPartiallyPaid
	default:
		status = models.PaymentStatusPending
	}

	if status == models.PaymentStatusPending && gatewayFailure {
		status = models.PaymentStatusFailed
	}
	return status, balanceDue
}

// DeriveScheduleStatus derives the status from installment flags alone.
// Used by the admin installment override, which edits schedule state without
// touching the ledger.
func DeriveScheduleStatus(installments []InstallmentState) string {
	if len(installments) == 0 {
		return models.PaymentStatusPending
	}
	paid := 0
	for _, in := range installments {
		if in.Paid {
			paid++
		}
	}
	switch paid {
	case 0:
		return models.PaymentStatusPending
	case len(installments):
		return models.PaymentStatusPaid
	default:
		return models.PaymentStatusPartiallyPaid
	}
}

// Reconcile re-derives TotalPaid, BalanceDue and PaymentStatus for one
// admission. Must run inside the caller's transaction: the admission row is
// locked for the duration, serializing concurrent mutations against the same
// admission.
func Reconcile(tx *gorm.DB, admissionID uint, mode Mode) (*Snapshot, error) {
	var admission models.Admission
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&admission, admissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: admission %d", ErrNotFound, admissionID)
		}
		return nil, err
	}

	gatewayFailure := false
	switch m := mode.(type) {
	case InstallmentTargeted:
		if err := markInstallmentPaid(tx, admissionID, m.Number, m.PaymentID); err != nil {
			return nil, err
		}
	case LedgerWide:
		gatewayFailure = m.GatewayFailure
	default:
		return nil, fmt.Errorf("%w: unknown reconciliation mode %T", ErrValidation, mode)
	}

	totalPaid, err := LedgerTotal(tx, admissionID)
	if err != nil {
		return nil, err
	}

	var rows []models.Installment
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("admission_id = ?", admissionID).Order("number").Find(&rows).Error; err != nil {
		return nil, err
	}
	states := make([]InstallmentState, 0, len(rows))
	for _, r := range rows {
		states = append(states, InstallmentState{Number: r.Number, Paid: r.Status == models.InstallmentPaid})
	}

	status, balanceDue := Derive(admission.FinalFees, totalPaid, states, gatewayFailure)
	if status != admission.PaymentStatus {
		if err := tx.Model(&admission).Update("payment_status", status).Error; err != nil {
			return nil, err
		}
	}

	return &Snapshot{
		AdmissionID:   admission.ID,
		StudentID:     admission.StudentID,
		FinalFees:     admission.FinalFees,
		TotalPaid:     totalPaid,
		BalanceDue:    balanceDue,
		PaymentStatus: status,
	}, nil
}

// paidLedger scopes a query to an admission's settled payments, as a locking
// read. The sum must reflect rows committed after this transaction's
// consistent-read snapshot was taken, which only a FOR UPDATE read does.
func paidLedger(tx *gorm.DB, admissionID uint) *gorm.DB {
	return tx.Model(&models.Payment{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("admission_id = ? AND status = ?", admissionID, models.PaymentPaid)
}

// LedgerTotal sums the paid payments for an admission. The ground truth
// behind every derived field.
func LedgerTotal(tx *gorm.DB, admissionID uint) (int64, error) {
	var totalPaid int64
	err := paidLedger(tx, admissionID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&totalPaid).Error
	if err != nil {
		return 0, err
	}
	return totalPaid, nil
}

func markInstallmentPaid(tx *gorm.DB, admissionID uint, number int, paymentID uint) error {
	var inst models.Installment
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("admission_id = ? AND number = ?", admissionID, number).First(&inst).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: installment %d of admission %d", ErrNotFound, number, admissionID)
		}
		return err
	}
	if inst.Status == models.InstallmentPaid {
		// Already satisfied; duplicate confirmations are a no-op here.
		return nil
	}
	now := time.Now()
	updates := map[string]interface{}{
		"status":  models.InstallmentPaid,
		"paid_at": &now,
	}
	if paymentID != 0 {
		updates["payment_ref"] = paymentID
	}
	return tx.Model(&inst).Updates(updates).Error
}
