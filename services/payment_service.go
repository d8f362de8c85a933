package services

import (
	"errors"
	"fmt"
	"time"

	"coachdesk_go/database"
	"coachdesk_go/models"
	"coachdesk_go/services/fees"
	"coachdesk_go/services/notifications"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentService owns the payment ledger and the three intake channels:
// gateway sessions confirmed by webhook, manual submissions approved by an
// admin, and direct admin recording. Every state change that affects money
// runs through the reconciliation engine inside the same transaction.
type PaymentService struct {
	notifications *notifications.Service
}

func NewPaymentService(ns *notifications.Service) *PaymentService {
	return &PaymentService{notifications: ns}
}

// GatewaySessionRequest opens an online payment attempt.
type GatewaySessionRequest struct {
	AdmissionID       uint   `json:"admission_id" validate:"required"`
	Amount            int64  `json:"amount" validate:"required,min=1"`
	InstallmentNumber *int   `json:"installment_number" validate:"omitempty,min=1"`
	PaymentMethod     string `json:"payment_method" validate:"max=50"`
}

// ManualPaymentRequest is a student-reported offline payment awaiting
// admin approval.
type ManualPaymentRequest struct {
	AdmissionID       uint   `json:"admission_id" validate:"required"`
	Amount            int64  `json:"amount" validate:"required,min=1"`
	TransactionID     string `json:"transaction_id" validate:"required,max=255"`
	PaymentMethod     string `json:"payment_method" validate:"max=50"`
	InstallmentNumber *int   `json:"installment_number" validate:"omitempty,min=1"`
	Notes             string `json:"notes"`
}

// AdminPaymentRequest records an already-collected payment, optionally
// back-dated for cash taken before it was entered.
type AdminPaymentRequest struct {
	AdmissionID   uint       `json:"admission_id" validate:"required"`
	Amount        int64      `json:"amount" validate:"required,min=1"`
	PaymentMethod string     `json:"payment_method" validate:"max=50"`
	PaidAt        *time.Time `json:"paid_at"`
	Notes         string     `json:"notes"`
}

// CreateGatewaySession opens a pending payment row keyed by a fresh session
// ID that the processor will echo back in its webhook.
func (s *PaymentService) CreateGatewaySession(req *GatewaySessionRequest) (*models.Payment, error) {
	var payment models.Payment
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		admission, err := loadAdmission(tx, req.AdmissionID)
		if err != nil {
			return err
		}
		if err := validateInstallmentTarget(tx, admission, req.InstallmentNumber); err != nil {
			return err
		}

		sessionID := uuid.New().String()
		payment = models.Payment{
			AdmissionID:       admission.ID,
			Amount:            req.Amount,
			PaymentMethod:     req.PaymentMethod,
			Channel:           models.ChannelGateway,
			Status:            models.PaymentCreated,
			GatewaySessionID:  &sessionID,
			InstallmentNumber: req.InstallmentNumber,
		}
		return tx.Create(&payment).Error
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"payment_id": payment.ID,
		"session_id": *payment.GatewaySessionID,
		"amount":     payment.Amount,
	}).Info("Gateway session created")
	return &payment, nil
}

// ConfirmGatewaySession settles a gateway session from the processor
// callback. Success marks the payment paid and reconciles; failure marks it
// failed and runs a ledger-wide pass that can flag the admission failed only
// when nothing was ever collected. Re-delivery of an already-settled session
// is a no-op.
func (s *PaymentService) ConfirmGatewaySession(sessionID, gatewayRef string, success bool) (*models.Payment, *fees.Snapshot, error) {
	var (
		payment models.Payment
		snap    *fees.Snapshot
	)
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		err := lockForSettlement(tx).Where("gateway_session_id = ?", sessionID).First(&payment).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: gateway session %s", fees.ErrNotFound, sessionID)
			}
			return err
		}
		if payment.Status == models.PaymentPaid || payment.Status == models.PaymentFailed {
			// Processor retry; the ledger already settled this attempt.
			return nil
		}

		now := time.Now()
		updates := map[string]interface{}{"gateway_ref": gatewayRef}
		if success {
			updates["status"] = models.PaymentPaid
			updates["paid_at"] = &now
			updates["receipt_number"] = newReceiptNumber()
		} else {
			updates["status"] = models.PaymentFailed
		}
		if err := tx.Model(&payment).Updates(updates).Error; err != nil {
			return err
		}
		payment.GatewayRef = gatewayRef
		if success {
			payment.Status = models.PaymentPaid
			payment.PaidAt = &now
		} else {
			payment.Status = models.PaymentFailed
		}

		if success && payment.InstallmentNumber != nil {
			snap, err = fees.Reconcile(tx, payment.AdmissionID, fees.InstallmentTargeted{
				Number:    *payment.InstallmentNumber,
				PaymentID: payment.ID,
			})
		} else {
			snap, err = fees.Reconcile(tx, payment.AdmissionID, fees.LedgerWide{GatewayFailure: !success})
		}
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	if snap != nil {
		s.notifyPaymentSettled(&payment, snap)
	}
	return &payment, snap, nil
}

// SubmitManual records a student-reported payment as pending approval. No
// money is counted until an admin approves it.
func (s *PaymentService) SubmitManual(req *ManualPaymentRequest) (*models.Payment, error) {
	var payment models.Payment
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		admission, err := loadAdmission(tx, req.AdmissionID)
		if err != nil {
			return err
		}

		target := req.InstallmentNumber
		if target == nil && admission.PaymentPlan == models.PlanInstallment {
			// Default to the earliest open slot.
			var inst models.Installment
			err := tx.Where("admission_id = ? AND status = ?", admission.ID, models.InstallmentPending).
				Order("number").First(&inst).Error
			if err == nil {
				target = &inst.Number
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}
		if err := validateInstallmentTarget(tx, admission, target); err != nil {
			return err
		}

		payment = models.Payment{
			AdmissionID:       admission.ID,
			Amount:            req.Amount,
			PaymentMethod:     req.PaymentMethod,
			Channel:           models.ChannelManual,
			Status:            models.PaymentPendingApproval,
			TransactionID:     req.TransactionID,
			InstallmentNumber: target,
			Notes:             req.Notes,
		}
		return tx.Create(&payment).Error
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"payment_id":   payment.ID,
		"admission_id": payment.AdmissionID,
		"amount":       payment.Amount,
	}).Info("Manual payment submitted for approval")
	return &payment, nil
}

// Approve settles a pending manual payment. Approving a payment that already
// settled is a conflict, which makes double-clicked approvals harmless.
func (s *PaymentService) Approve(paymentID, approvedByID uint) (*models.Payment, *fees.Snapshot, error) {
	var (
		payment models.Payment
		snap    *fees.Snapshot
	)
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockForSettlement(tx).First(&payment, paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: payment %d", fees.ErrNotFound, paymentID)
			}
			return err
		}
		if payment.Status != models.PaymentPendingApproval {
			return fmt.Errorf("%w: payment %d is %s, not pending approval", fees.ErrConflict, paymentID, payment.Status)
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":         models.PaymentPaid,
			"paid_at":        &now,
			"recorded_by_id": approvedByID,
			"receipt_number": newReceiptNumber(),
		}
		if err := tx.Model(&payment).Updates(updates).Error; err != nil {
			return err
		}
		payment.Status = models.PaymentPaid
		payment.PaidAt = &now
		payment.RecordedByID = &approvedByID

		var err error
		if payment.InstallmentNumber != nil {
			snap, err = fees.Reconcile(tx, payment.AdmissionID, fees.InstallmentTargeted{
				Number:    *payment.InstallmentNumber,
				PaymentID: payment.ID,
			})
		} else {
			snap, err = fees.Reconcile(tx, payment.AdmissionID, fees.LedgerWide{})
		}
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.notifyPaymentSettled(&payment, snap)
	return &payment, snap, nil
}

// Reject marks a pending manual payment failed. The admission's derived
// state never changes: a rejected claim was never counted.
func (s *PaymentService) Reject(paymentID, rejectedByID uint, reason string) (*models.Payment, error) {
	var payment models.Payment
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockForSettlement(tx).First(&payment, paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: payment %d", fees.ErrNotFound, paymentID)
			}
			return err
		}
		if payment.Status != models.PaymentPendingApproval {
			return fmt.Errorf("%w: payment %d is %s, not pending approval", fees.ErrConflict, paymentID, payment.Status)
		}

		notes := payment.Notes
		if reason != "" {
			if notes != "" {
				notes += "\n"
			}
			notes += "Rejected: " + reason
		}
		updates := map[string]interface{}{
			"status":         models.PaymentFailed,
			"recorded_by_id": rejectedByID,
			"notes":          notes,
		}
		if err := tx.Model(&payment).Updates(updates).Error; err != nil {
			return err
		}
		payment.Status = models.PaymentFailed
		payment.Notes = notes
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"payment_id": payment.ID,
		"reason":     reason,
	}).Info("Manual payment rejected")
	return &payment, nil
}

// RecordAdmin writes an already-collected payment straight into the ledger
// as paid and reconciles ledger-wide.
func (s *PaymentService) RecordAdmin(req *AdminPaymentRequest, recordedByID uint) (*models.Payment, *fees.Snapshot, error) {
	var (
		payment models.Payment
		snap    *fees.Snapshot
	)
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		admission, err := loadAdmission(tx, req.AdmissionID)
		if err != nil {
			return err
		}

		paidAt := req.PaidAt
		if paidAt == nil {
			now := time.Now()
			paidAt = &now
		}
		payment = models.Payment{
			AdmissionID:   admission.ID,
			Amount:        req.Amount,
			PaymentMethod: req.PaymentMethod,
			Channel:       models.ChannelAdmin,
			Status:        models.PaymentPaid,
			PaidAt:        paidAt,
			RecordedByID:  &recordedByID,
			ReceiptNumber: newReceiptNumber(),
			Notes:         req.Notes,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		snap, err = fees.Reconcile(tx, admission.ID, fees.LedgerWide{})
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.notifyPaymentSettled(&payment, snap)
	return &payment, snap, nil
}

// List returns payments newest first, optionally scoped to one admission or
// one status.
func (s *PaymentService) List(admissionID uint, status string, limit, offset int) ([]models.Payment, int64, error) {
	query := database.DB.Model(&models.Payment{})
	if admissionID != 0 {
		query = query.Where("admission_id = ?", admissionID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var payments []models.Payment
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&payments).Error
	return payments, total, err
}

// Receipt loads one settled payment together with its admission for the
// receipt view.
func (s *PaymentService) Receipt(paymentID uint) (*models.Payment, error) {
	var payment models.Payment
	err := database.DB.Preload("Admission").First(&payment, paymentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: payment %d", fees.ErrNotFound, paymentID)
		}
		return nil, err
	}
	if payment.Status != models.PaymentPaid {
		return nil, fmt.Errorf("%w: payment %d has no receipt, status is %s", fees.ErrValidation, paymentID, payment.Status)
	}
	return &payment, nil
}

func (s *PaymentService) notifyPaymentSettled(payment *models.Payment, snap *fees.Snapshot) {
	if s.notifications == nil || snap == nil {
		return
	}
	var admission models.Admission
	if err := database.DB.First(&admission, payment.AdmissionID).Error; err != nil || admission.UserID == nil {
		return
	}

	title := "Payment received"
	kind := "success"
	message := fmt.Sprintf("Payment of %d for %s recorded. Balance due: %d.", payment.Amount, admission.StudentID, snap.BalanceDue)
	if payment.Status == models.PaymentFailed {
		title = "Payment failed"
		kind = "error"
		message = fmt.Sprintf("Payment attempt of %d for %s failed.", payment.Amount, admission.StudentID)
	}

	// Best effort only; a notification hiccup never fails a settlement.
	if err := s.notifications.Queue(*admission.UserID, title, message, kind, map[string]interface{}{
		"payment_id":     payment.ID,
		"admission_id":   admission.ID,
		"payment_status": snap.PaymentStatus,
	}); err != nil {
		logrus.WithError(err).Warn("Failed to queue payment notification")
	}
}

// lockForSettlement makes the payment load a FOR UPDATE read. A plain read
// would come from the transaction's snapshot, taken before the admission
// lock in the reconciler is acquired; the status guard must see the latest
// committed row or two racing settlements of one payment both pass it.
func lockForSettlement(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func loadAdmission(tx *gorm.DB, admissionID uint) (*models.Admission, error) {
	var admission models.Admission
	if err := tx.First(&admission, admissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: admission %d", fees.ErrNotFound, admissionID)
		}
		return nil, err
	}
	return &admission, nil
}

func validateInstallmentTarget(tx *gorm.DB, admission *models.Admission, number *int) error {
	if number == nil {
		return nil
	}
	if admission.PaymentPlan != models.PlanInstallment {
		return fmt.Errorf("%w: admission %s has no installment plan", fees.ErrValidation, admission.StudentID)
	}
	var count int64
	if err := tx.Model(&models.Installment{}).
		Where("admission_id = ? AND number = ?", admission.ID, *number).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: installment %d of admission %s", fees.ErrNotFound, *number, admission.StudentID)
	}
	return nil
}

func newReceiptNumber() string {
	return "RCPT-" + time.Now().Format("20060102") + "-" + uuid.New().String()[:8]
}
