package services

import (
	"errors"
	"fmt"

	"coachdesk_go/database"
	"coachdesk_go/models"
	"coachdesk_go/services/fees"
	"coachdesk_go/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AdmissionService owns the enrollment lifecycle: intake, fee snapshot,
// schedule materialization and post-creation fee adjustments. All fee state
// mutations route through the reconciliation engine.
type AdmissionService struct {
	studentIDs   *StudentIDService
	defaultParts int
}

func NewAdmissionService(studentIDPrefix string, defaultInstallments int) *AdmissionService {
	return &AdmissionService{
		studentIDs:   NewStudentIDService(studentIDPrefix),
		defaultParts: defaultInstallments,
	}
}

// resolveParts picks the installment count for a quote: the caller's choice
// when given, otherwise the configured default.
func (s *AdmissionService) resolveParts(requested int) int {
	if requested > 0 {
		return requested
	}
	if s.defaultParts > 0 {
		return s.defaultParts
	}
	return fees.DefaultParts
}

// AdmissionRequest is the intake payload shared by the public form and the
// admin console. Discount, PaymentPlan and InstallmentParts are only honored
// for privileged callers.
type AdmissionRequest struct {
	CourseID         uint   `json:"course_id" validate:"required"`
	FirstName        string `json:"first_name" validate:"required,max=100"`
	LastName         string `json:"last_name" validate:"max=100"`
	Email            string `json:"email" validate:"omitempty,email"`
	Phone            string `json:"phone" validate:"required,max=20"`
	GuardianName     string `json:"guardian_name" validate:"max=200"`
	GuardianPhone    string `json:"guardian_phone" validate:"max=20"`
	ContactSource    string `json:"contact_source" validate:"max=100"`
	Discount         int64  `json:"discount" validate:"min=0"`
	PaymentPlan      string `json:"payment_plan" validate:"omitempty,oneof=full installment"`
	InstallmentParts int    `json:"installment_parts" validate:"min=0"`
}

// Create enrolls a student against a course. The course name and fee are
// snapshotted onto the admission; later catalog edits never change existing
// obligations. Runs in one transaction so the student ID, the admission and
// its schedule commit or roll back together.
func (s *AdmissionService) Create(req *AdmissionRequest, privileged bool, createdByID *uint) (*models.Admission, error) {
	var admission *models.Admission
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var course models.Course
		if err := tx.First(&course, req.CourseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: course %d", fees.ErrNotFound, req.CourseID)
			}
			return err
		}
		if course.Status != "active" {
			return fmt.Errorf("%w: course %q is not open for enrollment", fees.ErrValidation, course.Name)
		}

		quote, err := fees.Calculate(course.Fee, req.Discount, req.PaymentPlan, s.resolveParts(req.InstallmentParts), privileged)
		if err != nil {
			return err
		}

		studentID, err := s.studentIDs.NextForNow(tx)
		if err != nil {
			return err
		}

		admission = &models.Admission{
			StudentID:     studentID,
			UserID:        createdByID,
			CourseID:      course.ID,
			CourseName:    course.Name,
			CourseFee:     quote.CourseFee,
			Discount:      quote.Discount,
			FinalFees:     quote.FinalFees,
			PaymentPlan:   quote.PaymentPlan,
			PaymentStatus: models.PaymentStatusPending,
			Approved:      privileged,
			FirstName:     utils.SanitizeString(req.FirstName),
			LastName:      utils.SanitizeString(req.LastName),
			Email:         utils.SanitizeString(req.Email),
			Phone:         utils.SanitizeString(req.Phone),
			GuardianName:  utils.SanitizeString(req.GuardianName),
			GuardianPhone: utils.SanitizeString(req.GuardianPhone),
			ContactSource: utils.SanitizeString(req.ContactSource),
		}
		if err := tx.Create(admission).Error; err != nil {
			return err
		}

		for _, in := range quote.Installments {
			row := models.Installment{
				AdmissionID: admission.ID,
				Number:      in.Number,
				Amount:      in.Amount,
				Status:      models.InstallmentPending,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			admission.Installments = append(admission.Installments, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"student_id":   admission.StudentID,
		"course_id":    admission.CourseID,
		"final_fees":   admission.FinalFees,
		"payment_plan": admission.PaymentPlan,
	}).Info("Admission created")
	return admission, nil
}

// Approve flips a public-form admission into the approved set that the fee
// overview and payment endpoints operate on.
func (s *AdmissionService) Approve(admissionID uint) (*models.Admission, error) {
	var admission models.Admission
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&admission, admissionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: admission %d", fees.ErrNotFound, admissionID)
			}
			return err
		}
		if admission.Approved {
			return fmt.Errorf("%w: admission %s is already approved", fees.ErrConflict, admission.StudentID)
		}
		admission.Approved = true
		return tx.Model(&admission).Update("approved", true).Error
	})
	if err != nil {
		return nil, err
	}
	return &admission, nil
}

// ApplyDiscount replaces the discount on an existing admission, recomputes
// the obligation and runs a ledger-wide reconciliation, so an admission whose
// collected total now covers the shrunken obligation flips to paid without
// any new payment.
func (s *AdmissionService) ApplyDiscount(admissionID uint, discount int64) (*fees.Snapshot, error) {
	var snap *fees.Snapshot
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var admission models.Admission
		if err := tx.First(&admission, admissionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: admission %d", fees.ErrNotFound, admissionID)
			}
			return err
		}
		if discount < 0 || discount > admission.CourseFee {
			return fmt.Errorf("%w: discount %d out of range for course fee %d", fees.ErrValidation, discount, admission.CourseFee)
		}

		finalFees := fees.FinalFee(admission.CourseFee, discount)
		updates := map[string]interface{}{
			"discount":   discount,
			"final_fees": finalFees,
		}
		if err := tx.Model(&admission).Updates(updates).Error; err != nil {
			return err
		}

		var err error
		snap, err = fees.Reconcile(tx, admissionID, fees.LedgerWide{})
		return err
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"student_id": snap.StudentID,
		"discount":   discount,
		"final_fees": snap.FinalFees,
		"status":     snap.PaymentStatus,
	}).Info("Discount applied")
	return snap, nil
}

// OverrideInstallment lets an admin flip a single installment's flag without
// touching the ledger. The aggregate status is re-derived from schedule state
// alone on this path; collected totals stay as the ledger says.
func (s *AdmissionService) OverrideInstallment(admissionID uint, number int, paid bool) (*models.Admission, error) {
	var admission models.Admission
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&admission, admissionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: admission %d", fees.ErrNotFound, admissionID)
			}
			return err
		}

		var inst models.Installment
		if err := tx.Where("admission_id = ? AND number = ?", admissionID, number).First(&inst).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: installment %d of admission %d", fees.ErrNotFound, number, admissionID)
			}
			return err
		}

		status := models.InstallmentPending
		if paid {
			status = models.InstallmentPaid
		}
		if inst.Status != status {
			updates := map[string]interface{}{"status": status}
			if !paid {
				updates["paid_at"] = nil
				updates["payment_ref"] = nil
			}
			if err := tx.Model(&inst).Updates(updates).Error; err != nil {
				return err
			}
		}

		var rows []models.Installment
		if err := tx.Where("admission_id = ?", admissionID).Order("number").Find(&rows).Error; err != nil {
			return err
		}
		states := make([]fees.InstallmentState, 0, len(rows))
		for _, r := range rows {
			states = append(states, fees.InstallmentState{Number: r.Number, Paid: r.Status == models.InstallmentPaid})
		}
		derived := fees.DeriveScheduleStatus(states)
		if derived != admission.PaymentStatus {
			admission.PaymentStatus = derived
			if err := tx.Model(&admission).Update("payment_status", derived).Error; err != nil {
				return err
			}
		}
		admission.Installments = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &admission, nil
}

// FeeSummary returns the reconciled money view of one admission without
// mutating anything.
func (s *AdmissionService) FeeSummary(admissionID uint) (*fees.Snapshot, []models.Installment, error) {
	var admission models.Admission
	if err := database.DB.Preload("Installments", func(db *gorm.DB) *gorm.DB {
		return db.Order("number")
	}).First(&admission, admissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: admission %d", fees.ErrNotFound, admissionID)
		}
		return nil, nil, err
	}

	totalPaid, err := fees.LedgerTotal(database.DB, admission.ID)
	if err != nil {
		return nil, nil, err
	}
	balanceDue := admission.FinalFees - totalPaid
	if balanceDue < 0 {
		balanceDue = 0
	}

	return &fees.Snapshot{
		AdmissionID:   admission.ID,
		StudentID:     admission.StudentID,
		FinalFees:     admission.FinalFees,
		TotalPaid:     totalPaid,
		BalanceDue:    balanceDue,
		PaymentStatus: admission.PaymentStatus,
	}, admission.Installments, nil
}

// List returns admissions newest first, optionally filtered by payment
// status and approval.
func (s *AdmissionService) List(status string, approvedOnly bool, limit, offset int) ([]models.Admission, int64, error) {
	query := database.DB.Model(&models.Admission{})
	if status != "" {
		query = query.Where("payment_status = ?", status)
	}
	if approvedOnly {
		query = query.Where("approved = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var admissions []models.Admission
	err := query.Preload("Installments", func(db *gorm.DB) *gorm.DB {
		return db.Order("number")
	}).Order("created_at DESC").Limit(limit).Offset(offset).Find(&admissions).Error
	return admissions, total, err
}

// Get loads one admission with its schedule and ledger.
func (s *AdmissionService) Get(admissionID uint) (*models.Admission, error) {
	var admission models.Admission
	err := database.DB.
		Preload("Installments", func(db *gorm.DB) *gorm.DB { return db.Order("number") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("Course").
		First(&admission, admissionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: admission %d", fees.ErrNotFound, admissionID)
		}
		return nil, err
	}
	return &admission, nil
}
