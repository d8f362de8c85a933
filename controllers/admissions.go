package controllers

import (
	"coachdesk_go/middleware"
	"coachdesk_go/services"
	"coachdesk_go/utils"

	"github.com/gofiber/fiber/v2"
)

type AdmissionController struct {
	admissions *services.AdmissionService
}

func NewAdmissionController(as *services.AdmissionService) *AdmissionController {
	return &AdmissionController{admissions: as}
}

// SubmitAdmission is the public enrollment form. Discounts and installment
// plans in the payload are ignored and the admission awaits admin approval.
func (ac *AdmissionController) SubmitAdmission(c *fiber.Ctx) error {
	var req services.AdmissionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	admission, err := ac.admissions.Create(&req, false, nil)
	if err != nil {
		return respondServiceError(c, err)
	}

	middleware.LogActivity(c, "CREATE", "admissions", admission.ID, fiber.Map{"student_id": admission.StudentID, "channel": "public"})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "Admission submitted",
		"admission": utils.ToAdmissionDTO(*admission),
	})
}

// CreateAdmission is the admin intake path: discounts and installment plans
// are honored and the admission is approved immediately.
func (ac *AdmissionController) CreateAdmission(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req services.AdmissionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	admission, err := ac.admissions.Create(&req, true, &user.ID)
	if err != nil {
		return respondServiceError(c, err)
	}

	middleware.LogActivity(c, "CREATE", "admissions", admission.ID, fiber.Map{"student_id": admission.StudentID, "channel": "admin"})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"admission": utils.ToAdmissionDTO(*admission)})
}

// ApproveAdmission flips a public-form admission into the approved set
func (ac *AdmissionController) ApproveAdmission(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid admission ID"})
	}

	admission, err := ac.admissions.Approve(id)
	if err != nil {
		return respondServiceError(c, err)
	}

	middleware.LogActivity(c, "UPDATE", "admissions", admission.ID, fiber.Map{"approved": true})
	return c.JSON(fiber.Map{"admission": utils.ToAdmissionDTO(*admission)})
}

// GetAdmissions lists admissions with optional status filtering
func (ac *AdmissionController) GetAdmissions(c *fiber.Ctx) error {
	admissions, total, err := ac.admissions.List(
		c.Query("status"),
		c.Query("approved") == "true",
		c.QueryInt("limit", 50),
		c.QueryInt("offset", 0),
	)
	if err != nil {
		return respondServiceError(c, err)
	}

	dtos := make([]utils.AdmissionDTO, 0, len(admissions))
	for _, a := range admissions {
		dtos = append(dtos, utils.ToAdmissionDTO(a))
	}
	return c.JSON(fiber.Map{"admissions": dtos, "total": total})
}

// GetAdmission returns one admission with schedule and ledger
func (ac *AdmissionController) GetAdmission(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid admission ID"})
	}

	admission, err := ac.admissions.Get(id)
	if err != nil {
		return respondServiceError(c, err)
	}

	payments := make([]utils.PaymentDTO, 0, len(admission.Payments))
	for _, p := range admission.Payments {
		payments = append(payments, utils.ToPaymentDTO(p))
	}
	return c.JSON(fiber.Map{
		"admission": utils.ToAdmissionDTO(*admission),
		"payments":  payments,
	})
}

// GetFeeSummary returns the reconciled money view of one admission
func (ac *AdmissionController) GetFeeSummary(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid admission ID"})
	}

	snap, installments, err := ac.admissions.FeeSummary(id)
	if err != nil {
		return respondServiceError(c, err)
	}

	dtos := make([]utils.InstallmentDTO, 0, len(installments))
	for _, in := range installments {
		dtos = append(dtos, utils.InstallmentDTO{
			Number: in.Number,
			Amount: in.Amount,
			Status: in.Status,
			PaidAt: in.PaidAt,
		})
	}
	return c.JSON(fiber.Map{"summary": snap, "installments": dtos})
}

// DiscountRequest is the apply-discount payload.
type DiscountRequest struct {
	Discount int64 `json:"discount" validate:"min=0"`
}

// ApplyDiscount replaces the discount on an admission and reconciles
func (ac *AdmissionController) ApplyDiscount(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid admission ID"})
	}

	var req DiscountRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	snap, err := ac.admissions.ApplyDiscount(id, req.Discount)
	if err != nil {
		return respondServiceError(c, err)
	}

	middleware.LogActivity(c, "UPDATE", "admissions", id, fiber.Map{"discount": req.Discount, "status": snap.PaymentStatus})
	return c.JSON(fiber.Map{"summary": snap})
}

// InstallmentOverrideRequest flips one installment flag.
type InstallmentOverrideRequest struct {
	Number int  `json:"number" validate:"required,min=1"`
	Paid   bool `json:"paid"`
}

// OverrideInstallment lets an admin correct a single installment flag
func (ac *AdmissionController) OverrideInstallment(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid admission ID"})
	}

	var req InstallmentOverrideRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	admission, err := ac.admissions.OverrideInstallment(id, req.Number, req.Paid)
	if err != nil {
		return respondServiceError(c, err)
	}

	middleware.LogActivity(c, "UPDATE", "admissions", id, fiber.Map{"installment": req.Number, "paid": req.Paid})
	return c.JSON(fiber.Map{"admission": utils.ToAdmissionDTO(*admission)})
}
