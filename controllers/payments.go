package controllers

import (
	"coachdesk_go/middleware"
	"coachdesk_go/services"
	"coachdesk_go/utils"

	"github.com/gofiber/fiber/v2"
)

type PaymentController struct {
	payments *services.PaymentService
	overview *services.FeeOverviewService
}

func NewPaymentController(ps *services.PaymentService, ov *services.FeeOverviewService) *PaymentController {
	return &PaymentController{payments: ps, overview: ov}
}

// CreateGatewaySession opens an online payment attempt and returns the
// session ID the client hands to the processor.
func (pc *PaymentController) CreateGatewaySession(c *fiber.Ctx) error {
	var req services.GatewaySessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	payment, err := pc.payments.CreateGatewaySession(&req)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"session_id": payment.GatewaySessionID,
		"payment":    utils.ToPaymentDTO(*payment),
	})
}

// SubmitManualPayment records a student-reported offline payment
func (pc *PaymentController) SubmitManualPayment(c *fiber.Ctx) error {
	var req services.ManualPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	payment, err := pc.payments.SubmitManual(&req)
	if err != nil {
		return respondServiceError(c, err)
	}

	middleware.LogActivity(c, "CREATE", "payments", payment.ID, fiber.Map{"channel": "manual", "amount": payment.Amount})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Payment submitted for approval",
		"payment": utils.ToPaymentDTO(*payment),
	})
}

// ApprovePayment settles a pending manual payment
func (pc *PaymentController) ApprovePayment(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment ID"})
	}

	payment, snap, err := pc.payments.Approve(id, user.ID)
	if err != nil {
		return respondServiceError(c, err)
	}
	pc.overview.Invalidate()

	middleware.LogActivity(c, "UPDATE", "payments", payment.ID, fiber.Map{"action": "approve", "status": snap.PaymentStatus})
	return c.JSON(fiber.Map{
		"payment": utils.ToPaymentDTO(*payment),
		"summary": snap,
	})
}

// RejectRequest carries the rejection reason.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// RejectPayment marks a pending manual payment failed
func (pc *PaymentController) RejectPayment(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment ID"})
	}

	var req RejectRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	payment, err := pc.payments.Reject(id, user.ID, req.Reason)
	if err != nil {
		return respondServiceError(c, err)
	}

	middleware.LogActivity(c, "UPDATE", "payments", payment.ID, fiber.Map{"action": "reject", "reason": req.Reason})
	return c.JSON(fiber.Map{"payment": utils.ToPaymentDTO(*payment)})
}

// RecordAdminPayment writes an already-collected payment into the ledger
func (pc *PaymentController) RecordAdminPayment(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req services.AdminPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	payment, snap, err := pc.payments.RecordAdmin(&req, user.ID)
	if err != nil {
		return respondServiceError(c, err)
	}
	pc.overview.Invalidate()

	middleware.LogActivity(c, "CREATE", "payments", payment.ID, fiber.Map{"channel": "admin", "amount": payment.Amount})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"payment": utils.ToPaymentDTO(*payment),
		"summary": snap,
	})
}

// GetPayments lists ledger entries
func (pc *PaymentController) GetPayments(c *fiber.Ctx) error {
	payments, total, err := pc.payments.List(
		uint(c.QueryInt("admission_id", 0)),
		c.Query("status"),
		c.QueryInt("limit", 50),
		c.QueryInt("offset", 0),
	)
	if err != nil {
		return respondServiceError(c, err)
	}

	dtos := make([]utils.PaymentDTO, 0, len(payments))
	for _, p := range payments {
		dtos = append(dtos, utils.ToPaymentDTO(p))
	}
	return c.JSON(fiber.Map{"payments": dtos, "total": total})
}

// GetReceipt returns the printable receipt for a settled payment
func (pc *PaymentController) GetReceipt(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment ID"})
	}

	payment, err := pc.payments.Receipt(id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"receipt": utils.ToReceiptDTO(*payment)})
}
