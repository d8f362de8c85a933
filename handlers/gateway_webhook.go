package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"

	"coachdesk_go/config"
	"coachdesk_go/services"
	"coachdesk_go/services/fees"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// GatewayWebhookHandler receives payment processor callbacks. The processor
// signs the raw body with HMAC-SHA256 over the shared secret; anything
// unsigned is dropped before it can touch the ledger.
type GatewayWebhookHandler struct {
	payments *services.PaymentService
	overview *services.FeeOverviewService
}

func NewGatewayWebhookHandler(ps *services.PaymentService, ov *services.FeeOverviewService) *GatewayWebhookHandler {
	return &GatewayWebhookHandler{payments: ps, overview: ov}
}

// gatewayEvent is the processor callback payload.
type gatewayEvent struct {
	SessionID  string `json:"session_id"`
	Status     string `json:"status"` // success, failed
	GatewayRef string `json:"gateway_ref"`
}

// Handle verifies the signature and settles the referenced session.
// Processors retry until they see 200, so settled re-deliveries answer OK.
func (h *GatewayWebhookHandler) Handle(c *fiber.Ctx) error {
	secret := config.AppConfig.GatewayWebhookSecret
	if secret == "" {
		logrus.Warn("Gateway webhook secret not configured; rejecting callback")
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}

	signature := c.Get("X-Gateway-Signature")
	if signature == "" {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	if !ValidateSignature(secret, c.Body(), signature) {
		logrus.WithField("ip", c.IP()).Warn("Gateway webhook signature mismatch")
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	var event gatewayEvent
	if err := json.Unmarshal(c.Body(), &event); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payload"})
	}
	if event.SessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing session_id"})
	}

	var success bool
	switch event.Status {
	case "success":
		success = true
	case "failed":
		success = false
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown status"})
	}

	payment, snap, err := h.payments.ConfirmGatewaySession(event.SessionID, event.GatewayRef, success)
	if err != nil {
		if errors.Is(err, fees.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Unknown session"})
		}
		logrus.WithError(err).Error("Gateway confirmation failed")
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	h.overview.Invalidate()

	logrus.WithFields(logrus.Fields{
		"session_id": event.SessionID,
		"payment_id": payment.ID,
		"success":    success,
	}).Info("Gateway callback processed")

	resp := fiber.Map{"payment_status": payment.Status}
	if snap != nil {
		resp["admission_status"] = snap.PaymentStatus
		resp["balance_due"] = snap.BalanceDue
	}
	return c.JSON(resp)
}

// ComputeSignature returns the base64 HMAC-SHA256 of body under secret.
func ComputeSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ValidateSignature checks a callback signature in constant time.
func ValidateSignature(secret string, body []byte, signature string) bool {
	return hmac.Equal([]byte(signature), []byte(ComputeSignature(secret, body)))
}
