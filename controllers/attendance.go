package controllers

import (
	"time"

	"coachdesk_go/database"
	"coachdesk_go/middleware"
	"coachdesk_go/models"

	"github.com/gofiber/fiber/v2"
)

type AttendanceController struct{}

// AttendanceRequest marks one admission for one session date.
type AttendanceRequest struct {
	AdmissionID uint   `json:"admission_id" validate:"required"`
	SessionDate string `json:"session_date" validate:"required"`
	Status      string `json:"status" validate:"required,oneof=present absent late"`
	Notes       string `json:"notes"`
}

// MarkAttendance records or updates one attendance entry
func (ac *AttendanceController) MarkAttendance(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req AttendanceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	sessionDate, err := time.Parse("2006-01-02", req.SessionDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Session date must be YYYY-MM-DD"})
	}

	var admission models.Admission
	if err := database.DB.First(&admission, req.AdmissionID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Admission not found"})
	}

	// One row per admission per date; re-marking updates in place.
	var entry models.Attendance
	result := database.DB.Where("admission_id = ? AND session_date = ?", req.AdmissionID, sessionDate).First(&entry)
	if result.Error == nil {
		updates := map[string]interface{}{
			"status":       req.Status,
			"notes":        req.Notes,
			"marked_by_id": user.ID,
		}
		if err := database.DB.Model(&entry).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update attendance"})
		}
		return c.JSON(fiber.Map{"attendance": entry})
	}

	entry = models.Attendance{
		AdmissionID: req.AdmissionID,
		SessionDate: sessionDate,
		Status:      req.Status,
		MarkedByID:  user.ID,
		Notes:       req.Notes,
	}
	if err := database.DB.Create(&entry).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to mark attendance"})
	}

	middleware.LogActivity(c, "CREATE", "attendance", entry.ID, fiber.Map{"admission_id": req.AdmissionID, "status": req.Status})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"attendance": entry})
}

// GetAttendance lists attendance entries for one admission
func (ac *AttendanceController) GetAttendance(c *fiber.Ctx) error {
	admissionID := c.QueryInt("admission_id", 0)
	if admissionID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "admission_id is required"})
	}

	var entries []models.Attendance
	if err := database.DB.Where("admission_id = ?", admissionID).
		Order("session_date DESC").Find(&entries).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch attendance"})
	}
	return c.JSON(fiber.Map{"attendance": entries})
}
