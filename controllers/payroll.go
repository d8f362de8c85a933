package controllers

import (
	"regexp"
	"time"

	"coachdesk_go/database"
	"coachdesk_go/middleware"
	"coachdesk_go/models"

	"github.com/gofiber/fiber/v2"
)

type PayrollController struct{}

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// PayoutRequest records one monthly salary payout.
type PayoutRequest struct {
	TeacherID uint   `json:"teacher_id" validate:"required"`
	Month     string `json:"month" validate:"required"`
	Amount    int64  `json:"amount" validate:"min=0"`
	Notes     string `json:"notes"`
}

// CreatePayout records a teacher's salary payout for one month. The unique
// (teacher, month) index makes a repeated payout a conflict.
func (pc *PayrollController) CreatePayout(c *fiber.Ctx) error {
	var req PayoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if !monthPattern.MatchString(req.Month) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Month must be YYYY-MM"})
	}

	var teacher models.Teacher
	if err := database.DB.First(&teacher, req.TeacherID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Teacher not found"})
	}
	if !teacher.Active {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Teacher is not active"})
	}

	var count int64
	database.DB.Model(&models.TeacherPayout{}).
		Where("teacher_id = ? AND month = ?", req.TeacherID, req.Month).
		Count(&count)
	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Payout already recorded for this month"})
	}

	amount := req.Amount
	if amount == 0 {
		amount = teacher.MonthlySalary
	}
	now := time.Now()
	payout := models.TeacherPayout{
		TeacherID: req.TeacherID,
		Month:     req.Month,
		Amount:    amount,
		PaidAt:    &now,
		Notes:     req.Notes,
	}
	if err := database.DB.Create(&payout).Error; err != nil {
		// The unique index is the last line of defense against a racing
		// duplicate that slipped past the count above.
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Payout already recorded for this month"})
	}

	middleware.LogActivity(c, "CREATE", "payouts", payout.ID, fiber.Map{"teacher_id": req.TeacherID, "month": req.Month, "amount": amount})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"payout": payout})
}

// GetPayouts lists payouts, optionally scoped to one teacher or month
func (pc *PayrollController) GetPayouts(c *fiber.Ctx) error {
	query := database.DB.Model(&models.TeacherPayout{}).Preload("Teacher")
	if teacherID := c.QueryInt("teacher_id", 0); teacherID > 0 {
		query = query.Where("teacher_id = ?", teacherID)
	}
	if month := c.Query("month"); month != "" {
		query = query.Where("month = ?", month)
	}

	var payouts []models.TeacherPayout
	if err := query.Order("month DESC").Find(&payouts).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch payouts"})
	}
	return c.JSON(fiber.Map{"payouts": payouts})
}

// GetTeachers lists payroll subjects
func (pc *PayrollController) GetTeachers(c *fiber.Ctx) error {
	var teachers []models.Teacher
	if err := database.DB.Preload("User").Order("first_name").Find(&teachers).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch teachers"})
	}
	return c.JSON(fiber.Map{"teachers": teachers})
}
