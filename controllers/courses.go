package controllers

import (
	"coachdesk_go/database"
	"coachdesk_go/middleware"
	"coachdesk_go/models"

	"github.com/gofiber/fiber/v2"
)

type CourseController struct{}

// CourseRequest is the create/update payload for catalog entries.
type CourseRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Code        string `json:"code" validate:"required,max=100"`
	Description string `json:"description"`
	Level       string `json:"level" validate:"max=100"`
	DurationWks int    `json:"duration_weeks" validate:"min=0"`
	Fee         int64  `json:"fee" validate:"min=0"`
	Status      string `json:"status" validate:"omitempty,oneof=active inactive"`
}

// GetCourses lists catalog entries. Public callers only see active courses.
func (cc *CourseController) GetCourses(c *fiber.Ctx) error {
	query := database.DB.Model(&models.Course{})
	if _, err := middleware.GetCurrentUser(c); err != nil {
		query = query.Where("status = ?", "active")
	} else if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var courses []models.Course
	if err := query.Order("name").Find(&courses).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch courses"})
	}
	return c.JSON(fiber.Map{"courses": courses})
}

// GetCourse returns one catalog entry
func (cc *CourseController) GetCourse(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course ID"})
	}

	var course models.Course
	if err := database.DB.First(&course, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Course not found"})
	}
	return c.JSON(fiber.Map{"course": course})
}

// CreateCourse adds a catalog entry (admin only)
func (cc *CourseController) CreateCourse(c *fiber.Ctx) error {
	var req CourseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var count int64
	database.DB.Model(&models.Course{}).Where("code = ?", req.Code).Count(&count)
	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Course code already exists"})
	}

	status := req.Status
	if status == "" {
		status = "active"
	}
	course := models.Course{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		Level:       req.Level,
		DurationWks: req.DurationWks,
		Fee:         req.Fee,
		Status:      status,
	}
	if err := database.DB.Create(&course).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create course"})
	}

	middleware.LogActivity(c, "CREATE", "courses", course.ID, fiber.Map{"code": course.Code, "fee": course.Fee})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"course": course})
}

// UpdateCourse edits a catalog entry. Fee changes only affect future
// admissions; existing admissions keep their snapshot.
func (cc *CourseController) UpdateCourse(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course ID"})
	}

	var course models.Course
	if err := database.DB.First(&course, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Course not found"})
	}

	var req CourseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	updates := map[string]interface{}{
		"name":         req.Name,
		"code":         req.Code,
		"description":  req.Description,
		"level":        req.Level,
		"duration_wks": req.DurationWks,
		"fee":          req.Fee,
	}
	if req.Status != "" {
		updates["status"] = req.Status
	}
	if err := database.DB.Model(&course).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update course"})
	}

	middleware.LogActivity(c, "UPDATE", "courses", course.ID, fiber.Map{"code": req.Code})
	return c.JSON(fiber.Map{"course": course})
}

// DeleteCourse soft-deletes a catalog entry. Existing admissions keep their
// snapshots, so history is unaffected.
func (cc *CourseController) DeleteCourse(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course ID"})
	}

	var course models.Course
	if err := database.DB.First(&course, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Course not found"})
	}
	if err := database.DB.Delete(&course).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete course"})
	}

	middleware.LogActivity(c, "DELETE", "courses", course.ID, fiber.Map{"code": course.Code})
	return c.JSON(fiber.Map{"message": "Course deleted"})
}
