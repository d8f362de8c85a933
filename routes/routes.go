package routes

import (
	"coachdesk_go/config"
	"coachdesk_go/controllers"
	"coachdesk_go/handlers"
	"coachdesk_go/middleware"
	"coachdesk_go/services"
	"coachdesk_go/services/notifications"
	"coachdesk_go/services/websocket"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
)

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, wsHub *websocket.Hub) {
	// Services
	notifService := notifications.NewService()
	notifService.SetWebSocketHub(wsHub)
	admissionService := services.NewAdmissionService(config.AppConfig.StudentIDPrefix, config.AppConfig.DefaultInstallments)
	paymentService := services.NewPaymentService(notifService)
	overviewService := services.NewFeeOverviewService()
	reportService := services.NewReportArchiveService()

	// Controllers
	authController := &controllers.AuthController{}
	courseController := &controllers.CourseController{}
	admissionController := controllers.NewAdmissionController(admissionService)
	paymentController := controllers.NewPaymentController(paymentService, overviewService)
	overviewController := controllers.NewOverviewController(overviewService, reportService)
	payrollController := &controllers.PayrollController{}
	attendanceController := &controllers.AttendanceController{}
	notificationController := &controllers.NotificationController{}
	healthController := controllers.NewHealthController(services.NewHealthService("", ""))
	wsController := controllers.NewWebSocketController(wsHub)
	webhookHandler := handlers.NewGatewayWebhookHandler(paymentService, overviewService)

	// API group
	api := app.Group("/api")

	// Public routes (no authentication required)
	public := api.Group("/public")
	public.Get("/courses", courseController.GetCourses)
	public.Get("/courses/:id", courseController.GetCourse)
	public.Post("/admissions", admissionController.SubmitAdmission)

	// Payment gateway callback, authenticated by HMAC signature
	api.Post("/webhooks/gateway", webhookHandler.Handle)

	// Authentication routes
	auth := api.Group("/auth")
	auth.Post("/login", authController.Login)
	auth.Get("/profile", middleware.JWTMiddleware(), authController.GetProfile)

	// Protected routes (require authentication)
	protected := api.Group("/", middleware.JWTMiddleware())

	protected.Get("/profile", authController.GetProfile)
	protected.Put("/profile/password", authController.ChangePassword)
	protected.Post("/auth/logout", authController.Logout)

	// User management
	users := protected.Group("/users", middleware.RequireOwnerOrAdmin())
	users.Post("/", authController.Register)

	// Course catalog management
	courses := protected.Group("/courses")
	courses.Get("/", courseController.GetCourses)
	courses.Get("/:id", courseController.GetCourse)
	courses.Post("/", middleware.RequireOwnerOrAdmin(), courseController.CreateCourse)
	courses.Put("/:id", middleware.RequireOwnerOrAdmin(), courseController.UpdateCourse)
	courses.Delete("/:id", middleware.RequireOwnerOrAdmin(), courseController.DeleteCourse)

	// Admissions
	admissions := protected.Group("/admissions")
	admissions.Get("/", middleware.RequireTeacherOrAbove(), admissionController.GetAdmissions)
	admissions.Get("/:id", middleware.RequireTeacherOrAbove(), admissionController.GetAdmission)
	admissions.Get("/:id/fees", middleware.RequireTeacherOrAbove(), admissionController.GetFeeSummary)
	admissions.Post("/", middleware.RequireOwnerOrAdmin(), admissionController.CreateAdmission)
	admissions.Post("/:id/approve", middleware.RequireOwnerOrAdmin(), admissionController.ApproveAdmission)
	admissions.Put("/:id/discount", middleware.RequireOwnerOrAdmin(), admissionController.ApplyDiscount)
	admissions.Put("/:id/installments", middleware.RequireOwnerOrAdmin(), admissionController.OverrideInstallment)

	// Payments
	payments := protected.Group("/payments")
	payments.Get("/", middleware.RequireTeacherOrAbove(), paymentController.GetPayments)
	payments.Get("/:id/receipt", middleware.RequireTeacherOrAbove(), paymentController.GetReceipt)
	payments.Post("/gateway-session", paymentController.CreateGatewaySession)
	payments.Post("/manual", paymentController.SubmitManualPayment)
	payments.Post("/:id/approve", middleware.RequireOwnerOrAdmin(), paymentController.ApprovePayment)
	payments.Post("/:id/reject", middleware.RequireOwnerOrAdmin(), paymentController.RejectPayment)
	payments.Post("/admin", middleware.RequireOwnerOrAdmin(), paymentController.RecordAdminPayment)

	// Fee overview and reports
	reports := protected.Group("/reports", middleware.RequireOwnerOrAdmin())
	reports.Get("/fee-overview", overviewController.GetFeeOverview)
	reports.Get("/fee-overview/export", overviewController.ExportFeeOverview)
	reports.Get("/archives", overviewController.GetReportArchives)
	reports.Post("/audit-sweep", overviewController.RunAuditSweep)

	// Payroll
	payroll := protected.Group("/payroll", middleware.RequireOwnerOrAdmin())
	payroll.Get("/teachers", payrollController.GetTeachers)
	payroll.Get("/payouts", payrollController.GetPayouts)
	payroll.Post("/payouts", payrollController.CreatePayout)

	// Attendance
	attendance := protected.Group("/attendance", middleware.RequireTeacherOrAbove())
	attendance.Get("/", attendanceController.GetAttendance)
	attendance.Post("/", attendanceController.MarkAttendance)

	// Notifications
	notifs := protected.Group("/notifications")
	notifs.Get("/", notificationController.GetNotifications)
	notifs.Put("/:id/read", notificationController.MarkAsRead)
	notifs.Put("/read-all", notificationController.MarkAllAsRead)

	// Health
	api.Get("/health", healthController.GetHealthStatus)

	// WebSocket stats (admin only)
	ws := protected.Group("/ws")
	ws.Get("/stats", middleware.RequireOwnerOrAdmin(), wsController.GetWebSocketStats)

	// WebSocket connection endpoint
	app.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", wsController.WebSocketHandler())
}
