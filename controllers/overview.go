package controllers

import (
	"fmt"
	"time"

	"coachdesk_go/services"
	"coachdesk_go/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type OverviewController struct {
	overview *services.FeeOverviewService
	reports  *services.ReportArchiveService
}

func NewOverviewController(ov *services.FeeOverviewService, reports *services.ReportArchiveService) *OverviewController {
	return &OverviewController{overview: ov, reports: reports}
}

// GetFeeOverview returns the institute-wide collection picture
func (oc *OverviewController) GetFeeOverview(c *fiber.Ctx) error {
	var (
		ov  *services.Overview
		err error
	)
	if c.Query("fresh") == "true" {
		ov, err = oc.overview.Build()
	} else {
		ov, err = oc.overview.Cached()
	}
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(ov)
}

// ExportFeeOverview streams the overview as an XLSX download. With
// ?archive=true the workbook is uploaded to S3 instead and the object URL
// returned.
func (oc *OverviewController) ExportFeeOverview(c *fiber.Ctx) error {
	ov, err := oc.overview.Build()
	if err != nil {
		return respondServiceError(c, err)
	}
	data, err := oc.overview.ExportXLSX(ov)
	if err != nil {
		return respondServiceError(c, err)
	}

	if c.Query("archive") == "true" {
		store, err := storage.NewStorageService()
		if err != nil {
			logrus.Errorf("Failed to initialize storage service: %v", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Storage unavailable"})
		}
		key, err := store.UploadDocument(data, "exports", "fee-overview", "xlsx")
		if err != nil {
			logrus.Errorf("Failed to archive fee overview: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to archive export"})
		}
		return c.JSON(fiber.Map{"key": key, "url": store.ObjectURL(key)})
	}

	fileName := fmt.Sprintf("fee-overview-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, fileName))
	return c.Send(data)
}

// GetReportArchives lists archived monthly exports
func (oc *OverviewController) GetReportArchives(c *fiber.Ctx) error {
	archives, err := oc.reports.ListArchives()
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"archives": archives})
}

// RunAuditSweep triggers the reconciliation audit on demand
func (oc *OverviewController) RunAuditSweep(c *fiber.Ctx) error {
	if err := oc.reports.RunAuditSweep(); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Audit sweep completed"})
}
