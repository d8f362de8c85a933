package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"coachdesk_go/config"
	"coachdesk_go/database"
	"coachdesk_go/models"
	"coachdesk_go/services/fees"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReportArchiveService runs the scheduled background jobs: a nightly
// reconciliation audit over all approved admissions and a monthly fee
// overview export archived to S3.
type ReportArchiveService struct {
	awsConfig aws.Config
	overview  *FeeOverviewService
}

func NewReportArchiveService() *ReportArchiveService {
	cfg, err := awscfg.LoadDefaultConfig(context.Background(), awscfg.WithRegion(os.Getenv("AWS_REGION")))
	if err != nil {
		logrus.WithError(err).Warn("Failed to load AWS config; report uploads will fail until configured")
	}
	return &ReportArchiveService{
		awsConfig: cfg,
		overview:  NewFeeOverviewService(),
	}
}

// StartScheduler registers the cron jobs and starts the scheduler. The
// returned cron can be stopped on shutdown.
func (ras *ReportArchiveService) StartScheduler() *cron.Cron {
	c := cron.New()

	// Nightly sweep re-derives every approved admission from its ledger and
	// repairs drift, e.g. after a crashed process or a manual DB edit.
	if _, err := c.AddFunc("30 2 * * *", func() {
		if err := ras.RunAuditSweep(); err != nil {
			logrus.WithError(err).Error("Reconciliation audit sweep failed")
		}
	}); err != nil {
		logrus.WithError(err).Error("Failed to schedule audit sweep")
	}

	// Hourly flush of Redis-buffered activity logs into the DB.
	if _, err := c.AddFunc("@hourly", func() {
		if err := ras.FlushCachedLogs(); err != nil {
			logrus.WithError(err).Warn("Activity log flush failed")
		}
	}); err != nil {
		logrus.WithError(err).Error("Failed to schedule log flush")
	}

	// Monthly overview export for the month that just ended.
	if _, err := c.AddFunc("0 3 1 * *", func() {
		period := time.Now().AddDate(0, -1, 0)
		if _, err := ras.ExportMonthly(period); err != nil {
			logrus.WithError(err).Error("Monthly fee overview export failed")
		}
	}); err != nil {
		logrus.WithError(err).Error("Failed to schedule monthly export")
	}

	c.Start()
	logrus.Info("Report scheduler started")
	return c
}

// FlushCachedLogs moves buffered activity logs from Redis to the database.
// Entries stay cached for fast recent-activity reads; anything older than
// the cutoff is persisted and dropped from the queue.
func (ras *ReportArchiveService) FlushCachedLogs() error {
	rdb := database.GetRedisClient()
	if rdb == nil {
		return fmt.Errorf("redis client not available")
	}
	ctx := context.Background()
	cutoff := time.Now().Add(-24 * time.Hour)

	keys, err := rdb.ZRangeByScore(ctx, "logs:queue", &redis.ZRangeBy{
		Min: "0",
		Max: fmt.Sprintf("%d", cutoff.Unix()),
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to read log queue: %v", err)
	}

	flushed := 0
	for _, key := range keys {
		raw, err := rdb.Get(ctx, key).Result()
		if err != nil {
			if err != redis.Nil {
				logrus.WithError(err).WithField("key", key).Warn("Failed to read cached log")
			}
			rdb.ZRem(ctx, "logs:queue", key)
			continue
		}

		var entry models.ActivityLog
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Failed to decode cached log")
			rdb.ZRem(ctx, "logs:queue", key)
			continue
		}
		if err := database.DB.Create(&entry).Error; err != nil {
			logrus.WithError(err).Warn("Failed to persist cached log")
			continue
		}

		pipe := rdb.Pipeline()
		pipe.Del(ctx, key)
		pipe.ZRem(ctx, "logs:queue", key)
		if _, err := pipe.Exec(ctx); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Failed to drop flushed log from cache")
		}
		flushed++
	}

	if flushed > 0 {
		logrus.WithField("count", flushed).Info("Flushed cached activity logs")
	}
	return nil
}

// RunAuditSweep reconciles every approved admission ledger-wide and reports
// how many had drifted.
func (ras *ReportArchiveService) RunAuditSweep() error {
	var ids []uint
	if err := database.DB.Model(&models.Admission{}).
		Where("approved = ?", true).
		Pluck("id", &ids).Error; err != nil {
		return err
	}

	repaired := 0
	for _, id := range ids {
		var before string
		if err := database.DB.Model(&models.Admission{}).
			Where("id = ?", id).
			Pluck("payment_status", &before).Error; err != nil {
			continue
		}
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			snap, err := fees.Reconcile(tx, id, fees.LedgerWide{})
			if err != nil {
				return err
			}
			if snap.PaymentStatus != before {
				repaired++
			}
			return nil
		})
		if err != nil {
			logrus.WithError(err).WithField("admission_id", id).Warn("Audit reconcile failed")
		}
	}

	logrus.WithFields(logrus.Fields{
		"admissions": len(ids),
		"repaired":   repaired,
	}).Info("Reconciliation audit sweep finished")
	return nil
}

// ExportMonthly builds the fee overview workbook for the month containing
// period, uploads it to S3 and records a ReportArchive row. The row is
// written first as pending so a failed upload stays visible.
func (ras *ReportArchiveService) ExportMonthly(period time.Time) (*models.ReportArchive, error) {
	start := time.Date(period.Year(), period.Month(), 1, 0, 0, 0, 0, period.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Second)

	ov, err := ras.overview.Build()
	if err != nil {
		return nil, err
	}
	data, err := ras.overview.ExportXLSX(ov)
	if err != nil {
		return nil, err
	}

	fileName := fmt.Sprintf("fee-overview-%s.xlsx", start.Format("2006-01"))
	key := fmt.Sprintf("reports/%d/%s", start.Year(), fileName)

	archive := models.ReportArchive{
		FileName:    fileName,
		S3Key:       key,
		PeriodStart: start,
		PeriodEnd:   end,
		RowCount:    len(ov.Rows),
		FileSize:    int64(len(data)),
		Status:      "pending",
	}
	if err := database.DB.Create(&archive).Error; err != nil {
		return nil, err
	}

	if err := ras.uploadToS3(key, data); err != nil {
		database.DB.Model(&archive).Updates(map[string]interface{}{
			"status": "failed",
			"error":  err.Error(),
		})
		return &archive, err
	}

	if err := database.DB.Model(&archive).Update("status", "completed").Error; err != nil {
		return &archive, err
	}
	archive.Status = "completed"

	logrus.WithFields(logrus.Fields{
		"file": fileName,
		"rows": archive.RowCount,
		"key":  key,
	}).Info("Fee overview archived")
	return &archive, nil
}

func (ras *ReportArchiveService) uploadToS3(key string, data []byte) error {
	if ras.awsConfig.Region == "" {
		return fmt.Errorf("AWS not configured")
	}

	s3Client := s3.NewFromConfig(ras.awsConfig)
	bucketName := config.AppConfig.S3BucketName

	_, err := s3Client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket:      &bucketName,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"),
	})
	return err
}

// ListArchives returns archived reports newest first.
func (ras *ReportArchiveService) ListArchives() ([]models.ReportArchive, error) {
	var archives []models.ReportArchive
	err := database.DB.Order("created_at DESC").Find(&archives).Error
	return archives, err
}
