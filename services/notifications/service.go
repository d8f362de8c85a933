package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"coachdesk_go/config"
	"coachdesk_go/database"
	"coachdesk_go/models"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Queue item structure stored in Redis. Kept minimal to reduce payload size;
// one item may fan out to many users. The DB insert is the source of truth,
// Redis only buffers: if Redis is down we fall back to direct insert.
type queuedNotification struct {
	UserIDs   []uint    `json:"user_ids"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const redisListKey = "notifications:queue"

// WSHub pushes notifications to connected clients.
type WSHub interface {
	BroadcastToUser(userID uint, message interface{})
}

// defaultHub lets services created in different parts of the app broadcast
// over the same WebSocket hub without wiring each instance manually.
var defaultHub WSHub

// SetDefaultWSHub sets the package-level default hub used by new Service instances.
func SetDefaultWSHub(h WSHub) {
	defaultHub = h
}

// Service creates notifications, optionally through a Redis queue flushed by
// a background worker. With Redis disabled or unavailable it inserts directly.
type Service struct {
	db       *gorm.DB
	redis    *redis.Client
	useRedis bool
	wsHub    WSHub
}

func NewService() *Service {
	return &Service{
		db:       database.GetDB(),
		redis:    database.GetRedisClient(),
		useRedis: config.AppConfig != nil && config.AppConfig.UseRedisNotifications && database.GetRedisClient() != nil,
		wsHub:    defaultHub,
	}
}

// SetWebSocketHub overrides the hub for this instance.
func (s *Service) SetWebSocketHub(hub WSHub) {
	s.wsHub = hub
}

// Queue creates one notification for one user.
func (s *Service) Queue(userID uint, title, message, typ string, data any) error {
	return s.QueueMany([]uint{userID}, title, message, typ, data)
}

// QueueMany fans one notification out to several users, via Redis when
// enabled, direct insert otherwise.
func (s *Service) QueueMany(userIDs []uint, title, message, typ string, data any) error {
	if len(userIDs) == 0 {
		return errors.New("no user ids")
	}
	n := queuedNotification{
		UserIDs:   userIDs,
		Title:     title,
		Message:   message,
		Type:      typ,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}

	if s.useRedis {
		b, err := json.Marshal(n)
		if err != nil {
			return err
		}
		if err = s.redis.RPush(context.Background(), redisListKey, b).Err(); err == nil {
			return nil
		}
		log.Printf("[notif] Redis queue failed, falling back to direct insert: %v", err)
	}

	return s.createDirect(n)
}

// createDirect writes to the DB and pushes over WebSocket. Used by the
// worker and as the Redis fallback.
func (s *Service) createDirect(n queuedNotification) error {
	if len(n.UserIDs) == 0 {
		return nil
	}
	var dataJSON []byte
	if n.Data != nil {
		if b, err := json.Marshal(n.Data); err == nil {
			dataJSON = b
		}
	}
	notifs := make([]models.Notification, 0, len(n.UserIDs))
	for _, uid := range n.UserIDs {
		notifs = append(notifs, models.Notification{
			UserID:  uid,
			Title:   n.Title,
			Message: n.Message,
			Type:    n.Type,
			Read:    false,
			Data:    dataJSON,
		})
	}

	if err := s.db.Create(&notifs).Error; err != nil {
		return err
	}

	if s.wsHub != nil {
		for _, notif := range notifs {
			s.wsHub.BroadcastToUser(notif.UserID, map[string]interface{}{
				"type": "notification",
				"data": notif,
			})
		}
	}
	return nil
}

// StartWorker starts a background worker polling the Redis queue and
// flushing batches to the DB.
func (s *Service) StartWorker(stop <-chan struct{}) {
	if !s.useRedis {
		log.Println("[notif] Redis notifications disabled; worker not started")
		return
	}
	go func() {
		log.Println("[notif] Redis notification worker started")
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		ctx := context.Background()
		batchSize := 200
		for {
			select {
			case <-stop:
				log.Println("[notif] Worker stopping")
				return
			case <-ticker.C:
				s.flushBatch(ctx, batchSize)
			}
		}
	}()
}

// flushBatch drains up to a few sub-batches per tick. LRange+LTrim keeps it
// safe for moderate concurrency.
func (s *Service) flushBatch(ctx context.Context, batchSize int) {
	if s.redis == nil {
		return
	}
	for i := 0; i < 5; i++ {
		vals, err := s.redis.LRange(ctx, redisListKey, 0, int64(batchSize-1)).Result()
		if err != nil || len(vals) == 0 {
			return
		}
		if err = s.redis.LTrim(ctx, redisListKey, int64(len(vals)), -1).Err(); err != nil {
			log.Printf("[notif] LTrim failed: %v", err)
		}
		for _, raw := range vals {
			var q queuedNotification
			if err := json.Unmarshal([]byte(raw), &q); err != nil {
				continue
			}
			if err := s.createDirect(q); err != nil {
				log.Printf("[notif] DB insert failed: %v", err)
			}
		}
		if len(vals) < batchSize {
			return
		}
	}
}
