package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const unreadCacheTTL = 5 * time.Minute

// NotificationService exposes a user's inbox: list, read, delete, counters.
// The unread counter is cached in Redis and invalidated whenever the inbox
// changes.
type NotificationService struct {
	notifications repository.NotificationRepository
	redis         *redis.Client
	logger        *zap.Logger
}

// NewNotificationService constructs the service. The redis client may be nil,
// in which case counters always hit the store.
func NewNotificationService(notifications repository.NotificationRepository, redisClient *redis.Client, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		redis:         redisClient,
		logger:        logger,
	}
}

// List returns the caller's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	return s.notifications.ListByUser(ctx, userID, unreadOnly, limit, offset)
}

// MarkRead flips one notification to read. Owned rows only.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) (*domain.Notification, error) {
	notification, err := s.notifications.MarkRead(ctx, notificationID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("notification", map[string]any{"id": notificationID})
		}
		return nil, err
	}
	s.InvalidateUnread(ctx, userID)
	return notification, nil
}

// MarkAllRead flips every unread notification of the caller.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	updated, err := s.notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.InvalidateUnread(ctx, userID)
	return updated, nil
}

// Delete removes one notification. Owned rows only.
func (s *NotificationService) Delete(ctx context.Context, userID, notificationID string) error {
	deleted, err := s.notifications.Delete(ctx, notificationID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.NewNotFound("notification", map[string]any{"id": notificationID})
	}
	s.InvalidateUnread(ctx, userID)
	return nil
}

// Stats returns total and unread counts and refreshes the cached counter.
func (s *NotificationService) Stats(ctx context.Context, userID string) (domain.NotificationStats, error) {
	stats, err := s.notifications.StatsByUser(ctx, userID)
	if err != nil {
		return domain.NotificationStats{}, err
	}
	s.storeUnread(ctx, userID, stats.Unread)
	return stats, nil
}

// UnreadCount returns the unread counter, preferring the Redis cache.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if s.redis != nil {
		if raw, err := s.redis.Get(ctx, unreadKey(userID)).Result(); err == nil {
			if count, parseErr := strconv.ParseInt(raw, 10, 64); parseErr == nil {
				return count, nil
			}
		}
	}
	stats, err := s.notifications.StatsByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.storeUnread(ctx, userID, stats.Unread)
	return stats.Unread, nil
}

// InvalidateUnread drops the cached unread counter for a user.
func (s *NotificationService) InvalidateUnread(ctx context.Context, userID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, unreadKey(userID)).Err(); err != nil {
		s.logger.Debug("unread cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *NotificationService) storeUnread(ctx context.Context, userID string, count int64) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, unreadKey(userID), strconv.FormatInt(count, 10), unreadCacheTTL).Err(); err != nil {
		s.logger.Debug("unread cache store failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func unreadKey(userID string) string {
	return "notifications:unread:" + userID
}
