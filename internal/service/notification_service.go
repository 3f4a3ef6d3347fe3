package service

import (
	"context"
	"log"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"
	"backend/pkg/pagination"

	"github.com/google/uuid"
)

// Notifier pushes a payload to a connected user, if any. Implemented by the
// websocket hub; delivery is best-effort.
type Notifier interface {
	Push(userID uuid.UUID, event string, payload any)
}

// --- DTOs ---

type NotificationResponse struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Type      string     `json:"type"`
	IsRead    bool       `json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// --- Interface ---

type NotificationService interface {
	// Notify creates a notification and pushes it; failures are logged, never
	// surfaced, so callers can fire and forget.
	Notify(ctx context.Context, userID uuid.UUID, notifType, title, message string)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params, unreadOnly bool) (pagination.Result[NotificationResponse], error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (NotificationResponse, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type notificationService struct {
	repo     repository.NotificationRepository
	notifier Notifier
}

func NewNotificationService(repo repository.NotificationRepository, notifier Notifier) NotificationService {
	return &notificationService{repo: repo, notifier: notifier}
}

func (s *notificationService) Notify(ctx context.Context, userID uuid.UUID, notifType, title, message string) {
	n := &model.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    notifType,
	}
	if actor, ok := authUserOrNil(ctx); ok {
		n.CreatedBy = actor
		n.UpdatedBy = actor
	}

	if err := s.repo.Create(ctx, n); err != nil {
		log.Printf("notification write failed (user=%s title=%q): %v", userID, title, err)
		return
	}

	if s.notifier != nil {
		s.notifier.Push(userID, "notification", toNotificationResponse(n))
	}
}

func (s *notificationService) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params, unreadOnly bool) (pagination.Result[NotificationResponse], error) {
	criteria := repository.Criteria{"user_id": userID}
	if unreadOnly {
		criteria["is_read"] = false
	}

	page, err := s.repo.FindAll(ctx, repository.ListOptions{
		Page:     params.Page,
		Limit:    params.Limit,
		Criteria: criteria,
	})
	if err != nil {
		return pagination.Result[NotificationResponse]{}, err
	}

	res := make([]NotificationResponse, 0, len(page.Data))
	for i := range page.Data {
		res = append(res, toNotificationResponse(&page.Data[i]))
	}
	return pagination.Result[NotificationResponse]{Data: res, Pagination: page.Pagination}, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.Count(ctx, repository.Criteria{"user_id": userID, "is_read": false})
}

// MarkRead only touches notifications addressed to the calling user
func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (NotificationResponse, error) {
	n, err := s.repo.FindByID(ctx, notificationID)
	if err != nil {
		return NotificationResponse{}, err
	}
	if n == nil || n.UserID != userID {
		// A notification you can't see is indistinguishable from one that doesn't exist
		return NotificationResponse{}, apperror.NewNotFound("notification", notificationID)
	}
	if n.IsRead {
		return toNotificationResponse(n), nil
	}

	now := time.Now()
	n.IsRead = true
	n.ReadAt = &now
	if err := s.repo.Save(ctx, n); err != nil {
		return NotificationResponse{}, err
	}
	return toNotificationResponse(n), nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	unread, err := s.repo.FindByCriteria(ctx, repository.Criteria{"user_id": userID, "is_read": false})
	if err != nil {
		return 0, err
	}
	if len(unread) == 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, 0, len(unread))
	for _, n := range unread {
		ids = append(ids, n.ID)
	}
	return s.repo.BulkUpdate(ctx, ids, map[string]any{"is_read": true, "read_at": time.Now()})
}

func toNotificationResponse(n *model.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		IsRead:    n.IsRead,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}
