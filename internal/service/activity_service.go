package service

import (
	"context"
	"encoding/json"
	"log"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/pagination"

	"github.com/google/uuid"
)

type ActivityLogResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Action     string `json:"action"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

// ActivityFilter narrows the activity listing
type ActivityFilter struct {
	Action     string
	EntityType string
	UserID     *uuid.UUID
}

// ActivityService records who did what. Record is best-effort: a failed log
// write must never fail the operation that triggered it.
type ActivityService interface {
	Record(ctx context.Context, action, entityType, entityID, entityName string, details map[string]any)
	List(ctx context.Context, params pagination.Params, filter ActivityFilter) (pagination.Result[ActivityLogResponse], error)
}

type activityService struct {
	repo repository.ActivityRepository
}

func NewActivityService(repo repository.ActivityRepository) ActivityService {
	return &activityService{repo: repo}
}

func (s *activityService) Record(ctx context.Context, action, entityType, entityID, entityName string, details map[string]any) {
	payload := "{}"
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			payload = string(raw)
		}
	}

	actor, _ := authUserOrNil(ctx)
	entry := &model.ActivityLog{
		UserID:     actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    payload,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		// Swallowed on purpose: activity logging never fails the primary operation
		log.Printf("activity log write failed (action=%s entity=%s/%s): %v", action, entityType, entityID, err)
	}
}

func (s *activityService) List(ctx context.Context, params pagination.Params, filter ActivityFilter) (pagination.Result[ActivityLogResponse], error) {
	criteria := repository.Criteria{}
	if filter.Action != "" {
		criteria["action"] = filter.Action
	}
	if filter.EntityType != "" {
		criteria["entity_type"] = filter.EntityType
	}
	if filter.UserID != nil {
		criteria["user_id"] = *filter.UserID
	}
	if params.Search != "" {
		criteria[repository.KeySearch] = params.Search
	}

	page, err := s.repo.FindAll(ctx, repository.ListOptions{
		Page:     params.Page,
		Limit:    params.Limit,
		SortBy:   params.SortBy,
		SortDir:  params.SortDir,
		Criteria: criteria,
	})
	if err != nil {
		return pagination.Result[ActivityLogResponse]{}, err
	}

	res := make([]ActivityLogResponse, 0, len(page.Data))
	for _, l := range page.Data {
		username := "System"
		userID := ""
		if l.User != nil {
			username = l.User.Username
		}
		if l.UserID != nil {
			userID = l.UserID.String()
		}

		res = append(res, ActivityLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			Username:   username,
			Action:     l.Action,
			EntityType: l.EntityType,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return pagination.Result[ActivityLogResponse]{Data: res, Pagination: page.Pagination}, nil
}
