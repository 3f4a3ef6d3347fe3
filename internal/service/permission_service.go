package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"

	"github.com/google/uuid"
)

// roleDefaults maps a normalized role name to the permission codes it implies.
// This is a floor, not a ceiling: explicit grants can only add to it, and
// nothing stored can subtract from it. Revoking a role-implied permission
// requires changing the role itself.
var roleDefaults = map[string][]string{
	model.RoleAdmin: {
		model.PermCustomersView, model.PermCustomersEdit, model.PermCustomersDelete,
		model.PermAppointmentsView, model.PermAppointmentsEdit,
		model.PermRequestsView, model.PermRequestsEdit,
		model.PermNotificationsView,
		model.PermUsersView, model.PermUsersEdit, model.PermUsersDelete,
		model.PermPermissionsManage, model.PermActivityView,
	},
	model.RoleManager: {
		model.PermCustomersView, model.PermCustomersEdit,
		model.PermAppointmentsView, model.PermAppointmentsEdit,
		model.PermRequestsView, model.PermRequestsEdit,
		model.PermNotificationsView,
		model.PermUsersView,
		model.PermActivityView,
	},
	model.RoleUser: {
		model.PermCustomersView,
		model.PermAppointmentsView,
		model.PermRequestsView,
		model.PermNotificationsView,
	},
}

// normalizeRole guards against casing drift between stored roles and the
// defaults table.
func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

// RoleDefaultCodes returns the default permission set for a role (empty for
// unknown roles).
func RoleDefaultCodes(role string) []string {
	codes := roleDefaults[normalizeRole(role)]
	out := make([]string, len(codes))
	copy(out, codes)
	return out
}

// IsKnownRole reports whether the role has a defaults entry
func IsKnownRole(role string) bool {
	_, ok := roleDefaults[normalizeRole(role)]
	return ok
}

// defaultCatalog is inserted once, only when the permissions table is empty
var defaultCatalog = []model.Permission{
	{Code: model.PermCustomersView, Name: "View customers", Description: "Read access to customer records", Category: "customers"},
	{Code: model.PermCustomersEdit, Name: "Edit customers", Description: "Create and update customer records", Category: "customers"},
	{Code: model.PermCustomersDelete, Name: "Delete customers", Description: "Remove customer records", Category: "customers"},
	{Code: model.PermAppointmentsView, Name: "View appointments", Description: "Read access to appointments", Category: "appointments"},
	{Code: model.PermAppointmentsEdit, Name: "Manage appointments", Description: "Create, update and transition appointments", Category: "appointments"},
	{Code: model.PermRequestsView, Name: "View requests", Description: "Read access to requests and leads", Category: "requests"},
	{Code: model.PermRequestsEdit, Name: "Manage requests", Description: "Create, update, assign and annotate requests", Category: "requests"},
	{Code: model.PermNotificationsView, Name: "View notifications", Description: "Read own notifications", Category: "notifications"},
	{Code: model.PermUsersView, Name: "View users", Description: "Read access to user accounts", Category: "users"},
	{Code: model.PermUsersEdit, Name: "Manage users", Description: "Create and update user accounts", Category: "users"},
	{Code: model.PermUsersDelete, Name: "Delete users", Description: "Remove user accounts", Category: "users"},
	{Code: model.PermPermissionsManage, Name: "Manage permissions", Description: "Grant and revoke explicit user permissions", Category: "admin"},
	{Code: model.PermActivityView, Name: "View activity", Description: "Read the activity log", Category: "admin"},
}

// --- DTOs ---

type PermissionResponse struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type UserPermissionsResponse struct {
	UserID          string   `json:"user_id"`
	Role            string   `json:"role"`
	RolePermissions []string `json:"role_permissions"`
	ExplicitGrants  []string `json:"explicit_grants"`
	Effective       []string `json:"effective"`
}

type UpdateUserPermissionsRequest struct {
	Codes []string `json:"codes" binding:"required"`
}

// --- Interface ---

// PermissionService answers "does user U hold permission P" consistently for
// middleware, handlers and anything else that asks.
type PermissionService interface {
	GetUserPermissions(ctx context.Context, userID uuid.UUID) (*UserPermissionsResponse, error)
	HasPermission(ctx context.Context, userID uuid.UUID, code string) (bool, error)
	UpdateUserPermissions(ctx context.Context, userID uuid.UUID, req UpdateUserPermissionsRequest) (*UserPermissionsResponse, error)
	ListCatalog(ctx context.Context) ([]PermissionResponse, error)
	Seed(ctx context.Context) error
}

type permissionService struct {
	userRepo   repository.UserRepository
	permRepo   repository.PermissionRepository
	txManager  repository.TransactionManager
	activity   ActivityService
	invalidate func(userID uuid.UUID) // permission-cache invalidation, may be nil
}

func NewPermissionService(
	userRepo repository.UserRepository,
	permRepo repository.PermissionRepository,
	txManager repository.TransactionManager,
	activity ActivityService,
	invalidate func(userID uuid.UUID),
) PermissionService {
	return &permissionService{
		userRepo:   userRepo,
		permRepo:   permRepo,
		txManager:  txManager,
		activity:   activity,
		invalidate: invalidate,
	}
}

// GetUserPermissions computes roleDefaults(user.role) ∪ explicit grants.
// Permission resolution for a nonexistent user is a NotFound, not an empty set.
func (s *permissionService) GetUserPermissions(ctx context.Context, userID uuid.UUID) (*UserPermissionsResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NewNotFound("user", userID)
	}

	rolePerms := RoleDefaultCodes(user.Role)
	grants, err := s.permRepo.ListGrantCodes(ctx, userID)
	if err != nil {
		return nil, err
	}

	effective := make(map[string]struct{}, len(rolePerms)+len(grants))
	for _, code := range rolePerms {
		effective[code] = struct{}{}
	}
	for _, code := range grants {
		effective[code] = struct{}{}
	}

	codes := make([]string, 0, len(effective))
	for code := range effective {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	sort.Strings(rolePerms)
	sort.Strings(grants)

	return &UserPermissionsResponse{
		UserID:          userID.String(),
		Role:            normalizeRole(user.Role),
		RolePermissions: rolePerms,
		ExplicitGrants:  grants,
		Effective:       codes,
	}, nil
}

// HasPermission short-circuits on role defaults before touching the grants
// table; equivalent to, but cheaper than, computing the full effective set.
func (s *permissionService) HasPermission(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, apperror.NewNotFound("user", userID)
	}

	for _, rc := range roleDefaults[normalizeRole(user.Role)] {
		if rc == code {
			return true, nil
		}
	}
	return s.permRepo.HasGrant(ctx, userID, code)
}

// UpdateUserPermissions replaces the user's explicit grants with
// desired − roleDefaults, filtered to codes present in the catalog, in one
// transaction. Codes in roleDefaults but not in desired are computed as the
// removal set, but there is no stored negative grant: role-default
// permissions survive this call unchanged.
func (s *permissionService) UpdateUserPermissions(ctx context.Context, userID uuid.UUID, req UpdateUserPermissionsRequest) (*UserPermissionsResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NewNotFound("user", userID)
	}

	roleSet := make(map[string]struct{})
	for _, code := range roleDefaults[normalizeRole(user.Role)] {
		roleSet[code] = struct{}{}
	}

	desired := make(map[string]struct{}, len(req.Codes))
	additional := make([]string, 0, len(req.Codes))
	for _, code := range req.Codes {
		if _, seen := desired[code]; seen {
			continue
		}
		desired[code] = struct{}{}
		if _, implied := roleSet[code]; !implied {
			additional = append(additional, code)
		}
	}

	removed := make([]string, 0)
	for code := range roleSet {
		if _, kept := desired[code]; !kept {
			removed = append(removed, code)
		}
	}
	if len(removed) > 0 {
		// No storage representation exists for revoking a role default
		log.Printf("permission update for user %s ignores removal of role-default permissions: %v", userID, removed)
	}

	previous, err := s.permRepo.ListGrants(ctx, userID)
	if err != nil {
		return nil, err
	}
	previousCodes := make([]string, 0, len(previous))
	for _, g := range previous {
		previousCodes = append(previousCodes, g.Permission.Code)
	}

	grantedBy, _ := authUserOrNil(ctx)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.permRepo.DeleteGrantsByUser(txCtx, userID); err != nil {
			return err
		}

		perms, err := s.permRepo.FindByCodes(txCtx, additional)
		if err != nil {
			return err
		}
		if len(perms) == 0 {
			return nil
		}

		grants := make([]model.UserPermission, 0, len(perms))
		for _, p := range perms {
			grants = append(grants, model.UserPermission{
				UserID:       userID,
				PermissionID: p.ID,
				GrantedBy:    grantedBy,
			})
		}
		return s.permRepo.CreateGrants(txCtx, grants)
	})
	if err != nil {
		return nil, err
	}

	if s.invalidate != nil {
		s.invalidate(userID)
	}

	s.activity.Record(ctx, model.ActionUpdatePermissions, "user", userID.String(), user.Username, map[string]any{
		"previous_grants": previousCodes,
		"granted":         additional,
	})

	return s.GetUserPermissions(ctx, userID)
}

func (s *permissionService) ListCatalog(ctx context.Context) ([]PermissionResponse, error) {
	perms, err := s.permRepo.ListCatalog(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		res = append(res, PermissionResponse{
			ID:          p.ID.String(),
			Code:        p.Code,
			Name:        p.Name,
			Description: p.Description,
			Category:    p.Category,
		})
	}
	return res, nil
}

// Seed inserts the permission catalog only when the table is empty. A
// nonzero row count skips seeding entirely, so re-running it is a no-op.
func (s *permissionService) Seed(ctx context.Context) error {
	total, err := s.permRepo.CountCatalog(ctx)
	if err != nil {
		return err
	}
	if total > 0 {
		return nil
	}

	catalog := make([]model.Permission, len(defaultCatalog))
	copy(catalog, defaultCatalog)
	if err := s.permRepo.CreateCatalog(ctx, catalog); err != nil {
		return fmt.Errorf("failed to seed permission catalog: %w", err)
	}
	log.Printf("Seeded permission catalog with %d entries", len(catalog))
	return nil
}
