package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PermissionRepository provides access to the permission catalog and the
// per-user explicit grants.
type PermissionRepository interface {
	CountCatalog(ctx context.Context) (int64, error)
	CreateCatalog(ctx context.Context, perms []model.Permission) error
	ListCatalog(ctx context.Context) ([]model.Permission, error)
	FindByCodes(ctx context.Context, codes []string) ([]model.Permission, error)
	ListGrantCodes(ctx context.Context, userID uuid.UUID) ([]string, error)
	HasGrant(ctx context.Context, userID uuid.UUID, code string) (bool, error)
	DeleteGrantsByUser(ctx context.Context, userID uuid.UUID) error
	CreateGrants(ctx context.Context, grants []model.UserPermission) error
	ListGrants(ctx context.Context, userID uuid.UUID) ([]model.UserPermission, error)
}

type permissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

func (r *permissionRepository) CountCatalog(ctx context.Context) (int64, error) {
	var total int64
	if err := GetDB(ctx, r.db).Model(&model.Permission{}).Count(&total).Error; err != nil {
		return 0, wrapDB("countCatalog", "permissions", err)
	}
	return total, nil
}

func (r *permissionRepository) CreateCatalog(ctx context.Context, perms []model.Permission) error {
	if len(perms) == 0 {
		return nil
	}
	if err := GetDB(ctx, r.db).Create(&perms).Error; err != nil {
		return wrapDB("createCatalog", "permissions", err)
	}
	return nil
}

func (r *permissionRepository) ListCatalog(ctx context.Context) ([]model.Permission, error) {
	var perms []model.Permission
	if err := GetDB(ctx, r.db).Order("category ASC, code ASC").Find(&perms).Error; err != nil {
		return nil, wrapDB("listCatalog", "permissions", err)
	}
	return perms, nil
}

func (r *permissionRepository) FindByCodes(ctx context.Context, codes []string) ([]model.Permission, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	var perms []model.Permission
	if err := GetDB(ctx, r.db).Where("code IN ?", codes).Find(&perms).Error; err != nil {
		return nil, wrapDB("findByCodes", "permissions", err)
	}
	return perms, nil
}

// ListGrantCodes returns the permission codes explicitly granted to a user
func (r *permissionRepository) ListGrantCodes(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var codes []string
	err := GetDB(ctx, r.db).Raw(`
		SELECT p.code FROM permissions p
		INNER JOIN user_permissions up ON up.permission_id = p.id
		WHERE up.user_id = ?
	`, userID).Scan(&codes).Error
	if err != nil {
		return nil, wrapDB("listGrantCodes", "user_permissions", err)
	}
	return codes, nil
}

func (r *permissionRepository) HasGrant(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	var total int64
	err := GetDB(ctx, r.db).
		Model(&model.UserPermission{}).
		Joins("INNER JOIN permissions p ON p.id = user_permissions.permission_id").
		Where("user_permissions.user_id = ? AND p.code = ?", userID, code).
		Count(&total).Error
	if err != nil {
		return false, wrapDB("hasGrant", "user_permissions", err)
	}
	return total > 0, nil
}

func (r *permissionRepository) DeleteGrantsByUser(ctx context.Context, userID uuid.UUID) error {
	if err := GetDB(ctx, r.db).Where("user_id = ?", userID).Delete(&model.UserPermission{}).Error; err != nil {
		return wrapDB("deleteGrantsByUser", "user_permissions", err)
	}
	return nil
}

func (r *permissionRepository) CreateGrants(ctx context.Context, grants []model.UserPermission) error {
	if len(grants) == 0 {
		return nil
	}
	if err := GetDB(ctx, r.db).Create(&grants).Error; err != nil {
		return wrapDB("createGrants", "user_permissions", err)
	}
	return nil
}

func (r *permissionRepository) ListGrants(ctx context.Context, userID uuid.UUID) ([]model.UserPermission, error) {
	var grants []model.UserPermission
	err := GetDB(ctx, r.db).
		Preload("Permission").
		Where("user_id = ?", userID).
		Order("granted_at ASC").
		Find(&grants).Error
	if err != nil {
		return nil, wrapDB("listGrants", "user_permissions", err)
	}
	return grants, nil
}
