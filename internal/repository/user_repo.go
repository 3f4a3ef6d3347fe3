package repository

import (
	"context"
	"errors"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository defines the interface for data access of User entities,
// including refresh-token bookkeeping.
type UserRepository interface {
	Repository[model.User]
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, token string) error
	DeleteRefreshTokensByUser(ctx context.Context, userID uuid.UUID) error
	DeleteExpiredRefreshTokens(ctx context.Context) (int64, error)
}

type userRepository struct {
	*GormRepository[model.User]
	db *gorm.DB
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{
		GormRepository: NewGormRepository[model.User](db, Config{
			Table:        "users",
			SearchFields: []string{"username", "email", "phone"},
			SortFields: map[string]string{
				"username":  "username",
				"email":     "email",
				"role":      "role",
				"createdAt": "created_at",
			},
			DefaultSort: "created_at DESC",
		}),
		db: db,
	}
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.FindOneByCriteria(ctx, Criteria{"email": email})
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.FindOneByCriteria(ctx, Criteria{"username": username})
}

func (r *userRepository) CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	if err := GetDB(ctx, r.db).Create(token).Error; err != nil {
		return wrapDB("createRefreshToken", "refresh_tokens", err)
	}
	return nil
}

func (r *userRepository) FindRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	var rt model.RefreshToken
	if err := GetDB(ctx, r.db).First(&rt, "token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, wrapDB("findRefreshToken", "refresh_tokens", err)
	}
	return &rt, nil
}

func (r *userRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	if err := GetDB(ctx, r.db).Where("token = ?", token).Delete(&model.RefreshToken{}).Error; err != nil {
		return wrapDB("deleteRefreshToken", "refresh_tokens", err)
	}
	return nil
}

func (r *userRepository) DeleteRefreshTokensByUser(ctx context.Context, userID uuid.UUID) error {
	if err := GetDB(ctx, r.db).Where("user_id = ?", userID).Delete(&model.RefreshToken{}).Error; err != nil {
		return wrapDB("deleteRefreshTokensByUser", "refresh_tokens", err)
	}
	return nil
}

func (r *userRepository) DeleteExpiredRefreshTokens(ctx context.Context) (int64, error) {
	result := GetDB(ctx, r.db).Where("expires_at < ?", time.Now()).Delete(&model.RefreshToken{})
	if result.Error != nil {
		return 0, wrapDB("deleteExpiredRefreshTokens", "refresh_tokens", result.Error)
	}
	return result.RowsAffected, nil
}
