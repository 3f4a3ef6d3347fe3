package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/mail"
	"time"

	"backend/internal/config"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"
	"backend/pkg/pagination"
	"backend/pkg/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// --- DTOs ---

type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required"`
}

type UpdateUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type LoginResponse struct {
	User   UserResponse `json:"user"`
	Tokens TokenPair    `json:"tokens"`
}

// UserResponse carries everything about a user except the password hash
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MeResponse is the authenticated user plus their resolved permissions
type MeResponse struct {
	User        UserResponse `json:"user"`
	Permissions []string     `json:"permissions"`
}

// UserListFilter narrows user listings
type UserListFilter struct {
	Role     string
	IsActive *bool
}

// --- Interface ---

type UserService interface {
	Create(ctx context.Context, req CreateUserRequest) (UserResponse, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (UserResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (UserResponse, error)
	List(ctx context.Context, params pagination.Params, filter UserListFilter) (pagination.Result[UserResponse], error)

	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID uuid.UUID) (*MeResponse, error)

	EnsureBootstrapAdmin(ctx context.Context) error
}

// --- Implementation ---

type userService struct {
	crud        *CrudService[model.User, CreateUserRequest, UpdateUserRequest, UserResponse]
	repo        repository.UserRepository
	permissions PermissionService
	activity    ActivityService
	cfg         *config.Config
	invalidate  func(userID uuid.UUID) // permission-cache invalidation, may be nil
}

func NewUserService(
	repo repository.UserRepository,
	permissions PermissionService,
	activity ActivityService,
	cfg *config.Config,
	invalidate func(userID uuid.UUID),
) UserService {
	s := &userService{
		repo:        repo,
		permissions: permissions,
		activity:    activity,
		cfg:         cfg,
		invalidate:  invalidate,
	}
	s.crud = NewCrudService(
		"user",
		repo,
		userValidator{repo: repo},
		s.buildUser,
		s.applyUser,
		toUserResponse,
		Hooks[model.User]{},
	)
	return s
}

// --- Validation ---

type userValidator struct {
	repo repository.UserRepository
}

func (v userValidator) ValidateCreate(ctx context.Context, req CreateUserRequest) (validation.Result, error) {
	var b validation.Builder
	b.Required("username", req.Username)
	b.Required("email", req.Email)
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			b.Add("email", "invalid email format", "format")
		}
	}
	if len(req.Password) < 6 {
		b.Add("password", "password must be at least 6 characters", "length")
	}
	if !IsKnownRole(req.Role) {
		b.Add("role", "role must be admin, manager or user", "format")
	}

	if req.Username != "" {
		existing, err := v.repo.FindByUsername(ctx, req.Username)
		if err != nil {
			return validation.Result{}, err
		}
		if existing != nil {
			b.Add("username", "username already exists", "unique")
		}
	}
	if req.Email != "" {
		existing, err := v.repo.FindByEmail(ctx, req.Email)
		if err != nil {
			return validation.Result{}, err
		}
		if existing != nil {
			b.Add("email", "email already exists", "unique")
		}
	}

	return b.Result(), nil
}

func (v userValidator) ValidateUpdate(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (validation.Result, error) {
	var b validation.Builder
	if req.Username != nil && *req.Username == "" {
		b.Add("username", "username cannot be empty", "required")
	}
	if req.Email != nil && *req.Email != "" {
		if _, err := mail.ParseAddress(*req.Email); err != nil {
			b.Add("email", "invalid email format", "format")
		}
	}
	if req.Role != nil && !IsKnownRole(*req.Role) {
		b.Add("role", "role must be admin, manager or user", "format")
	}

	// Uniqueness probes exclude the row being updated
	if req.Username != nil && *req.Username != "" {
		existing, err := v.repo.FindByUsername(ctx, *req.Username)
		if err != nil {
			return validation.Result{}, err
		}
		if existing != nil && existing.ID != id {
			b.Add("username", "username already exists", "unique")
		}
	}
	if req.Email != nil && *req.Email != "" {
		existing, err := v.repo.FindByEmail(ctx, *req.Email)
		if err != nil {
			return validation.Result{}, err
		}
		if existing != nil && existing.ID != id {
			b.Add("email", "email already exists", "unique")
		}
	}

	return b.Result(), nil
}

// --- Pipeline pieces ---

func (s *userService) buildUser(_ context.Context, req CreateUserRequest) (*model.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.New("failed to hash password", err)
	}
	return &model.User{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: string(hashed),
		Role:     normalizeRole(req.Role),
		IsActive: true,
	}, nil
}

func (s *userService) applyUser(_ context.Context, user *model.User, req UpdateUserRequest) error {
	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Role != nil {
		user.Role = normalizeRole(*req.Role)
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	return nil
}

// --- CRUD operations ---

func (s *userService) Create(ctx context.Context, req CreateUserRequest) (UserResponse, error) {
	res, err := s.crud.Create(ctx, req)
	if err != nil {
		return UserResponse{}, err
	}
	s.activity.Record(ctx, model.ActionCreateUser, "user", res.ID.String(), res.Username, nil)
	return res, nil
}

func (s *userService) Update(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (UserResponse, error) {
	res, err := s.crud.Update(ctx, id, req)
	if err != nil {
		return UserResponse{}, err
	}

	// A role change shifts the default permission set, so cached resolutions
	// for this user are stale.
	if req.Role != nil && s.invalidate != nil {
		s.invalidate(id)
	}

	s.activity.Record(ctx, model.ActionUpdateUser, "user", res.ID.String(), res.Username, nil)
	return res, nil
}

func (s *userService) Delete(ctx context.Context, id uuid.UUID) error {
	if actor, ok := authUserOrNil(ctx); ok && *actor == id {
		return apperror.NewParameter("you cannot delete your own account")
	}

	if err := s.crud.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteRefreshTokensByUser(ctx, id); err != nil {
		log.Printf("refresh token cleanup failed for deleted user %s: %v", id, err)
	}
	if s.invalidate != nil {
		s.invalidate(id)
	}

	s.activity.Record(ctx, model.ActionDeleteUser, "user", id.String(), "", nil)
	return nil
}

func (s *userService) Get(ctx context.Context, id uuid.UUID) (UserResponse, error) {
	return s.crud.GetOrFail(ctx, id)
}

func (s *userService) List(ctx context.Context, params pagination.Params, filter UserListFilter) (pagination.Result[UserResponse], error) {
	criteria := repository.Criteria{}
	if filter.Role != "" {
		criteria["role"] = normalizeRole(filter.Role)
	}
	if filter.IsActive != nil {
		criteria["is_active"] = *filter.IsActive
	}

	return s.crud.Search(ctx, params.Search, repository.ListOptions{
		Page:     params.Page,
		Limit:    params.Limit,
		SortBy:   params.SortBy,
		SortDir:  params.SortDir,
		Criteria: criteria,
	})
}

// --- Auth operations ---

// Login verifies credentials and issues an access/refresh token pair. Wrong
// email and wrong password are deliberately indistinguishable to the caller.
func (s *userService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, apperror.NewUnauthorized("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperror.NewUnauthorized("invalid email or password")
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{User: toUserResponse(user), Tokens: *pair}, nil
}

// Refresh rotates the refresh token: the presented token is consumed and a
// fresh pair is issued. An expired or unknown token yields a 401.
func (s *userService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	stored, err := s.repo.FindRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if stored == nil || time.Now().After(stored.ExpiresAt) {
		return nil, apperror.NewUnauthorized("invalid or expired refresh token")
	}

	user, err := s.repo.FindByID(ctx, stored.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, apperror.NewUnauthorized("invalid or expired refresh token")
	}

	if err := s.repo.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

// Logout drops the refresh token; the access token simply ages out
func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.repo.DeleteRefreshToken(ctx, refreshToken)
}

func (s *userService) Me(ctx context.Context, userID uuid.UUID) (*MeResponse, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NewNotFound("user", userID)
	}

	perms, err := s.permissions.GetUserPermissions(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &MeResponse{
		User:        toUserResponse(user),
		Permissions: perms.Effective,
	}, nil
}

// issueTokens signs an access JWT and persists an opaque refresh token
func (s *userService) issueTokens(ctx context.Context, user *model.User) (*TokenPair, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"iss":  s.cfg.JWTIssuer,
		"aud":  s.cfg.JWTAudience,
		"iat":  now.Unix(),
		"exp":  now.Add(s.cfg.AccessTokenTTL).Unix(),
	}

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, apperror.New("failed to sign access token", err)
	}

	refresh, err := randomToken()
	if err != nil {
		return nil, apperror.New("failed to generate refresh token", err)
	}

	if err := s.repo.CreateRefreshToken(ctx, &model.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
	}); err != nil {
		return nil, err
	}

	// Opportunistic cleanup keeps the table from accumulating dead rows
	if removed, err := s.repo.DeleteExpiredRefreshTokens(ctx); err == nil && removed > 0 {
		log.Printf("removed %d expired refresh tokens", removed)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// EnsureBootstrapAdmin creates the configured admin account when no admin
// exists yet, so a fresh database is never locked out.
func (s *userService) EnsureBootstrapAdmin(ctx context.Context) error {
	count, err := s.repo.Count(ctx, repository.Criteria{"role": model.RoleAdmin})
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(s.cfg.BootstrapAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperror.New("failed to hash bootstrap admin password", err)
	}

	admin := &model.User{
		Username: "admin",
		Email:    s.cfg.BootstrapAdminEmail,
		Password: string(hashed),
		Role:     model.RoleAdmin,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, admin); err != nil {
		return err
	}

	log.Printf("Bootstrapped admin account %s", admin.Email)
	return nil
}

// --- Response mappers ---

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
