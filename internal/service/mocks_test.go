package service

import (
	"context"
	"sync"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/pagination"

	"github.com/google/uuid"
)

// memRepo is an in-memory Repository used across the service tests. Criteria
// are recorded, not evaluated; tests that need filtered results inject hooks.
type memRepo[T any] struct {
	mu    sync.Mutex
	items map[uuid.UUID]*T
	idOf  func(*T) uuid.UUID
	genID func(*T)

	createErr error
	saveErr   error

	lastCriteria repository.Criteria
	lastOpts     repository.ListOptions
	bulkIDs      []uuid.UUID
	bulkFields   map[string]any

	countFn   func(repository.Criteria) (int64, error)
	findOneFn func(repository.Criteria) (*T, error)
}

func newMemRepo[T any](idOf func(*T) uuid.UUID, genID func(*T)) *memRepo[T] {
	return &memRepo[T]{items: map[uuid.UUID]*T{}, idOf: idOf, genID: genID}
}

func (r *memRepo[T]) put(e *T) *T {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[r.idOf(e)] = e
	return e
}

func (r *memRepo[T]) FindByID(_ context.Context, id uuid.UUID) (*T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[id], nil
}

func (r *memRepo[T]) FindAll(_ context.Context, opts repository.ListOptions) (pagination.Result[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastOpts = opts

	all := make([]T, 0, len(r.items))
	for _, e := range r.items {
		all = append(all, *e)
	}
	page := opts.Page
	if page < 1 {
		page = pagination.DefaultPage
	}
	limit := opts.Limit
	if limit < 1 {
		limit = pagination.DefaultLimit
	}
	return pagination.NewResult(all, page, limit, int64(len(all))), nil
}

func (r *memRepo[T]) FindByCriteria(_ context.Context, criteria repository.Criteria) ([]T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastCriteria = criteria

	all := make([]T, 0, len(r.items))
	for _, e := range r.items {
		all = append(all, *e)
	}
	return all, nil
}

func (r *memRepo[T]) FindOneByCriteria(_ context.Context, criteria repository.Criteria) (*T, error) {
	r.mu.Lock()
	fn := r.findOneFn
	r.lastCriteria = criteria
	r.mu.Unlock()
	if fn != nil {
		return fn(criteria)
	}
	return nil, nil
}

func (r *memRepo[T]) Count(_ context.Context, criteria repository.Criteria) (int64, error) {
	r.mu.Lock()
	fn := r.countFn
	r.lastCriteria = criteria
	n := int64(len(r.items))
	r.mu.Unlock()
	if fn != nil {
		return fn(criteria)
	}
	return n, nil
}

func (r *memRepo[T]) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.items[id]
	return ok, nil
}

func (r *memRepo[T]) ExistsByCriteria(ctx context.Context, criteria repository.Criteria) (bool, error) {
	n, err := r.Count(ctx, criteria)
	return n > 0, err
}

func (r *memRepo[T]) Create(_ context.Context, entity *T) error {
	if r.createErr != nil {
		return r.createErr
	}
	if r.genID != nil && r.idOf(entity) == uuid.Nil {
		r.genID(entity)
	}
	r.put(entity)
	return nil
}

func (r *memRepo[T]) Save(_ context.Context, entity *T) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.put(entity)
	return nil
}

func (r *memRepo[T]) Update(ctx context.Context, id uuid.UUID, _ map[string]any) (*T, error) {
	return r.FindByID(ctx, id)
}

func (r *memRepo[T]) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return false, nil
	}
	delete(r.items, id)
	return true, nil
}

func (r *memRepo[T]) BulkUpdate(_ context.Context, ids []uuid.UUID, fields map[string]any) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bulkIDs = ids
	r.bulkFields = fields
	return int64(len(ids)), nil
}

// --- User repository mock ---

type mockUserRepo struct {
	*memRepo[model.User]
	refreshTokens map[string]*model.RefreshToken
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		memRepo: newMemRepo(
			func(u *model.User) uuid.UUID { return u.ID },
			func(u *model.User) { u.ID = uuid.New() },
		),
		refreshTokens: map[string]*model.RefreshToken{},
	}
}

func (r *mockUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.items {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *mockUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.items {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (r *mockUserRepo) CreateRefreshToken(_ context.Context, token *model.RefreshToken) error {
	r.refreshTokens[token.Token] = token
	return nil
}

func (r *mockUserRepo) FindRefreshToken(_ context.Context, token string) (*model.RefreshToken, error) {
	return r.refreshTokens[token], nil
}

func (r *mockUserRepo) DeleteRefreshToken(_ context.Context, token string) error {
	delete(r.refreshTokens, token)
	return nil
}

func (r *mockUserRepo) DeleteRefreshTokensByUser(_ context.Context, userID uuid.UUID) error {
	for token, rt := range r.refreshTokens {
		if rt.UserID == userID {
			delete(r.refreshTokens, token)
		}
	}
	return nil
}

func (r *mockUserRepo) DeleteExpiredRefreshTokens(_ context.Context) (int64, error) {
	return 0, nil
}

// --- Permission repository mock ---

type mockPermRepo struct {
	catalog []model.Permission
	grants  map[uuid.UUID][]model.UserPermission

	createdCatalogs int
	createGrantsErr error
}

func newMockPermRepo(catalog []model.Permission) *mockPermRepo {
	for i := range catalog {
		if catalog[i].ID == uuid.Nil {
			catalog[i].ID = uuid.New()
		}
	}
	return &mockPermRepo{catalog: catalog, grants: map[uuid.UUID][]model.UserPermission{}}
}

func (r *mockPermRepo) CountCatalog(context.Context) (int64, error) {
	return int64(len(r.catalog)), nil
}

func (r *mockPermRepo) CreateCatalog(_ context.Context, perms []model.Permission) error {
	r.createdCatalogs++
	for i := range perms {
		perms[i].ID = uuid.New()
	}
	r.catalog = append(r.catalog, perms...)
	return nil
}

func (r *mockPermRepo) ListCatalog(context.Context) ([]model.Permission, error) {
	return r.catalog, nil
}

func (r *mockPermRepo) FindByCodes(_ context.Context, codes []string) ([]model.Permission, error) {
	var out []model.Permission
	for _, code := range codes {
		for _, p := range r.catalog {
			if p.Code == code {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (r *mockPermRepo) codeOf(permissionID uuid.UUID) string {
	for _, p := range r.catalog {
		if p.ID == permissionID {
			return p.Code
		}
	}
	return ""
}

func (r *mockPermRepo) ListGrantCodes(_ context.Context, userID uuid.UUID) ([]string, error) {
	var codes []string
	for _, g := range r.grants[userID] {
		codes = append(codes, r.codeOf(g.PermissionID))
	}
	return codes, nil
}

func (r *mockPermRepo) HasGrant(_ context.Context, userID uuid.UUID, code string) (bool, error) {
	for _, g := range r.grants[userID] {
		if r.codeOf(g.PermissionID) == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *mockPermRepo) DeleteGrantsByUser(_ context.Context, userID uuid.UUID) error {
	delete(r.grants, userID)
	return nil
}

func (r *mockPermRepo) CreateGrants(_ context.Context, grants []model.UserPermission) error {
	if r.createGrantsErr != nil {
		return r.createGrantsErr
	}
	for _, g := range grants {
		r.grants[g.UserID] = append(r.grants[g.UserID], g)
	}
	return nil
}

// ListGrants resolves each grant's Permission from the catalog, mirroring the
// real repository's preload.
func (r *mockPermRepo) ListGrants(_ context.Context, userID uuid.UUID) ([]model.UserPermission, error) {
	out := make([]model.UserPermission, 0, len(r.grants[userID]))
	for _, g := range r.grants[userID] {
		for _, p := range r.catalog {
			if p.ID == g.PermissionID {
				g.Permission = p
				break
			}
		}
		out = append(out, g)
	}
	return out, nil
}

// --- Misc stubs ---

// passthroughTx runs the callback on the same context, no transaction involved
type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

// snapshotTx copies the grant table before the callback and restores it when
// the callback fails, so a failed transaction leaves no partial writes behind.
type snapshotTx struct {
	perms *mockPermRepo
	began int
}

func (t *snapshotTx) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	t.began++
	saved := make(map[uuid.UUID][]model.UserPermission, len(t.perms.grants))
	for userID, grants := range t.perms.grants {
		saved[userID] = append([]model.UserPermission(nil), grants...)
	}
	if err := fn(ctx); err != nil {
		t.perms.grants = saved
		return err
	}
	return nil
}

type recordedActivity struct {
	Action     string
	EntityType string
	EntityID   string
	EntityName string
	Details    map[string]any
}

// stubActivity records entries instead of persisting them
type stubActivity struct {
	entries []recordedActivity
}

func (s *stubActivity) Record(_ context.Context, action, entityType, entityID, entityName string, details map[string]any) {
	s.entries = append(s.entries, recordedActivity{action, entityType, entityID, entityName, details})
}

func (s *stubActivity) List(context.Context, pagination.Params, ActivityFilter) (pagination.Result[ActivityLogResponse], error) {
	return pagination.Result[ActivityLogResponse]{}, nil
}

type sentNotification struct {
	UserID  uuid.UUID
	Type    string
	Title   string
	Message string
}

// stubNotifications records Notify calls
type stubNotifications struct {
	sent []sentNotification
}

func (s *stubNotifications) Notify(_ context.Context, userID uuid.UUID, notifType, title, message string) {
	s.sent = append(s.sent, sentNotification{userID, notifType, title, message})
}

func (s *stubNotifications) ListForUser(context.Context, uuid.UUID, pagination.Params, bool) (pagination.Result[NotificationResponse], error) {
	return pagination.Result[NotificationResponse]{}, nil
}

func (s *stubNotifications) UnreadCount(context.Context, uuid.UUID) (int64, error) {
	return 0, nil
}

func (s *stubNotifications) MarkRead(context.Context, uuid.UUID, uuid.UUID) (NotificationResponse, error) {
	return NotificationResponse{}, nil
}

func (s *stubNotifications) MarkAllRead(context.Context, uuid.UUID) (int64, error) {
	return 0, nil
}
