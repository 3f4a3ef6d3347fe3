package service

import (
	"context"
	"errors"
	"testing"

	"backend/internal/model"
	"backend/pkg/apperror"

	"github.com/google/uuid"
)

func seedUser(repo *mockUserRepo, role string) *model.User {
	u := &model.User{ID: uuid.New(), Username: "u-" + role, Email: role + "@example.com", Role: role, IsActive: true}
	repo.put(u)
	return u
}

func newPermFixture(t *testing.T) (*mockUserRepo, *mockPermRepo, PermissionService, *[]uuid.UUID) {
	t.Helper()
	userRepo := newMockUserRepo()
	permRepo := newMockPermRepo(append([]model.Permission(nil), defaultCatalog...))

	var invalidated []uuid.UUID
	svc := NewPermissionService(userRepo, permRepo, passthroughTx{}, &stubActivity{}, func(id uuid.UUID) {
		invalidated = append(invalidated, id)
	})
	return userRepo, permRepo, svc, &invalidated
}

func hasCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

func TestGetUserPermissionsUnion(t *testing.T) {
	userRepo, permRepo, svc, _ := newPermFixture(t)
	user := seedUser(userRepo, model.RoleUser)

	// Grant one permission the role does not imply
	perms, _ := permRepo.FindByCodes(context.Background(), []string{model.PermCustomersEdit})
	_ = permRepo.CreateGrants(context.Background(), []model.UserPermission{
		{UserID: user.ID, PermissionID: perms[0].ID},
	})

	res, err := svc.GetUserPermissions(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUserPermissions failed: %v", err)
	}

	if !hasCode(res.Effective, model.PermCustomersView) {
		t.Error("role default missing from effective set")
	}
	if !hasCode(res.Effective, model.PermCustomersEdit) {
		t.Error("explicit grant missing from effective set")
	}
	if hasCode(res.RolePermissions, model.PermCustomersEdit) {
		t.Error("explicit grant leaked into role permissions")
	}
	if !hasCode(res.ExplicitGrants, model.PermCustomersEdit) {
		t.Error("explicit grant missing from grants list")
	}
}

func TestGetUserPermissionsUnknownUser(t *testing.T) {
	_, _, svc, _ := newPermFixture(t)

	_, err := svc.GetUserPermissions(context.Background(), uuid.New())
	if !apperror.IsCode(err, apperror.CodeNotFound) {
		t.Errorf("expected not_found for unknown user, got %v", err)
	}
}

func TestHasPermission(t *testing.T) {
	userRepo, permRepo, svc, _ := newPermFixture(t)
	user := seedUser(userRepo, model.RoleUser)

	cases := []struct {
		name string
		code string
		want bool
	}{
		{"role default", model.PermCustomersView, true},
		{"not granted", model.PermUsersDelete, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.HasPermission(context.Background(), user.ID, tc.code)
			if err != nil {
				t.Fatalf("HasPermission failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("HasPermission(%s) = %v, want %v", tc.code, got, tc.want)
			}
		})
	}

	// After an explicit grant the same query flips
	perms, _ := permRepo.FindByCodes(context.Background(), []string{model.PermUsersDelete})
	_ = permRepo.CreateGrants(context.Background(), []model.UserPermission{
		{UserID: user.ID, PermissionID: perms[0].ID},
	})
	got, err := svc.HasPermission(context.Background(), user.ID, model.PermUsersDelete)
	if err != nil || !got {
		t.Errorf("granted permission should hold, got (%v, %v)", got, err)
	}
}

func TestRoleCaseNormalization(t *testing.T) {
	userRepo, _, svc, _ := newPermFixture(t)
	user := seedUser(userRepo, "  Admin ")

	got, err := svc.HasPermission(context.Background(), user.ID, model.PermPermissionsManage)
	if err != nil {
		t.Fatalf("HasPermission failed: %v", err)
	}
	if !got {
		t.Error("role matching must ignore case and surrounding whitespace")
	}
}

func TestUpdateUserPermissionsStoresOnlyAdditional(t *testing.T) {
	userRepo, permRepo, svc, invalidated := newPermFixture(t)
	user := seedUser(userRepo, model.RoleUser)

	// Desired set = one role default + one extra
	res, err := svc.UpdateUserPermissions(context.Background(), user.ID, UpdateUserPermissionsRequest{
		Codes: []string{model.PermCustomersView, model.PermCustomersEdit},
	})
	if err != nil {
		t.Fatalf("UpdateUserPermissions failed: %v", err)
	}

	grants, _ := permRepo.ListGrantCodes(context.Background(), user.ID)
	if len(grants) != 1 || grants[0] != model.PermCustomersEdit {
		t.Errorf("stored grants = %v, want only the non-default code", grants)
	}
	if !hasCode(res.Effective, model.PermCustomersView) || !hasCode(res.Effective, model.PermCustomersEdit) {
		t.Errorf("effective = %v", res.Effective)
	}
	if len(*invalidated) != 1 || (*invalidated)[0] != user.ID {
		t.Errorf("cache invalidation = %v, want [%s]", *invalidated, user.ID)
	}
}

func TestUpdateUserPermissionsCannotRevokeRoleDefaults(t *testing.T) {
	userRepo, _, svc, _ := newPermFixture(t)
	user := seedUser(userRepo, model.RoleUser)

	// Omit every role default: the update stores nothing, and the defaults
	// survive because there is no negative grant.
	res, err := svc.UpdateUserPermissions(context.Background(), user.ID, UpdateUserPermissionsRequest{Codes: []string{}})
	if err != nil {
		t.Fatalf("UpdateUserPermissions failed: %v", err)
	}

	for _, code := range RoleDefaultCodes(model.RoleUser) {
		if !hasCode(res.Effective, code) {
			t.Errorf("role default %s lost after update", code)
		}
	}
	if len(res.ExplicitGrants) != 0 {
		t.Errorf("explicit grants = %v, want none", res.ExplicitGrants)
	}
}

func TestUpdateUserPermissionsReplacesGrants(t *testing.T) {
	userRepo, permRepo, svc, _ := newPermFixture(t)
	user := seedUser(userRepo, model.RoleUser)

	for _, codes := range [][]string{
		{model.PermCustomersEdit},
		{model.PermUsersView},
	} {
		if _, err := svc.UpdateUserPermissions(context.Background(), user.ID, UpdateUserPermissionsRequest{Codes: codes}); err != nil {
			t.Fatalf("UpdateUserPermissions(%v) failed: %v", codes, err)
		}
	}

	grants, _ := permRepo.ListGrantCodes(context.Background(), user.ID)
	if len(grants) != 1 || grants[0] != model.PermUsersView {
		t.Errorf("grants = %v, want the second set only", grants)
	}
}

func TestUpdateUserPermissionsIgnoresUnknownCodes(t *testing.T) {
	userRepo, permRepo, svc, _ := newPermFixture(t)
	user := seedUser(userRepo, model.RoleUser)

	if _, err := svc.UpdateUserPermissions(context.Background(), user.ID, UpdateUserPermissionsRequest{
		Codes: []string{"NOT_A_REAL_CODE"},
	}); err != nil {
		t.Fatalf("UpdateUserPermissions failed: %v", err)
	}

	grants, _ := permRepo.ListGrantCodes(context.Background(), user.ID)
	if len(grants) != 0 {
		t.Errorf("unknown codes must not be stored, got %v", grants)
	}
}

func TestUpdateUserPermissionsRollsBackOnWriteFailure(t *testing.T) {
	userRepo := newMockUserRepo()
	permRepo := newMockPermRepo(append([]model.Permission(nil), defaultCatalog...))
	tx := &snapshotTx{perms: permRepo}
	svc := NewPermissionService(userRepo, permRepo, tx, &stubActivity{}, nil)
	user := seedUser(userRepo, model.RoleUser)

	// Establish one explicit grant
	if _, err := svc.UpdateUserPermissions(context.Background(), user.ID, UpdateUserPermissionsRequest{
		Codes: []string{model.PermCustomersEdit},
	}); err != nil {
		t.Fatalf("UpdateUserPermissions failed: %v", err)
	}

	// The next update deletes the old grants first, then fails on insert.
	// Atomicity means the delete must be undone with it.
	permRepo.createGrantsErr = errors.New("unique constraint violation")
	if _, err := svc.UpdateUserPermissions(context.Background(), user.ID, UpdateUserPermissionsRequest{
		Codes: []string{model.PermUsersView},
	}); err == nil {
		t.Fatal("failed grant write must surface an error")
	}

	grants, _ := permRepo.ListGrantCodes(context.Background(), user.ID)
	if len(grants) != 1 || grants[0] != model.PermCustomersEdit {
		t.Errorf("grants after failed update = %v, want the prior set intact", grants)
	}
	if tx.began != 2 {
		t.Errorf("transactions begun = %d, want 2", tx.began)
	}
}

func TestUpdateUserPermissionsRecordsActivity(t *testing.T) {
	userRepo := newMockUserRepo()
	permRepo := newMockPermRepo(append([]model.Permission(nil), defaultCatalog...))
	activity := &stubActivity{}
	svc := NewPermissionService(userRepo, permRepo, passthroughTx{}, activity, nil)
	user := seedUser(userRepo, model.RoleUser)

	if _, err := svc.UpdateUserPermissions(context.Background(), user.ID, UpdateUserPermissionsRequest{
		Codes: []string{model.PermCustomersEdit},
	}); err != nil {
		t.Fatalf("UpdateUserPermissions failed: %v", err)
	}

	if len(activity.entries) != 1 {
		t.Fatalf("activity entries = %d, want 1", len(activity.entries))
	}
	entry := activity.entries[0]
	if entry.Action != model.ActionUpdatePermissions {
		t.Errorf("Action = %s, want %s", entry.Action, model.ActionUpdatePermissions)
	}
	if entry.EntityType != "user" || entry.EntityID != user.ID.String() {
		t.Errorf("entity = %s/%s, want user/%s", entry.EntityType, entry.EntityID, user.ID)
	}
	granted, _ := entry.Details["granted"].([]string)
	if len(granted) != 1 || granted[0] != model.PermCustomersEdit {
		t.Errorf("granted = %v", entry.Details["granted"])
	}

	// A second update's entry carries the prior grants for the audit trail
	if _, err := svc.UpdateUserPermissions(context.Background(), user.ID, UpdateUserPermissionsRequest{
		Codes: []string{model.PermUsersView},
	}); err != nil {
		t.Fatalf("UpdateUserPermissions failed: %v", err)
	}
	previous, _ := activity.entries[1].Details["previous_grants"].([]string)
	if len(previous) != 1 || previous[0] != model.PermCustomersEdit {
		t.Errorf("previous_grants = %v", activity.entries[1].Details["previous_grants"])
	}
}

func TestSeedIdempotent(t *testing.T) {
	userRepo := newMockUserRepo()
	permRepo := newMockPermRepo(nil)
	svc := NewPermissionService(userRepo, permRepo, passthroughTx{}, &stubActivity{}, nil)

	if err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("first Seed failed: %v", err)
	}
	if permRepo.createdCatalogs != 1 {
		t.Fatalf("createdCatalogs = %d, want 1", permRepo.createdCatalogs)
	}
	if len(permRepo.catalog) != len(defaultCatalog) {
		t.Errorf("catalog size = %d, want %d", len(permRepo.catalog), len(defaultCatalog))
	}

	if err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("second Seed failed: %v", err)
	}
	if permRepo.createdCatalogs != 1 {
		t.Errorf("second Seed must be a no-op, createdCatalogs = %d", permRepo.createdCatalogs)
	}
}

func TestAdminHoldsEveryCatalogPermission(t *testing.T) {
	userRepo, _, svc, _ := newPermFixture(t)
	admin := seedUser(userRepo, model.RoleAdmin)

	res, err := svc.GetUserPermissions(context.Background(), admin.ID)
	if err != nil {
		t.Fatalf("GetUserPermissions failed: %v", err)
	}
	for _, p := range defaultCatalog {
		if !hasCode(res.Effective, p.Code) {
			t.Errorf("admin missing %s", p.Code)
		}
	}
}
