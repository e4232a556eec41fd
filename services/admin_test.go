package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/student-reader/reader_api/dto"
	"github.com/student-reader/reader_api/model"
	"github.com/student-reader/reader_api/shared"
)

func newAdminFixture(t *testing.T) (*AdminService, *PostgresService, *model.User, *model.User) {
	t.Helper()

	sqlSvc := NewPostgresServiceFromDB(newTestDB(t))
	adminSvc := NewAdminService(sqlSvc)

	root, err := sqlSvc.CreateUser(&model.User{
		Username: "root", Email: "root@example.com", FullName: "Root Admin", HashedPassword: "x",
	})
	require.NoError(t, err)
	_, err = sqlSvc.CreateAdminPrivilege(&model.AdminPrivilege{
		UserID: root.ID, GrantedByID: root.ID, GrantReason: "bootstrap", IsActive: true,
	})
	require.NoError(t, err)

	user, err := sqlSvc.CreateUser(&model.User{
		Username: "someone", Email: "someone@example.com", FullName: "Some One", HashedPassword: "x",
	})
	require.NoError(t, err)

	return adminSvc, sqlSvc, root, user
}

func TestGrantAdmin(t *testing.T) {
	adminSvc, _, root, user := newAdminFixture(t)

	details, err := adminSvc.GrantAdmin(root.ID, dto.PrivilegeRequest{UserID: user.ID, Reason: "promoted"})
	require.NoError(t, err)
	assert.True(t, details.IsActive)
	assert.Equal(t, root.ID, details.GrantedBy)

	isAdmin, err := adminSvc.IsAdmin(user.ID)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	// A second grant conflicts.
	_, err = adminSvc.GrantAdmin(root.ID, dto.PrivilegeRequest{UserID: user.ID, Reason: "again"})
	require.Error(t, err)
	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, 409, appErr.StatusCode)
}

func TestGrantAdmin_ReactivatesRevokedRow(t *testing.T) {
	adminSvc, sqlSvc, root, user := newAdminFixture(t)

	_, err := adminSvc.GrantAdmin(root.ID, dto.PrivilegeRequest{UserID: user.ID, Reason: "promoted"})
	require.NoError(t, err)
	require.NoError(t, adminSvc.RevokeAdmin(root.ID, dto.RevokePrivilegeRequest{UserID: user.ID}))

	_, err = adminSvc.GrantAdmin(root.ID, dto.PrivilegeRequest{UserID: user.ID, Reason: "back again"})
	require.NoError(t, err)

	var count int64
	require.NoError(t, sqlSvc.Db().Model(&model.AdminPrivilege{}).
		Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	privilege, err := sqlSvc.GetActiveAdminPrivilege(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "back again", privilege.GrantReason)
}

func TestRevokeAdmin(t *testing.T) {
	adminSvc, _, root, user := newAdminFixture(t)

	// No active privilege to revoke.
	err := adminSvc.RevokeAdmin(root.ID, dto.RevokePrivilegeRequest{UserID: user.ID})
	require.Error(t, err)
	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.StatusCode)

	// Self-revocation is refused.
	err = adminSvc.RevokeAdmin(root.ID, dto.RevokePrivilegeRequest{UserID: root.ID})
	require.Error(t, err)
	appErr, ok = shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.StatusCode)

	_, err = adminSvc.GrantAdmin(root.ID, dto.PrivilegeRequest{UserID: user.ID, Reason: "promoted"})
	require.NoError(t, err)
	require.NoError(t, adminSvc.RevokeAdmin(root.ID, dto.RevokePrivilegeRequest{UserID: user.ID}))

	isAdmin, err := adminSvc.IsAdmin(user.ID)
	require.NoError(t, err)
	assert.False(t, isAdmin)
}

func TestListUsers(t *testing.T) {
	adminSvc, _, root, user := newAdminFixture(t)

	users, err := adminSvc.ListUsers()
	require.NoError(t, err)
	require.Len(t, users, 2)

	byID := map[string]dto.UserResponse{}
	for _, u := range users {
		byID[u.ID] = u
	}
	assert.True(t, byID[root.ID].IsAdmin)
	assert.False(t, byID[user.ID].IsAdmin)
}
