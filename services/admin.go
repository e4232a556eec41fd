package services

import (
	"os"
	"time"

	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/student-reader/reader_api/dto"
	"github.com/student-reader/reader_api/model"
	"github.com/student-reader/reader_api/shared"
)

// AdminService manages admin privilege grants. Grants are rows, not a user
// flag, so a revoked privilege keeps its audit trail and can be reactivated.
type AdminService struct {
	appContext.DefaultService

	sqlSvc *PostgresService
}

const ADMIN_SVC = "admin_svc"

func (svc AdminService) Id() string {
	return ADMIN_SVC
}

// NewAdminService wires the service outside the runtime container. Used by tests.
func NewAdminService(sqlSvc *PostgresService) *AdminService {
	return &AdminService{sqlSvc: sqlSvc}
}

func (svc *AdminService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *AdminService) Start() error {
	svc.sqlSvc = svc.Service(POSTGRES_SVC).(*PostgresService)

	return svc.setupInitialAdmin()
}

// setupInitialAdmin bootstraps the first admin from INITIAL_ADMIN_EMAIL when
// no privilege row exists yet. The user must already be registered.
func (svc *AdminService) setupInitialAdmin() error {
	email := os.Getenv("INITIAL_ADMIN_EMAIL")
	if email == "" {
		return nil
	}

	exists, err := svc.sqlSvc.AnyAdminExists()
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	user, err := svc.sqlSvc.GetUserByEmail(email)
	if err != nil {
		log.WithField("email", email).Warn("Initial admin email not registered, skipping bootstrap")
		return nil
	}

	_, err = svc.sqlSvc.CreateAdminPrivilege(&model.AdminPrivilege{
		UserID:      user.ID,
		GrantedByID: user.ID,
		GrantReason: "Initial admin setup",
		GrantedAt:   time.Now(),
		IsActive:    true,
	})
	if err != nil {
		return err
	}

	log.WithField("email", email).Info("Initial admin privilege granted")
	return nil
}

// IsAdmin reports whether the user holds an active privilege.
func (svc *AdminService) IsAdmin(userID string) (bool, error) {
	_, err := svc.sqlSvc.GetActiveAdminPrivilege(userID)
	if err != nil {
		if svc.sqlSvc.IsNotFound(err) {
			return false, nil
		}
		return false, svc.sqlSvc.HandleError(err)
	}
	return true, nil
}

// ListUsers returns every registered user with their admin flag resolved.
func (svc *AdminService) ListUsers() ([]dto.UserResponse, error) {
	users, adminIDs, err := svc.sqlSvc.GetUsersWithAdminStatus()
	if err != nil {
		return nil, err
	}

	out := make([]dto.UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, dto.UserResponse{
			ID:        user.ID,
			Username:  user.Username,
			Email:     user.Email,
			FullName:  user.FullName,
			IsTeacher: user.IsTeacher,
			IsAdmin:   adminIDs[user.ID],
		})
	}
	return out, nil
}

// GrantAdmin grants the privilege, reactivating a previously revoked row
// rather than creating a duplicate.
func (svc *AdminService) GrantAdmin(grantedByID string, req dto.PrivilegeRequest) (*dto.AdminDetailsResponse, error) {
	user, err := svc.sqlSvc.GetUser(req.UserID)
	if err != nil {
		return nil, err
	}

	privilege, err := svc.sqlSvc.GetAdminPrivilege(user.ID)
	if err != nil {
		if !svc.sqlSvc.IsNotFound(err) {
			return nil, svc.sqlSvc.HandleError(err)
		}
		privilege, err = svc.sqlSvc.CreateAdminPrivilege(&model.AdminPrivilege{
			UserID:      user.ID,
			GrantedByID: grantedByID,
			GrantReason: req.Reason,
			GrantedAt:   time.Now(),
			IsActive:    true,
		})
		if err != nil {
			return nil, err
		}
		return svc.adminDetails(privilege), nil
	}

	if privilege.IsActive {
		return nil, shared.NewConflictError(nil, "User is already an admin")
	}

	privilege.IsActive = true
	privilege.GrantedByID = grantedByID
	privilege.GrantReason = req.Reason
	privilege.GrantedAt = time.Now()
	if err := svc.sqlSvc.UpdateAdminPrivilege(privilege); err != nil {
		return nil, err
	}
	return svc.adminDetails(privilege), nil
}

// RevokeAdmin deactivates the privilege. Admins cannot revoke themselves.
func (svc *AdminService) RevokeAdmin(revokedByID string, req dto.RevokePrivilegeRequest) error {
	if req.UserID == revokedByID {
		return shared.NewBadRequestError(nil, "Admins cannot revoke their own privileges")
	}

	privilege, err := svc.sqlSvc.GetActiveAdminPrivilege(req.UserID)
	if err != nil {
		if svc.sqlSvc.IsNotFound(err) {
			return shared.NewNotFoundError(err, "User has no active admin privilege")
		}
		return svc.sqlSvc.HandleError(err)
	}

	privilege.IsActive = false
	return svc.sqlSvc.UpdateAdminPrivilege(privilege)
}

func (svc *AdminService) adminDetails(privilege *model.AdminPrivilege) *dto.AdminDetailsResponse {
	return &dto.AdminDetailsResponse{
		IsActive:  privilege.IsActive,
		GrantedAt: privilege.GrantedAt.Format(time.RFC3339),
		GrantedBy: privilege.GrantedByID,
		Reason:    privilege.GrantReason,
	}
}
