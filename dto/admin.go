package dto

type PrivilegeRequest struct {
	UserID string `json:"user_id" validate:"required" example:"0190c3a2-..."`
	Reason string `json:"reason" validate:"required,min=3,max=255" example:"Promoted to moderator"`
}

func (r PrivilegeRequest) Validate() error {
	return GetValidator().Struct(r)
}

type RevokePrivilegeRequest struct {
	UserID string `json:"user_id" validate:"required" example:"0190c3a2-..."`
}

func (r RevokePrivilegeRequest) Validate() error {
	return GetValidator().Struct(r)
}

type AdminDetailsResponse struct {
	IsActive  bool   `json:"is_active"`
	GrantedAt string `json:"granted_at"`
	GrantedBy string `json:"granted_by"`
	Reason    string `json:"reason"`
}
