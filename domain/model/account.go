package model

import "time"

// PlatformAccount is a previously-authorized social account linked to a
// workspace. Tokens are written by the OAuth linking flow (separate surface);
// the scheduler only reads them when publishing.
type PlatformAccount struct {
	ID           int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	WorkspaceID  int64      `json:"workspace_id" gorm:"not null;index:idx_accounts_workspace_platform"`
	Platform     string     `json:"platform" gorm:"type:varchar(20);not null;index:idx_accounts_workspace_platform"`
	ExternalID   string     `json:"external_id" gorm:"type:varchar(100);not null"`
	DisplayName  string     `json:"display_name" gorm:"type:varchar(200)"`
	AccessToken  string     `json:"-" gorm:"type:text"`
	RefreshToken string     `json:"-" gorm:"type:text"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Active       bool       `json:"active" gorm:"default:true;index"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName .
func (PlatformAccount) TableName() string {
	return "platform_accounts"
}

// WorkspaceMember links a user to a workspace.
type WorkspaceMember struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	WorkspaceID int64     `json:"workspace_id" gorm:"not null;uniqueIndex:idx_members_workspace_user"`
	UserID      string    `json:"user_id" gorm:"type:varchar(100);not null;uniqueIndex:idx_members_workspace_user"`
	Role        string    `json:"role" gorm:"type:varchar(20);default:'member'"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName .
func (WorkspaceMember) TableName() string {
	return "workspace_members"
}
