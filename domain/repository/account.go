package repository

import (
	"context"

	"kreatr-scheduler/domain/model"
)

// IPlatformAccount reads linked social accounts for a workspace. Token
// issuance and refresh live in the OAuth linking flow, not here.
type IPlatformAccount interface {
	GetActiveAccounts(ctx context.Context, workspaceID int64, platform string) ([]*model.PlatformAccount, error)
	GetByID(ctx context.Context, id int64) (*model.PlatformAccount, error)
}

// IWorkspace answers membership questions for ownership checks.
type IWorkspace interface {
	IsMember(ctx context.Context, workspaceID int64, userID string) (bool, error)
}
