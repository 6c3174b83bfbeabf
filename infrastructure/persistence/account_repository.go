package persistence

import (
	"context"
	"database/sql"
	"errors"

	"kreatr-scheduler/domain/model"
	"kreatr-scheduler/domain/repository"

	"gorm.io/gorm"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetActiveAccounts(ctx context.Context, workspaceID int64, platform string) ([]*model.PlatformAccount, error) {
	var accounts []*model.PlatformAccount
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND platform = ? AND active = ?", workspaceID, platform, true).
		Order("id ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*model.PlatformAccount, error) {
	var account model.PlatformAccount
	err := r.db.WithContext(ctx).First(&account, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &account, nil
}

var _ repository.IPlatformAccount = (*AccountRepository)(nil)

type WorkspaceRepository struct {
	db *gorm.DB
}

func NewWorkspaceRepository(db *gorm.DB) *WorkspaceRepository {
	return &WorkspaceRepository{db: db}
}

func (r *WorkspaceRepository) IsMember(ctx context.Context, workspaceID int64, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

var _ repository.IWorkspace = (*WorkspaceRepository)(nil)
