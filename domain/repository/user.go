package repository

import (
	"context"

	"kreatr-scheduler/domain/model"
)

// IUser resolves authenticated users for the auth middleware.
type IUser interface {
	GetByUserName(ctx context.Context, userName string) (model.User, error)
}
