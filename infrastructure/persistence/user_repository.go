package persistence

import (
	"context"
	"database/sql"

	"kreatr-scheduler/domain/model"
	"kreatr-scheduler/domain/repository"
	"kreatr-scheduler/infrastructure/logger"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.IUser {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByUserName(ctx context.Context, userName string) (model.User, error) {
	var u model.User
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, user_name, created_at, updated_at FROM users WHERE user_name = $1`, userName)
	if err := row.Scan(&u.ID, &u.Name, &u.UserName, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err != sql.ErrNoRows {
			logger.GetLogger().WithField("error", err).Error("query user by username failed")
		}
		return u, err
	}
	return u, nil
}
