package persistence

import (
	"context"
	"database/sql"

	"kreatr-scheduler/domain/model"
	"kreatr-scheduler/domain/repository"
	"kreatr-scheduler/infrastructure/logger"
)

// UserRepositoryMSSQL is the SQL Server implementation of IUser.
type UserRepositoryMSSQL struct{ db *sql.DB }

func NewUserRepositoryMSSQL(db *sql.DB) repository.IUser { return &UserRepositoryMSSQL{db} }

func (r *UserRepositoryMSSQL) GetByUserName(ctx context.Context, userName string) (model.User, error) {
	var u model.User
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, user_name, created_at, updated_at FROM dbo.[users] WHERE user_name = @p1`, userName)
	if err := row.Scan(&u.ID, &u.Name, &u.UserName, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err != sql.ErrNoRows {
			logger.GetLogger().WithField("error", err).Error("mssql: query user by username failed")
		}
		return u, err
	}
	return u, nil
}
