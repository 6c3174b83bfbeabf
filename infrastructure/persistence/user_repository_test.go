package persistence

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"kreatr-scheduler/domain/model"
)

func TestUserRepository_GetByUserName(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(db)
	createdAt := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	updatedAt := createdAt.Add(48 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, user_name, created_at, updated_at FROM users WHERE user_name = $1`)).
		WithArgs("maya.creator").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "user_name", "created_at", "updated_at"}).
			AddRow(42, "Maya", "maya.creator", createdAt, updatedAt))

	res, err := repo.GetByUserName(context.Background(), "maya.creator")

	require.NoError(t, err)
	require.Equal(t, model.User{
		ID:        42,
		Name:      "Maya",
		UserName:  "maya.creator",
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, res)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByUserName_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, user_name, created_at, updated_at FROM users WHERE user_name = $1`)).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "user_name", "created_at", "updated_at"}))

	_, err = repo.GetByUserName(context.Background(), "ghost")

	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
