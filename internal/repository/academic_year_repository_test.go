package repository

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestAcademicYearRepositorySetCurrent(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewAcademicYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE academic_years SET is_current = FALSE`).
		WithArgs(sqlmock.AnyArg(), "school-1", "year-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE academic_years SET is_current = TRUE`).
		WithArgs(sqlmock.AnyArg(), "year-2", "school-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SetCurrent(context.Background(), "school-1", "year-2")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositorySetCurrentUnknownYear(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewAcademicYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE academic_years SET is_current = FALSE`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE academic_years SET is_current = TRUE`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SetCurrent(context.Background(), "school-1", "year-404")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
