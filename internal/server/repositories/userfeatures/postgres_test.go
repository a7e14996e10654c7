package userfeatures

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/sgescolar/authcore/internal/common"
	"github.com/sgescolar/authcore/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+user_features`).
		WithArgs("uf1", "u1", "f1", "master-1", true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.UserFeature{
		ID: "uf1", UserID: "u1", FeatureID: "f1", GrantedBy: "master-1", Active: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDelete_ZeroRowsIsNotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+user_features\s+WHERE\s+user_id`).
		WithArgs("u1", "f1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "u1", "f1")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestFindActive(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "user_id", "feature_id", "granted_by", "active"}).
		AddRow("uf1", "u1", "f1", "master-1", true)

	mock.ExpectQuery(`SELECT\s+id,\s*user_id,\s*feature_id,\s*granted_by,\s*active\s+FROM\s+user_features`).
		WithArgs("u1", "f1").
		WillReturnRows(rows)

	got, err := repo.FindActive(context.Background(), "u1", "f1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "uf1" || !got.Active {
		t.Fatalf("unexpected grant: %+v", got)
	}

	mock.ExpectQuery(`SELECT\s+id,\s*user_id,\s*feature_id,\s*granted_by,\s*active\s+FROM\s+user_features`).
		WithArgs("u2", "f1").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.FindActive(context.Background(), "u2", "f1")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestListActiveUserIDs(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"user_id"}).AddRow("u1").AddRow("u2")

	mock.ExpectQuery(`SELECT\s+user_id\s+FROM\s+user_features`).
		WithArgs("f1").
		WillReturnRows(rows)

	ids, err := repo.ListActiveUserIDs(context.Background(), "f1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "u1" || ids[1] != "u2" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestDeleteByFeature_ZeroRowsOK(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+user_features\s+WHERE\s+feature_id`).
		WithArgs("f1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.DeleteByFeature(context.Background(), "f1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
