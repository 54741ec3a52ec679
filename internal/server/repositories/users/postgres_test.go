package users

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func userRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "username", "email", "full_name", "avatar",
		"avatar_key", "password_hash", "refresh_token", "created_at", "updated_at"}).
		AddRow("u-1", "alice", "a@x.com", "Alice Smith", "http://img/a.png", "users/1/a", "hash", "", now, now)
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*INSERT\s+INTO\s+users\s*\(username,\s*email,\s*full_name,\s*avatar,\s*avatar_key,\s*password_hash\)`

	rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
		AddRow("u-42", time.Now(), time.Now())
	mock.ExpectQuery(q).
		WithArgs("alice", "a@x.com", "Alice Smith", "http://img/a.png", "users/1/a", "hash").
		WillReturnRows(rows)

	u := &models.User{Username: "alice", Email: "a@x.com", FullName: "Alice Smith",
		Avatar: "http://img/a.png", AvatarKey: "users/1/a", PasswordHash: "hash"}
	got, err := repo.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "u-42" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	_, err := repo.Create(context.Background(), &models.User{Username: "alice"})
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("expected common.ErrorAlreadyExists, got %v", err)
	}
}

func TestGetByLogin_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+.*\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1\s+OR\s+email\s*=\s*\$1\s*$`
	mock.ExpectQuery(q).WithArgs("alice").WillReturnRows(userRows())

	got, err := repo.GetByLogin(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetByLogin error: %v", err)
	}
	if got.ID != "u-1" || got.Email != "a@x.com" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGetByLogin_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+.*\s+FROM\s+users`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByLogin(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected common.ErrorNotFound, got %v", err)
	}
}

func TestExists(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+EXISTS`).
		WithArgs("alice", "a@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.Exists(context.Background(), "alice", "a@x.com")
	if err != nil {
		t.Fatalf("Exists error: %v", err)
	}
	if !ok {
		t.Fatalf("expected exists=true")
	}
}

func TestUpdateRefreshToken_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+users\s+SET\s+refresh_token`).
		WithArgs("u-1", "new-token").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateRefreshToken(context.Background(), "u-1", "new-token"); err != nil {
		t.Fatalf("UpdateRefreshToken error: %v", err)
	}
}

func TestUpdateRefreshToken_MissingUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+users\s+SET\s+refresh_token`).
		WithArgs("ghost", "").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateRefreshToken(context.Background(), "ghost", "")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected common.ErrorNotFound, got %v", err)
	}
}

func TestUpdateDetails_ReturnsUpdatedRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`UPDATE\s+users\s+SET\s+full_name`).
		WithArgs("u-1", "Alice Cooper", "").
		WillReturnRows(userRows())

	got, err := repo.UpdateDetails(context.Background(), "u-1", "Alice Cooper", "")
	if err != nil {
		t.Fatalf("UpdateDetails error: %v", err)
	}
	if got.ID != "u-1" {
		t.Fatalf("unexpected user: %+v", got)
	}
}
