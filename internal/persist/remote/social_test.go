package remote

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"instagen/internal/model"
	"instagen/internal/persist"
)

// =============================================================================
// TEST FIXTURE
// =============================================================================
//
// The backend's SQL paths run against a mocked database/sql driver. Each test
// scripts the statements it expects; anything unscripted fails the test.

func newMockBackend(t *testing.T) (*Backend, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlmock"), nil, nil), mock
}

func viewerCtx(userID string) context.Context {
	return persist.WithViewer(context.Background(), userID)
}

// =============================================================================
// FOLLOW
// =============================================================================

func TestFollow_InsertsEdgeAndBumpsBothCounters(t *testing.T) {
	backend, mock := newMockBackend(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO user_follows").
		WithArgs("u-viewer", "u-target").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET follower_count").
		WithArgs("u-target").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET following_count").
		WithArgs("u-viewer").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := backend.Follow(viewerCtx("u-viewer"), "u-target"); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFollow_RepeatDoesNotTouchCounters(t *testing.T) {
	backend, mock := newMockBackend(t)

	// The edge already exists, so the conflict-suppressed insert reports zero
	// rows. No counter updates may follow.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO user_follows").
		WithArgs("u-viewer", "u-target").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if err := backend.Follow(viewerCtx("u-viewer"), "u-target"); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFollow_WithoutSessionFails(t *testing.T) {
	backend, _ := newMockBackend(t)

	err := backend.Follow(context.Background(), "u-target")
	if !errors.Is(err, model.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got: %v", err)
	}
}

// =============================================================================
// UNFOLLOW
// =============================================================================

func TestUnfollow_AbsentEdgeIsNoOp(t *testing.T) {
	backend, mock := newMockBackend(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM user_follows").
		WithArgs("u-viewer", "u-target").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if err := backend.Unfollow(viewerCtx("u-viewer"), "u-target"); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
