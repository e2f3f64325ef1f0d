package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"riskenforcer/src/model"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestLockoutRepositoryUpsert(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := (&LockoutRepository{}).WithDB(mockDB)

	until := time.Date(2025, 6, 2, 21, 0, 0, 0, time.UTC)
	row := &model.Lockout{
		AccountID:   "acct-1",
		Active:      true,
		Reason:      model.LockoutReasonDailyLimit,
		RuleID:      "daily_realized_loss",
		LockedAt:    until.Add(-4 * time.Hour),
		LockedUntil: &until,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "lockouts" (`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	if err := repo.Upsert(context.Background(), row); err != nil {
		t.Fatalf("expected upsert to succeed, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestLockoutRepositoryFindByAccount(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := (&LockoutRepository{}).WithDB(mockDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "lockouts" WHERE account_id = $1 ORDER BY "lockouts"."id" LIMIT $2`)).
		WithArgs("acct-unknown", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "active"}))

	found, err := repo.FindByAccount(context.Background(), "acct-unknown")
	if err != nil {
		t.Fatalf("missing row must not be an error, got %v", err)
	}
	if found != nil {
		t.Fatalf("expected nil for unknown account, got %+v", found)
	}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "lockouts" WHERE account_id = $1 ORDER BY "lockouts"."id" LIMIT $2`)).
		WithArgs("acct-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "active", "reason", "rule_id"}).
			AddRow(3, "acct-1", true, model.LockoutReasonManual, ""))

	found, err = repo.FindByAccount(context.Background(), "acct-1")
	if err != nil || found == nil {
		t.Fatalf("expected to find lockout, got %+v err=%v", found, err)
	}
	if !found.Active || found.Reason != model.LockoutReasonManual {
		t.Fatalf("wrong row returned: %+v", found)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestLockoutRepositoryFindActive(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := (&LockoutRepository{}).WithDB(mockDB)

	rows := sqlmock.NewRows([]string{"id", "account_id", "active", "reason"}).
		AddRow(1, "acct-1", true, model.LockoutReasonDailyLimit).
		AddRow(2, "acct-2", true, model.LockoutReasonAuthAnomaly)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "lockouts" WHERE active = $1`)).
		WithArgs(true).
		WillReturnRows(rows)

	active, err := repo.FindActive(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active lockouts, got %d", len(active))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	})

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		sqlDB.Close()
		t.Fatalf("failed to open gorm DB with sqlmock: %v", err)
	}

	return gdb, mock
}
