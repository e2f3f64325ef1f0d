package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"riskenforcer/src/model"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/gorm"
)

func TestAccountRepositoryUpsert(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := (&AccountRepository{}).WithDB(mockDB)

	account := &model.Account{
		AccountID:    "acct-1",
		Name:         "Eval 50K",
		APIKeyEnc:    "enc-key",
		APISecretEnc: "enc-secret",
		Enabled:      true,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "accounts" (`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	if err := repo.Upsert(context.Background(), account); err != nil {
		t.Fatalf("expected upsert to succeed, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestAccountRepositoryFindByAccountID(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := (&AccountRepository{}).WithDB(mockDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "accounts" WHERE account_id = $1 ORDER BY "accounts"."id" LIMIT $2`)).
		WithArgs("acct-unknown", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "enabled"}))

	found, err := repo.FindByAccountID(context.Background(), "acct-unknown")
	if err != nil {
		t.Fatalf("unknown account must not be an error, got %v", err)
	}
	if found != nil {
		t.Fatalf("expected nil for unknown account, got %+v", found)
	}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "accounts" WHERE account_id = $1 ORDER BY "accounts"."id" LIMIT $2`)).
		WithArgs("acct-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "name", "api_key_enc", "api_secret_enc", "enabled"}).
			AddRow(1, "acct-1", "Eval 50K", "enc-key", "enc-secret", true))

	found, err = repo.FindByAccountID(context.Background(), "acct-1")
	if err != nil || found == nil {
		t.Fatalf("expected to find account, got %+v err=%v", found, err)
	}
	if found.APIKeyEnc != "enc-key" || !found.Enabled {
		t.Fatalf("wrong row returned: %+v", found)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestAccountRepositorySetEnabled(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := (&AccountRepository{}).WithDB(mockDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "accounts" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.SetEnabled(context.Background(), "acct-1", false); err != nil {
		t.Fatalf("expected update to succeed, got %v", err)
	}

	// No matching row reports not found.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "accounts" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.SetEnabled(context.Background(), "acct-unknown", true)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("want gorm.ErrRecordNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}
