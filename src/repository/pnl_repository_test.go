package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
)

func TestPnLRepositoryAccumulateCreatesFirstRow(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := (&PnLRepository{}).WithDB(mockDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "daily_pnls" WHERE account_id = $1 AND trading_day = $2 ORDER BY "daily_pnls"."id" LIMIT $3`)).
		WithArgs("acct-1", "2025-06-02", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "trading_day", "realized", "trade_count"}))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "daily_pnls" (`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := repo.Accumulate(context.Background(), "acct-1", "2025-06-02", decimal.RequireFromString("-62.50"))
	if err != nil {
		t.Fatalf("expected accumulate to create the first row, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestPnLRepositoryAccumulateAddsToExistingRow(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := (&PnLRepository{}).WithDB(mockDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "daily_pnls" WHERE account_id = $1 AND trading_day = $2 ORDER BY "daily_pnls"."id" LIMIT $3`)).
		WithArgs("acct-1", "2025-06-02", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "trading_day", "realized", "trade_count"}).
			AddRow(7, "acct-1", "2025-06-02", "-100.00", 4))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "daily_pnls" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Accumulate(context.Background(), "acct-1", "2025-06-02", decimal.RequireFromString("-25.25"))
	if err != nil {
		t.Fatalf("expected accumulate to update the row, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestPnLRepositoryFindDay(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := (&PnLRepository{}).WithDB(mockDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "daily_pnls" WHERE account_id = $1 AND trading_day = $2 ORDER BY "daily_pnls"."id" LIMIT $3`)).
		WithArgs("acct-1", "2025-06-02", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "trading_day", "realized", "trade_count"}))

	row, err := repo.FindDay(context.Background(), "acct-1", "2025-06-02")
	if err != nil {
		t.Fatalf("missing day must not be an error, got %v", err)
	}
	if row != nil {
		t.Fatalf("expected nil for a day with no trades, got %+v", row)
	}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "daily_pnls" WHERE account_id = $1 AND trading_day = $2 ORDER BY "daily_pnls"."id" LIMIT $3`)).
		WithArgs("acct-1", "2025-06-03", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "trading_day", "realized", "trade_count"}).
			AddRow(8, "acct-1", "2025-06-03", "-125.25", 5))

	row, err = repo.FindDay(context.Background(), "acct-1", "2025-06-03")
	if err != nil || row == nil {
		t.Fatalf("expected to find day row, got %+v err=%v", row, err)
	}
	if !row.Realized.Equal(decimal.RequireFromString("-125.25")) || row.TradeCount != 5 {
		t.Fatalf("wrong row returned: %+v", row)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}
