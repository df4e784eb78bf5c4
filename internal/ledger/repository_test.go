package ledger

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/ledger-intake/internal/shared"
)

var listColumns = []string{
	"entry_id", "date", "particulars", "voucher_billno", "receipts_quantity", "receipts_amount",
	"issued_quantity", "issued_amount", "balance_quantity", "balance_amount",
}

func newMockStore(t *testing.T, table string) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresStore(mock, table), mock
}

func TestPostgresStoreQuotesTable(t *testing.T) {
	store, _ := newMockStore(t, "accounts.ledger")
	assert.Contains(t, store.insert, `INSERT INTO "accounts"."ledger"`)
	assert.Contains(t, store.list, `FROM "accounts"."ledger"`)

	store, _ = newMockStore(t, "")
	assert.Equal(t, `"ledger_entries"`, store.table)
}

func TestPostgresStoreInsert(t *testing.T) {
	store, mock := newMockStore(t, "")
	draft := Receipt(NewDate(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)), "Pen", "B1", 5, decimal.RequireFromString("12.5"))

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "ledger_entries"`)).
		WithArgs(pgxmock.AnyArg(), "Pen", "B1", int64(5), pgxmock.AnyArg(), int64(0), pgxmock.AnyArg(), int64(5), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"entry_id"}).AddRow(int64(11)))

	id, err := store.Insert(context.Background(), draft)
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreInsertAllUsesOneTransaction(t *testing.T) {
	store, mock := newMockStore(t, "")
	date := NewDate(time.Now())

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "ledger_entries"`)).
		WithArgs(pgxmock.AnyArg(), "a", "N/A", int64(0), pgxmock.AnyArg(), int64(0), pgxmock.AnyArg(), int64(0), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"entry_id"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "ledger_entries"`)).
		WithArgs(pgxmock.AnyArg(), "b", "N/A", int64(0), pgxmock.AnyArg(), int64(0), pgxmock.AnyArg(), int64(0), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"entry_id"}).AddRow(int64(2)))
	mock.ExpectCommit()

	ids, err := store.InsertAll(context.Background(), []Draft{
		Receipt(date, "a", "N/A", 0, decimal.Zero),
		Receipt(date, "b", "N/A", 0, decimal.Zero),
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreInsertAllRollsBackOnFailure(t *testing.T) {
	store, mock := newMockStore(t, "")

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "ledger_entries"`)).
		WillReturnError(errors.New("relation does not exist"))
	mock.ExpectRollback()

	_, err := store.InsertAll(context.Background(), []Draft{Receipt(NewDate(time.Now()), "a", "N/A", 0, decimal.Zero)})
	require.Error(t, err)
	assert.Equal(t, shared.KindStorage, shared.KindOf(err))
	assert.Contains(t, err.Error(), "relation does not exist")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreList(t *testing.T) {
	store, mock := newMockStore(t, "")
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY entry_id`)).
		WillReturnRows(pgxmock.NewRows(listColumns).
			AddRow(int64(1), day, "Pen", "B1", int64(5), decimal.RequireFromString("12.5"), int64(0), decimal.Zero, int64(5), decimal.RequireFromString("12.5")).
			AddRow(int64(2), day, "Ink", "N/A", int64(0), decimal.Zero, int64(0), decimal.Zero, int64(0), decimal.Zero))

	entries, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].ID)
	assert.Equal(t, "2024-01-01", entries[0].Date.String())
	assert.True(t, decimal.RequireFromString("12.5").Equal(entries[0].BalanceAmount))
	assert.Equal(t, "Ink", entries[1].Particulars)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreListEmpty(t *testing.T) {
	store, mock := newMockStore(t, "")
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY entry_id`)).WillReturnRows(pgxmock.NewRows(listColumns))

	entries, err := store.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestPostgresStoreListFailureIsStorageError(t *testing.T) {
	store, mock := newMockStore(t, "")
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY entry_id`)).WillReturnError(errors.New("connection reset"))

	_, err := store.List(context.Background())
	require.Error(t, err)
	assert.Equal(t, shared.KindStorage, shared.KindOf(err))
}

func TestPostgresStoreUpdateByID(t *testing.T) {
	store, mock := newMockStore(t, "")
	entry := Entry{ID: 7, Draft: Receipt(NewDate(time.Now()), "Pen", "B1", 5, decimal.RequireFromString("12.5"))}

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "ledger_entries"
SET date = $1, particulars = $2, voucher_billno = $3, receipts_quantity = $4, receipts_amount = $5, issued_quantity = $6, issued_amount = $7, balance_quantity = $8, balance_amount = $9
WHERE entry_id = $10`)).
		WithArgs(pgxmock.AnyArg(), "Pen", "B1", int64(5), pgxmock.AnyArg(), int64(0), pgxmock.AnyArg(), int64(5), pgxmock.AnyArg(), int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "ledger_entries"`)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	matched, err := store.UpdateByID(context.Background(), PatchFrom(entry))
	require.NoError(t, err)
	assert.True(t, matched)

	entry.ID = 99
	matched, err = store.UpdateByID(context.Background(), PatchFrom(entry))
	require.NoError(t, err)
	assert.False(t, matched)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreUpdateByIDSetsOnlyNamedColumns(t *testing.T) {
	store, mock := newMockStore(t, "")
	date := NewDate(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	balance := decimal.RequireFromString("99.9")

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "ledger_entries"
SET date = $1, balance_amount = $2
WHERE entry_id = $3`)).
		WithArgs(date.Time, balance, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	matched, err := store.UpdateByID(context.Background(), Patch{ID: 1, Date: &date, BalanceAmount: &balance})
	require.NoError(t, err)
	assert.True(t, matched)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreUpdateByIDEmptyPatchSkipsQuery(t *testing.T) {
	store, mock := newMockStore(t, "")

	matched, err := store.UpdateByID(context.Background(), Patch{ID: 1})
	require.NoError(t, err)
	assert.False(t, matched)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryStoreConcurrentInsertsListInIDOrder(t *testing.T) {
	store := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Insert(context.Background(), Receipt(NewDate(time.Now()), "x", "N/A", 1, decimal.NewFromInt(1)))
		}()
	}
	wg.Wait()

	entries, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 50)
	for i := 1; i < len(entries); i++ {
		assert.Less(t, entries[i-1].ID, entries[i].ID)
	}
}

func TestMemoryStoreUpdateUnknownID(t *testing.T) {
	store := NewMemoryStore()
	particulars := "x"
	matched, err := store.UpdateByID(context.Background(), Patch{ID: 3, Particulars: &particulars})
	require.NoError(t, err)
	assert.False(t, matched)
}
