package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/odyssey-erp/ledger-intake/internal/platform/db"
	"github.com/odyssey-erp/ledger-intake/internal/shared"
)

// Store persists ledger entries.
type Store interface {
	Insert(ctx context.Context, draft Draft) (int64, error)
	InsertAll(ctx context.Context, drafts []Draft) ([]int64, error)
	List(ctx context.Context) ([]Entry, error)
	// UpdateByID overwrites the columns named by patch on the row with
	// patch.ID and reports whether a row matched.
	UpdateByID(ctx context.Context, patch Patch) (bool, error)
}

// DB is the subset of pgxpool.Pool used by PostgresStore.
type DB interface {
	db.TxBeginner
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps ledger rows in a single Postgres table.
type PostgresStore struct {
	db     DB
	table  string
	insert string
	list   string
}

// DefaultTable is used when NewPostgresStore is given an empty name.
const DefaultTable = "ledger_entries"

// NewPostgresStore builds a store over table; the name is quoted as an
// identifier and may be schema-qualified ("accounts.ledger").
func NewPostgresStore(pool DB, table string) *PostgresStore {
	if table == "" {
		table = DefaultTable
	}
	ident := splitIdentifier(table)
	name := ident.Sanitize()
	return &PostgresStore{
		db:    pool,
		table: name,
		insert: `INSERT INTO ` + name + ` (date, particulars, voucher_billno, receipts_quantity, receipts_amount,
	issued_quantity, issued_amount, balance_quantity, balance_amount)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING entry_id`,
		list: `SELECT entry_id, date, particulars, voucher_billno, receipts_quantity, receipts_amount,
	issued_quantity, issued_amount, balance_quantity, balance_amount
FROM ` + name + `
ORDER BY entry_id`,
	}
}

func splitIdentifier(name string) pgx.Identifier {
	var ident pgx.Identifier
	start := 0
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			ident = append(ident, name[start:i])
			start = i + 1
		}
	}
	return append(ident, name[start:])
}

func draftArgs(d Draft) []any {
	return []any{
		d.Date.Time,
		d.Particulars,
		d.VoucherBillNo,
		d.ReceiptsQuantity,
		d.ReceiptsAmount,
		d.IssuedQuantity,
		d.IssuedAmount,
		d.BalanceQuantity,
		d.BalanceAmount,
	}
}

func (s *PostgresStore) insertWith(ctx context.Context, q queryRower, draft Draft) (int64, error) {
	var id int64
	if err := q.QueryRow(ctx, s.insert, draftArgs(draft)...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// Insert adds one row and returns its assigned id.
func (s *PostgresStore) Insert(ctx context.Context, draft Draft) (int64, error) {
	id, err := s.insertWith(ctx, s.db, draft)
	if err != nil {
		return 0, shared.Storage("ledger: insert entry", err)
	}
	return id, nil
}

// InsertAll adds drafts in order inside one transaction.
func (s *PostgresStore) InsertAll(ctx context.Context, drafts []Draft) ([]int64, error) {
	ids := make([]int64, 0, len(drafts))
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		for i, draft := range drafts {
			id, err := s.insertWith(ctx, tx, draft)
			if err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, shared.Storage("ledger: insert entries", err)
	}
	return ids, nil
}

// List returns every row ordered by id.
func (s *PostgresStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.Query(ctx, s.list)
	if err != nil {
		return nil, shared.Storage("ledger: list entries", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e    Entry
			date time.Time
		)
		if err := rows.Scan(
			&e.ID,
			&date,
			&e.Particulars,
			&e.VoucherBillNo,
			&e.ReceiptsQuantity,
			&e.ReceiptsAmount,
			&e.IssuedQuantity,
			&e.IssuedAmount,
			&e.BalanceQuantity,
			&e.BalanceAmount,
		); err != nil {
			return nil, shared.Storage("ledger: scan entry", err)
		}
		e.Date = NewDate(date)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Storage("ledger: list entries", err)
	}
	return entries, nil
}

// UpdateByID overwrites the columns named by patch. An unknown id is not
// an error; an empty patch touches nothing.
func (s *PostgresStore) UpdateByID(ctx context.Context, patch Patch) (bool, error) {
	set, args := patchAssignments(patch)
	if len(set) == 0 {
		return false, nil
	}
	args = append(args, patch.ID)
	query := `UPDATE ` + s.table + `
SET ` + strings.Join(set, ", ") + `
WHERE entry_id = $` + strconv.Itoa(len(args))
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return false, shared.Storage(fmt.Sprintf("ledger: update entry %d", patch.ID), err)
	}
	return tag.RowsAffected() > 0, nil
}

// patchAssignments lists "column = $n" for each named field in column order.
func patchAssignments(p Patch) ([]string, []any) {
	var (
		set  []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, column+" = $"+strconv.Itoa(len(args)))
	}
	if p.Date != nil {
		add("date", p.Date.Time)
	}
	if p.Particulars != nil {
		add("particulars", *p.Particulars)
	}
	if p.VoucherBillNo != nil {
		add("voucher_billno", *p.VoucherBillNo)
	}
	if p.ReceiptsQuantity != nil {
		add("receipts_quantity", *p.ReceiptsQuantity)
	}
	if p.ReceiptsAmount != nil {
		add("receipts_amount", *p.ReceiptsAmount)
	}
	if p.IssuedQuantity != nil {
		add("issued_quantity", *p.IssuedQuantity)
	}
	if p.IssuedAmount != nil {
		add("issued_amount", *p.IssuedAmount)
	}
	if p.BalanceQuantity != nil {
		add("balance_quantity", *p.BalanceQuantity)
	}
	if p.BalanceAmount != nil {
		add("balance_amount", *p.BalanceAmount)
	}
	return set, args
}
