package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/siamledger/siamledger/internal/platform/db"
)

// PGStore persists the voucher log in PostgreSQL. Append runs the voucher
// header and all lines in one transaction so the durable write is
// synchronous with the commit the caller observes: a voucher is never
// reported Posted before it is recorded.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PostgreSQL-backed ledger store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Append implements Store.
func (s *PGStore) Append(ctx context.Context, v Voucher) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO vouchers (id, number, date, description, status, posted_at, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			v.ID, v.Number, v.Date, v.Description, v.Status, v.PostedAt, v.CreatedAt, v.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return fmt.Errorf("ledger: voucher %s already appended", v.ID)
			}
			return err
		}
		for idx, line := range v.Lines {
			_, err := tx.Exec(ctx,
				`INSERT INTO voucher_lines (voucher_id, position, account_code, side, amount, memo)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				v.ID, idx, line.AccountCode, line.Side, int64(line.Amount), line.Memo)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateStatus implements Store.
func (s *PGStore) UpdateStatus(ctx context.Context, id uuid.UUID, status VoucherStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE vouchers SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrVoucherNotFound, id)
	}
	return nil
}

// Get implements Store.
func (s *PGStore) Get(ctx context.Context, id uuid.UUID) (Voucher, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, number, date, description, status, posted_at, created_at, updated_at
		 FROM vouchers WHERE id = $1`, id)
	v, err := scanVoucher(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Voucher{}, fmt.Errorf("%w: %s", ErrVoucherNotFound, id)
		}
		return Voucher{}, err
	}
	lines, err := s.lines(ctx, id)
	if err != nil {
		return Voucher{}, err
	}
	v.Lines = lines
	return v, nil
}

// Snapshot implements Store.
func (s *PGStore) Snapshot(ctx context.Context) ([]Voucher, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, number, date, description, status, posted_at, created_at, updated_at
		 FROM vouchers ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vouchers []Voucher
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		index[v.ID] = len(vouchers)
		vouchers = append(vouchers, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lineRows, err := s.pool.Query(ctx,
		`SELECT voucher_id, account_code, side, amount, memo
		 FROM voucher_lines ORDER BY voucher_id, position`)
	if err != nil {
		return nil, err
	}
	defer lineRows.Close()
	for lineRows.Next() {
		var (
			voucherID uuid.UUID
			line      VoucherLine
			amount    int64
		)
		if err := lineRows.Scan(&voucherID, &line.AccountCode, &line.Side, &amount, &line.Memo); err != nil {
			return nil, err
		}
		line.Amount = Money(amount)
		if idx, ok := index[voucherID]; ok {
			vouchers[idx].Lines = append(vouchers[idx].Lines, line)
		}
	}
	return vouchers, lineRows.Err()
}

func (s *PGStore) lines(ctx context.Context, id uuid.UUID) ([]VoucherLine, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT account_code, side, amount, memo FROM voucher_lines
		 WHERE voucher_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []VoucherLine
	for rows.Next() {
		var (
			line   VoucherLine
			amount int64
		)
		if err := rows.Scan(&line.AccountCode, &line.Side, &amount, &line.Memo); err != nil {
			return nil, err
		}
		line.Amount = Money(amount)
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVoucher(row rowScanner) (Voucher, error) {
	var v Voucher
	err := row.Scan(&v.ID, &v.Number, &v.Date, &v.Description, &v.Status, &v.PostedAt, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}
