package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cutcoin-wallet/internal/core/domain"
	"cutcoin-wallet/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const ledgerColumns = `id, reference, sender_id, receiver_id, amount, fee, type, status, description, created_at`

// LedgerRepo implements ports.LedgerRepository over the transactions table.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Create appends a ledger row within a database transaction.
func (r *LedgerRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.LedgerTransaction) error {
	query := `INSERT INTO transactions (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.Reference, t.SenderID, t.ReceiverID, t.Amount, t.Fee,
		t.Type, t.Status, t.Description, t.CreatedAt,
	)
	if err != nil {
		return wrapInsertErr("insert ledger transaction", err)
	}
	return nil
}

// GetByReference fetches a ledger row by its unique reference.
func (r *LedgerRepo) GetByReference(ctx context.Context, reference string) (*domain.LedgerTransaction, error) {
	query := `SELECT ` + ledgerColumns + ` FROM transactions WHERE reference = $1`
	return scanLedger(r.pool.QueryRow(ctx, query, reference), "get ledger transaction by reference")
}

// UpdateStatus moves a row from one status to another. Rows no longer in
// the from status are left alone.
func (r *LedgerRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.TransactionStatus) (bool, error) {
	query := `UPDATE transactions SET status = $1 WHERE id = $2 AND status = $3`

	tag, err := tx.Exec(ctx, query, to, id, from)
	if err != nil {
		return false, wrapErr("update ledger status", err)
	}
	return tag.RowsAffected() == 1, nil
}

// List returns a page of rows sent or received by a wallet, newest first.
func (r *LedgerRepo) List(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerTransaction, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("(sender_id = $%d OR receiver_id = $%d)", argIdx, argIdx))
	args = append(args, params.WalletID)
	argIdx++

	if params.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIdx))
		args = append(args, *params.Type)
		argIdx++
	}
	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM transactions %s", where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, wrapErr("count ledger transactions", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM transactions %s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, ledgerColumns, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, wrapErr("list ledger transactions", err)
	}
	defer rows.Close()

	var txns []domain.LedgerTransaction
	for rows.Next() {
		t, err := scanLedger(rows, "scan ledger row")
		if err != nil {
			return nil, 0, err
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return txns, total, nil
}

// SumSentSince totals completed rows of typ sent by walletID since a point
// in time. Callers hold the sender's row lock, which serializes the cap.
func (r *LedgerRepo) SumSentSince(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, typ domain.TransactionType, since time.Time) (int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE sender_id = $1 AND type = $2 AND status = 'completed' AND created_at >= $3`

	var sum int64
	if err := tx.QueryRow(ctx, query, walletID, typ, since).Scan(&sum); err != nil {
		return 0, wrapErr("sum sent transactions", err)
	}
	return sum, nil
}

// AvgSent is the mean completed amount of typ sent by walletID, rounded
// down to the minor unit. Zero when there is no history.
func (r *LedgerRepo) AvgSent(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, typ domain.TransactionType) (int64, error) {
	query := `SELECT COALESCE(FLOOR(AVG(amount)), 0)::BIGINT FROM transactions
		WHERE sender_id = $1 AND type = $2 AND status = 'completed'`

	var avg int64
	if err := tx.QueryRow(ctx, query, walletID, typ).Scan(&avg); err != nil {
		return 0, wrapErr("average sent transaction", err)
	}
	return avg, nil
}

// CountSentToSince counts completed rows of typ from walletID to receiverID.
func (r *LedgerRepo) CountSentToSince(ctx context.Context, tx pgx.Tx, walletID, receiverID uuid.UUID, typ domain.TransactionType, since time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM transactions
		WHERE sender_id = $1 AND receiver_id = $2 AND type = $3 AND status = 'completed' AND created_at >= $4`

	var n int64
	if err := tx.QueryRow(ctx, query, walletID, receiverID, typ, since).Scan(&n); err != nil {
		return 0, wrapErr("count transfers to recipient", err)
	}
	return n, nil
}

func scanLedger(row pgx.Row, op string) (*domain.LedgerTransaction, error) {
	t := &domain.LedgerTransaction{}
	err := row.Scan(
		&t.ID, &t.Reference, &t.SenderID, &t.ReceiverID, &t.Amount, &t.Fee,
		&t.Type, &t.Status, &t.Description, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr(op, err)
	}
	return t, nil
}
