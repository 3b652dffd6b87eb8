package repository

import (
	"context"
	"fmt"
	"strings"

	"resaleback/internal/domain"
)

type TransactionListFilter struct {
	Keyword   string
	Page      int
	Length    int
	StartDate string
	EndDate   string
}

// ListTransactions pages one kind's records, filtered by product substring
// and key-date range.
func (r *Repository) ListTransactions(ctx context.Context, kind domain.Kind, filter TransactionListFilter) (domain.TransactionPage, error) {
	length := normalizeLength(filter.Length)
	page := normalizePage(filter.Page)
	keyword := strings.TrimSpace(filter.Keyword)

	where := `
		WHERE kind = $1
		AND ($2 = '' OR product ILIKE '%' || $2 || '%')
		AND ($3 = '' OR COALESCE(out_date, in_date) >= $3)
		AND ($4 = '' OR COALESCE(out_date, in_date) <= $4)
	`
	args := []any{kind, keyword, filter.StartDate, filter.EndDate}

	var total int
	if err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*)::int FROM transactions "+where, args...,
	).Scan(&total); err != nil {
		return domain.TransactionPage{}, fmt.Errorf("count transactions: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		"SELECT "+transactionColumns+" FROM transactions "+where+
			" ORDER BY created_at DESC, id ASC LIMIT $5 OFFSET $6",
		append(args, length, (page-1)*length)...,
	)
	if err != nil {
		return domain.TransactionPage{}, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	data := make([]domain.Transaction, 0, length)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return domain.TransactionPage{}, fmt.Errorf("scan transaction: %w", err)
		}
		data = append(data, t)
	}
	if err := rows.Err(); err != nil {
		return domain.TransactionPage{}, fmt.Errorf("iterate transactions: %w", err)
	}

	return domain.TransactionPage{
		TotalCount: total,
		HasNext:    total > page*length,
		Data:       data,
	}, nil
}

// GetTransactionsByIDs loads the selected records for a download, in id
// order.
func (r *Repository) GetTransactionsByIDs(ctx context.Context, kind domain.Kind, ids []int64) ([]domain.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE kind = $1 AND id = ANY($2) ORDER BY id ASC",
		kind, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("get transactions by ids: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Transaction, 0, len(ids))
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return result, nil
}

func (r *Repository) ListUploads(ctx context.Context, kind domain.Kind) ([]domain.UploadRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, kind, created_at
		FROM uploads
		WHERE kind = $1
		ORDER BY created_at DESC
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	records := make([]domain.UploadRecord, 0)
	for rows.Next() {
		var record domain.UploadRecord
		if err := rows.Scan(&record.ID, &record.Kind, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate uploads: %w", err)
	}
	return records, nil
}

// ListClients pages one kind's rollups by counterparty id substring.
func (r *Repository) ListClients(ctx context.Context, kind domain.Kind, keyword string, page, length int) (domain.ClientPage, error) {
	length = normalizeLength(length)
	page = normalizePage(page)
	keyword = strings.TrimSpace(keyword)

	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)::int FROM client_rollups
		WHERE kind = $1 AND ($2 = '' OR client_id ILIKE '%' || $2 || '%')
	`, kind, keyword).Scan(&total); err != nil {
		return domain.ClientPage{}, fmt.Errorf("count clients: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+rollupColumns+`
		FROM client_rollups
		WHERE kind = $1 AND ($2 = '' OR client_id ILIKE '%' || $2 || '%')
		ORDER BY client_id ASC
		LIMIT $3 OFFSET $4
	`, kind, keyword, length, (page-1)*length)
	if err != nil {
		return domain.ClientPage{}, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	data := make([]domain.ClientRollup, 0, length)
	for rows.Next() {
		rollup, err := scanRollup(rows)
		if err != nil {
			return domain.ClientPage{}, fmt.Errorf("scan client rollup: %w", err)
		}
		data = append(data, rollup)
	}
	if err := rows.Err(); err != nil {
		return domain.ClientPage{}, fmt.Errorf("iterate clients: %w", err)
	}

	return domain.ClientPage{
		TotalCount: total,
		HasNext:    total > page*length,
		Data:       data,
	}, nil
}

// UpdateClient patches the free-text note/manager fields of one rollup.
func (r *Repository) UpdateClient(ctx context.Context, kind domain.Kind, clientID string, note, manager *string) error {
	sets := make([]string, 0, 2)
	args := []any{clientID, kind}
	if note != nil {
		args = append(args, *note)
		sets = append(sets, fmt.Sprintf("note = $%d", len(args)))
	}
	if manager != nil {
		args = append(args, *manager)
		sets = append(sets, fmt.Sprintf("manager = $%d", len(args)))
	}
	if len(sets) == 0 {
		return domain.BadRequestf("nothing to update")
	}

	cmd, err := r.pool.Exec(ctx,
		"UPDATE client_rollups SET "+strings.Join(sets, ", ")+", updated_at = NOW() WHERE client_id = $1 AND kind = $2",
		args...,
	)
	if err != nil {
		return fmt.Errorf("update client %q: %w", clientID, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Reset clears one kind entirely: markers, records, projections, rollups and
// the product set.
func (r *Repository) Reset(ctx context.Context, kind domain.Kind) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reset tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{"uploads", "transactions", "price_records", "client_rollups"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE kind = $1", kind); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	if _, err := tx.Exec(ctx, "DELETE FROM products WHERE kind = $1", kind); err != nil {
		return fmt.Errorf("reset products: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reset tx: %w", err)
	}
	return nil
}

// PeriodSummary aggregates price records inside one key-date window.
func (r *Repository) PeriodSummary(ctx context.Context, kind domain.Kind, from, to string) (domain.PeriodSummary, error) {
	var summary domain.PeriodSummary
	if err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*)::int,
			COALESCE(SUM(in_price), 0)::double precision,
			COALESCE(SUM(COALESCE(out_price, 0)), 0)::double precision
		FROM price_records
		WHERE kind = $1 AND key_date >= $2 AND key_date <= $3
	`, kind, from, to).Scan(&summary.Count, &summary.AccInPrice, &summary.AccOutPrice); err != nil {
		return domain.PeriodSummary{}, fmt.Errorf("period summary: %w", err)
	}
	summary.AccMargin = summary.AccOutPrice - summary.AccInPrice
	return summary, nil
}

// TopProducts ranks products by accumulated price inside one window: resale
// totals for sales, acquisition totals for purchases.
func (r *Repository) TopProducts(ctx context.Context, kind domain.Kind, from, to string, limit int) ([]domain.TopEntry, error) {
	return r.topEntries(ctx, kind, "product", from, to, limit)
}

func (r *Repository) TopClients(ctx context.Context, kind domain.Kind, from, to string, limit int) ([]domain.TopEntry, error) {
	return r.topEntries(ctx, kind, "client", from, to, limit)
}

func (r *Repository) topEntries(ctx context.Context, kind domain.Kind, groupBy, from, to string, limit int) ([]domain.TopEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.pool.Query(ctx, `
		SELECT
			`+groupBy+` AS name,
			COUNT(*)::int AS cnt,
			SUM(CASE WHEN kind = 'sale' THEN COALESCE(out_price, 0) ELSE in_price END)::double precision AS acc_price,
			SUM(CASE WHEN kind = 'sale' THEN COALESCE(out_price, 0) - in_price ELSE 0 END)::double precision AS acc_margin
		FROM price_records
		WHERE kind = $1 AND key_date >= $2 AND key_date <= $3
		GROUP BY `+groupBy+`
		ORDER BY acc_price DESC, cnt DESC
		LIMIT $4
	`, kind, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("top %s query: %w", groupBy, err)
	}
	defer rows.Close()

	entries := make([]domain.TopEntry, 0, limit)
	for rows.Next() {
		var entry domain.TopEntry
		if err := rows.Scan(&entry.Name, &entry.Count, &entry.AccPrice, &entry.AccMargin); err != nil {
			return nil, fmt.Errorf("scan top %s: %w", groupBy, err)
		}
		if entry.AccPrice != 0 {
			entry.MarginRate = entry.AccMargin / entry.AccPrice * 100
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top %s: %w", groupBy, err)
	}
	return entries, nil
}

// ClientVisits lists counterparties least recently seen first, each paired
// with its transaction volume since the given date.
func (r *Repository) ClientVisits(ctx context.Context, kind domain.Kind, since string, limit int) ([]domain.ClientVisit, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
		SELECT
			r.client_id,
			r.last_date,
			r.note,
			r.manager,
			COALESCE(v.cnt, 0),
			COALESCE(v.acc_price, 0)
		FROM client_rollups r
		LEFT JOIN (
			SELECT
				client,
				COUNT(*)::int AS cnt,
				SUM(CASE WHEN kind = 'sale' THEN COALESCE(out_price, 0) ELSE in_price END)::double precision AS acc_price
			FROM price_records
			WHERE kind = $1 AND key_date > $2
			GROUP BY client
		) v ON v.client = r.client_id
		WHERE r.kind = $1
		ORDER BY r.last_date ASC, r.client_id ASC
		LIMIT $3
	`, kind, since, limit)
	if err != nil {
		return nil, fmt.Errorf("client visits query: %w", err)
	}
	defer rows.Close()

	visits := make([]domain.ClientVisit, 0, limit)
	for rows.Next() {
		var (
			visit   domain.ClientVisit
			note    *string
			manager *string
		)
		if err := rows.Scan(&visit.ClientID, &visit.LastDate, &note, &manager, &visit.Count, &visit.AccPrice); err != nil {
			return nil, fmt.Errorf("scan client visit: %w", err)
		}
		visit.Note = note
		visit.Manager = manager
		visits = append(visits, visit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate client visits: %w", err)
	}
	return visits, nil
}
