package repository

import (
	"context"
	"fmt"
	"time"

	"resaleback/internal/domain"

	"github.com/google/uuid"
)

// CreateUpload inserts a fresh batch marker before any row is parsed so its
// id can stamp every record the batch produces.
func (r *Repository) CreateUpload(ctx context.Context, kind domain.Kind) (domain.UploadRecord, error) {
	record := domain.UploadRecord{ID: uuid.NewString(), Kind: kind}
	if err := r.pool.QueryRow(ctx, `
		INSERT INTO uploads (id, kind)
		VALUES ($1, $2)
		RETURNING created_at
	`, record.ID, record.Kind).Scan(&record.CreatedAt); err != nil {
		return domain.UploadRecord{}, fmt.Errorf("insert upload marker: %w", err)
	}
	return record, nil
}

// DeleteUpload removes a bare marker, used when a batch fails validation
// after the marker was created. Missing markers are not an error here.
func (r *Repository) DeleteUpload(ctx context.Context, kind domain.Kind, id string) error {
	if _, err := r.pool.Exec(ctx,
		"DELETE FROM uploads WHERE id = $1 AND kind = $2", id, kind,
	); err != nil {
		return fmt.Errorf("delete upload marker %s: %w", id, err)
	}
	return nil
}

// FindDuplicateTransactions looks for stored records colliding with the
// incoming identity keys, in both the transaction store and its
// price-projection twin.
func (r *Repository) FindDuplicateTransactions(
	ctx context.Context,
	kind domain.Kind,
	serials []string,
	pairs []domain.DateIMEI,
) ([]domain.Transaction, error) {
	imeis := make([]string, len(pairs))
	dates := make([]string, len(pairs))
	for i, pair := range pairs {
		imeis[i] = pair.IMEI
		dates[i] = pair.Date
	}

	rows, err := r.pool.Query(ctx, `
		SELECT product, serial_no
		FROM transactions
		WHERE kind = $1 AND (
			serial_no = ANY($2)
			OR (imei, COALESCE(out_date, in_date)) IN (
				SELECT unnest($3::text[]), unnest($4::text[])
			)
		)
		UNION
		SELECT product, serial_no
		FROM price_records
		WHERE kind = $1 AND (
			serial_no = ANY($2)
			OR (imei, key_date) IN (
				SELECT unnest($3::text[]), unnest($4::text[])
			)
		)
	`, kind, serials, imeis, dates)
	if err != nil {
		return nil, fmt.Errorf("query duplicate transactions: %w", err)
	}
	defer rows.Close()

	var matches []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.Product, &t.SerialNo); err != nil {
			return nil, fmt.Errorf("scan duplicate transaction: %w", err)
		}
		t.Kind = kind
		matches = append(matches, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate duplicate transactions: %w", err)
	}
	return matches, nil
}

// FindRollups loads the existing rollup rows for a counterparty id set,
// keyed by counterparty id.
func (r *Repository) FindRollups(ctx context.Context, kind domain.Kind, clientIDs []string) (map[string]domain.ClientRollup, error) {
	result := make(map[string]domain.ClientRollup, len(clientIDs))
	if len(clientIDs) == 0 {
		return result, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+rollupColumns+`
		FROM client_rollups
		WHERE kind = $1 AND client_id = ANY($2)
	`, kind, clientIDs)
	if err != nil {
		return nil, fmt.Errorf("query client rollups: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rollup, err := scanRollup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client rollup: %w", err)
		}
		result[rollup.ClientID] = rollup
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate client rollups: %w", err)
	}
	return result, nil
}

// CommitBatch persists everything a validated batch produced in one
// transaction: new rollups, push-then-overwrite updates on existing rollups,
// the transaction records, their price projections, and the product set.
// The rollup update is restricted to rows whose stored date is still older
// than the incoming one, so a concurrent fresher write is never clobbered.
func (r *Repository) CommitBatch(ctx context.Context, commit domain.BatchCommit) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, rollup := range commit.NewRollups {
		if _, err := tx.Exec(ctx, `
			INSERT INTO client_rollups (
				client_id,
				kind,
				last_date,
				backup_dates,
				upload_id,
				backup_upload_ids
			) VALUES ($1, $2, $3, $4, $5, $6)
		`,
			rollup.ClientID,
			rollup.Kind,
			rollup.LastDate,
			rollup.BackupDates,
			rollup.UploadID,
			rollup.BackupUploadIDs,
		); err != nil {
			return fmt.Errorf("insert rollup for %q: %w", rollup.ClientID, err)
		}
	}

	for _, update := range commit.RollupUpdates {
		if _, err := tx.Exec(ctx, `
			UPDATE client_rollups
			SET
				backup_dates = array_append(backup_dates, last_date),
				backup_upload_ids = array_append(backup_upload_ids, upload_id),
				last_date = $3,
				upload_id = $4,
				updated_at = NOW()
			WHERE client_id = $1 AND kind = $2 AND last_date < $3
		`,
			update.ClientID,
			commit.Upload.Kind,
			update.Date,
			update.UploadID,
		); err != nil {
			return fmt.Errorf("update rollup for %q: %w", update.ClientID, err)
		}
	}

	for _, rec := range commit.Records {
		if _, err := tx.Exec(ctx, `
			INSERT INTO transactions (
				kind,
				serial_no,
				imei,
				in_date,
				out_date,
				in_client,
				out_client,
				product,
				in_price,
				out_price,
				rank,
				note,
				distance_log,
				confirmed,
				upload_id
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`,
			rec.Kind,
			rec.SerialNo,
			rec.IMEI,
			rec.InDate,
			rec.OutDate,
			rec.InClient,
			rec.OutClient,
			rec.Product,
			rec.InPrice,
			rec.OutPrice,
			rec.Rank,
			rec.Note,
			rec.DistanceLog,
			rec.Confirmed,
			rec.UploadID,
		); err != nil {
			return fmt.Errorf("insert transaction %q: %w", rec.Product, err)
		}
	}

	for _, price := range commit.Prices {
		if _, err := tx.Exec(ctx, `
			INSERT INTO price_records (
				kind,
				serial_no,
				imei,
				key_date,
				client,
				product,
				in_price,
				out_price,
				upload_id
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			price.Kind,
			price.SerialNo,
			price.IMEI,
			price.KeyDate,
			price.Client,
			price.Product,
			price.InPrice,
			price.OutPrice,
			price.UploadID,
		); err != nil {
			return fmt.Errorf("insert price record %q: %w", price.Product, err)
		}
	}

	for _, product := range commit.Products {
		if _, err := tx.Exec(ctx, `
			INSERT INTO products (name, kind, first_seen_upload_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (name, kind) DO NOTHING
		`, product, commit.Upload.Kind, commit.Upload.ID); err != nil {
			return fmt.Errorf("upsert product %q: %w", product, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch tx: %w", err)
	}
	return nil
}

// UndoUpload reverses one batch in a single transaction: the marker, its
// records and projections go away; rollups the batch created (empty backup
// stack) are deleted; rollups the batch overwrote are restored from the top
// of their backup stacks, shrinking both stacks by one.
func (r *Repository) UndoUpload(ctx context.Context, kind domain.Kind, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin undo tx: %w", err)
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, "DELETE FROM uploads WHERE id = $1 AND kind = $2", id, kind)
	if err != nil {
		return fmt.Errorf("delete upload marker %s: %w", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx,
		"DELETE FROM transactions WHERE kind = $1 AND upload_id = $2", kind, id,
	); err != nil {
		return fmt.Errorf("delete transactions of upload %s: %w", id, err)
	}
	if _, err := tx.Exec(ctx,
		"DELETE FROM price_records WHERE kind = $1 AND upload_id = $2", kind, id,
	); err != nil {
		return fmt.Errorf("delete price records of upload %s: %w", id, err)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM client_rollups
		WHERE kind = $1 AND upload_id = $2 AND cardinality(backup_dates) = 0
	`, kind, id); err != nil {
		return fmt.Errorf("delete fresh rollups of upload %s: %w", id, err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE client_rollups
		SET
			last_date = backup_dates[cardinality(backup_dates)],
			upload_id = backup_upload_ids[cardinality(backup_upload_ids)],
			backup_dates = backup_dates[1:cardinality(backup_dates)-1],
			backup_upload_ids = backup_upload_ids[1:cardinality(backup_upload_ids)-1],
			updated_at = NOW()
		WHERE kind = $1 AND upload_id = $2
	`, kind, id); err != nil {
		return fmt.Errorf("restore rollups of upload %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit undo tx: %w", err)
	}
	return nil
}

// DeleteOrphanUploads removes markers older than cutoff that own no
// transactions: batches that failed validation after marker creation or
// crashed before commit. Returns the number of markers removed.
func (r *Repository) DeleteOrphanUploads(ctx context.Context, cutoff time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `
		DELETE FROM uploads u
		WHERE u.created_at < $1
		AND NOT EXISTS (
			SELECT 1 FROM transactions t WHERE t.upload_id = u.id
		)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete orphan uploads: %w", err)
	}
	return cmd.RowsAffected(), nil
}
