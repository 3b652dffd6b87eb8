package ingest

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"resaleback/internal/datefmt"
	"resaleback/internal/domain"
)

// Store is the persistence surface the pipeline needs. The pgx repository
// implements it; tests substitute a fake.
type Store interface {
	CreateUpload(ctx context.Context, kind domain.Kind) (domain.UploadRecord, error)
	DeleteUpload(ctx context.Context, kind domain.Kind, id string) error
	// FindDuplicateTransactions returns already-persisted records (from the
	// transaction store or its price-projection twin) whose serial number is
	// in serials or whose (key date, IMEI) pair is in pairs.
	FindDuplicateTransactions(ctx context.Context, kind domain.Kind, serials []string, pairs []domain.DateIMEI) ([]domain.Transaction, error)
	FindRollups(ctx context.Context, kind domain.Kind, clientIDs []string) (map[string]domain.ClientRollup, error)
	CommitBatch(ctx context.Context, commit domain.BatchCommit) error
	UndoUpload(ctx context.Context, kind domain.Kind, id string) error
}

// Ingestor drives one upload end to end: marker creation, row mapping,
// batch validation, cross-batch duplicate checks, rollup reconciliation and
// the final commit. Processing is strictly sequential; concurrent uploads
// are only guarded by the store's own uniqueness enforcement.
type Ingestor struct {
	store Store
}

func New(store Store) *Ingestor {
	return &Ingestor{store: store}
}

// Run ingests one workbook. tempPath, if non-empty, is the spooled upload
// file and is removed before returning, success or not. On any validation
// failure nothing is persisted and the fresh upload marker is deleted
// best-effort.
func (ing *Ingestor) Run(ctx context.Context, kind Kind, src RowSource, tempPath string) (rec domain.UploadRecord, err error) {
	upload, err := ing.store.CreateUpload(ctx, kind.Name)
	if err != nil {
		removeTempFile(tempPath)
		return domain.UploadRecord{}, fmt.Errorf("create upload marker: %w", err)
	}

	defer func() {
		removeTempFile(tempPath)
		if err != nil {
			if delErr := ing.store.DeleteUpload(ctx, kind.Name, upload.ID); delErr != nil {
				log.Printf("cleanup of upload marker %s failed: %v", upload.ID, delErr)
			}
		}
	}()

	b := newBatch(kind, upload.ID)
	if err = readRows(b, src); err != nil {
		return domain.UploadRecord{}, err
	}
	if len(b.records) == 0 {
		return domain.UploadRecord{}, domain.BadRequestf("no usable data found in the file")
	}

	if err = validateBatch(b.records); err != nil {
		return domain.UploadRecord{}, err
	}
	if err = ing.checkStoredDuplicates(ctx, b); err != nil {
		return domain.UploadRecord{}, err
	}

	newRollups, updates, err := ing.reconcileRollups(ctx, b, upload)
	if err != nil {
		return domain.UploadRecord{}, err
	}

	if err = ing.store.CommitBatch(ctx, domain.BatchCommit{
		Upload:        upload,
		Records:       b.records,
		Prices:        b.prices,
		Products:      sortedKeys(b.products),
		NewRollups:    newRollups,
		RollupUpdates: updates,
	}); err != nil {
		return domain.UploadRecord{}, fmt.Errorf("commit batch %s: %w", upload.ID, err)
	}

	return upload, nil
}

// Undo reverses exactly one batch: its records and projections are deleted,
// rollups the batch created are removed, and rollups the batch overwrote are
// restored from the top of their backup stacks. Batches must be undone in
// reverse-chronological order.
func (ing *Ingestor) Undo(ctx context.Context, kind Kind, uploadID string) error {
	if strings.TrimSpace(uploadID) == "" {
		return domain.BadRequestf("upload id is required")
	}
	return ing.store.UndoUpload(ctx, kind.Name, uploadID)
}

// readRows streams the sheet through the batch accumulator. The first
// populated row is the header and is always skipped; rows with no values are
// ignored.
func readRows(b *batch, src RowSource) error {
	headerSeen := false
	for src.Next() {
		row := src.Row()
		if !row.hasValues() {
			continue
		}
		if !headerSeen {
			headerSeen = true
			continue
		}
		if err := b.addRow(row); err != nil {
			return err
		}
	}
	if err := src.Err(); err != nil {
		return fmt.Errorf("read workbook rows: %w", err)
	}
	return nil
}

// checkStoredDuplicates rejects the batch if any identity key collides with
// a record already persisted. When no row carries an IMEI only serial
// numbers are checked.
func (ing *Ingestor) checkStoredDuplicates(ctx context.Context, b *batch) error {
	var serials []string
	var pairs []domain.DateIMEI
	for _, rec := range b.records {
		if rec.SerialNo != nil {
			serials = append(serials, *rec.SerialNo)
		}
		if rec.IMEI != nil {
			pairs = append(pairs, domain.DateIMEI{Date: rec.KeyDate(), IMEI: *rec.IMEI})
		}
	}

	stored, err := ing.store.FindDuplicateTransactions(ctx, b.kind.Name, serials, pairs)
	if err != nil {
		return fmt.Errorf("check stored duplicates: %w", err)
	}
	if len(stored) == 0 {
		return nil
	}

	names := make([]string, 0, len(stored))
	for _, rec := range stored {
		name := rec.Product
		if rec.SerialNo != nil {
			name = fmt.Sprintf("%s (%s)", name, *rec.SerialNo)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return domain.BadRequestf(
		"already uploaded records share a serial number or a same-date IMEI with this file: %s",
		strings.Join(names, ", "),
	)
}

// reconcileRollups partitions the batch's counterparties into new and
// existing, building insert rows for the former and push-then-overwrite
// updates for existing rollups whose stored date is strictly older than the
// batch's latest date for that counterparty. Nothing is persisted here.
func (ing *Ingestor) reconcileRollups(ctx context.Context, b *batch, upload domain.UploadRecord) ([]domain.ClientRollup, []domain.RollupUpdate, error) {
	clientIDs := make([]string, 0, len(b.clientDates))
	for id := range b.clientDates {
		clientIDs = append(clientIDs, id)
	}
	sort.Strings(clientIDs)

	existing, err := ing.store.FindRollups(ctx, b.kind.Name, clientIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("load client rollups: %w", err)
	}

	var inserts []domain.ClientRollup
	var updates []domain.RollupUpdate
	for _, id := range clientIDs {
		date := b.clientDates[id]
		current, ok := existing[id]
		if !ok {
			inserts = append(inserts, domain.ClientRollup{
				ClientID:        id,
				Kind:            b.kind.Name,
				LastDate:        date,
				BackupDates:     []string{},
				UploadID:        upload.ID,
				BackupUploadIDs: []string{},
			})
			continue
		}
		if datefmt.After(date, current.LastDate) {
			updates = append(updates, domain.RollupUpdate{
				ClientID: id,
				Date:     date,
				UploadID: upload.ID,
			})
		}
	}
	return inserts, updates, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func removeTempFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("remove upload temp file %s: %v", path, err)
	}
}
