package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"resaleback/internal/domain"
)

type sliceSource struct {
	rows []Row
	pos  int
}

func (s *sliceSource) Next() bool {
	if s.pos >= len(s.rows) {
		return false
	}
	s.pos++
	return true
}

func (s *sliceSource) Row() Row   { return s.rows[s.pos-1] }
func (s *sliceSource) Err() error { return nil }

type fakeStore struct {
	created []domain.UploadRecord
	deleted []string
	stored  []domain.Transaction
	rollups map[string]domain.ClientRollup
	commits []domain.BatchCommit
	undone  []string

	commitErr error
}

func (f *fakeStore) CreateUpload(_ context.Context, kind domain.Kind) (domain.UploadRecord, error) {
	record := domain.UploadRecord{ID: "upload-1", Kind: kind}
	f.created = append(f.created, record)
	return record, nil
}

func (f *fakeStore) DeleteUpload(_ context.Context, _ domain.Kind, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStore) FindDuplicateTransactions(_ context.Context, _ domain.Kind, serials []string, pairs []domain.DateIMEI) ([]domain.Transaction, error) {
	var matches []domain.Transaction
	for _, rec := range f.stored {
		for _, serial := range serials {
			if rec.SerialNo != nil && *rec.SerialNo == serial {
				matches = append(matches, rec)
			}
		}
		for _, pair := range pairs {
			if rec.IMEI != nil && *rec.IMEI == pair.IMEI && rec.KeyDate() == pair.Date {
				matches = append(matches, rec)
			}
		}
	}
	return matches, nil
}

func (f *fakeStore) FindRollups(_ context.Context, _ domain.Kind, clientIDs []string) (map[string]domain.ClientRollup, error) {
	result := make(map[string]domain.ClientRollup)
	for _, id := range clientIDs {
		if rollup, ok := f.rollups[id]; ok {
			result[id] = rollup
		}
	}
	return result, nil
}

func (f *fakeStore) CommitBatch(_ context.Context, commit domain.BatchCommit) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.commits = append(f.commits, commit)
	return nil
}

func (f *fakeStore) UndoUpload(_ context.Context, _ domain.Kind, id string) error {
	f.undone = append(f.undone, id)
	return nil
}

func headerRow(index int) Row {
	return Row{Index: index, Cells: []string{"date", "client", "product"}}
}

func purchaseRow(index int, date, client, product, serial, imei, price string) Row {
	cells := make([]string, 19)
	cells[0] = date
	cells[2] = client
	cells[5] = product
	cells[6] = serial
	cells[7] = imei
	cells[17] = price
	return Row{Index: index, Cells: cells}
}

func saleRow(index int, inDate, inClient, outDate, outClient, product, serial, imei, inPrice, outPrice, rank string) Row {
	cells := make([]string, 28)
	cells[0] = inDate
	cells[1] = inClient
	cells[2] = outDate
	cells[3] = outClient
	cells[6] = product
	cells[7] = serial
	cells[8] = imei
	cells[12] = inPrice
	cells[16] = outPrice
	cells[19] = rank
	return Row{Index: index, Cells: cells}
}

func run(t *testing.T, store *fakeStore, kind Kind, rows []Row) (domain.UploadRecord, error) {
	t.Helper()
	return New(store).Run(context.Background(), kind, &sliceSource{rows: rows}, "")
}

func TestRunMapsPurchaseBatch(t *testing.T) {
	store := &fakeStore{}
	upload, err := run(t, store, Purchase, []Row{
		headerRow(1),
		purchaseRow(2, "2024-01-05", "acme", "phone x", "S1", "", "1000"),
		{Index: 3, Cells: []string{"", "", ""}}, // blank, skipped
		purchaseRow(4, "2024-01-03", "acme", "phone y", "S2", "111", "2,000"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if upload.ID != "upload-1" {
		t.Fatalf("upload id = %q", upload.ID)
	}

	if len(store.commits) != 1 {
		t.Fatalf("commits = %d, want 1", len(store.commits))
	}
	commit := store.commits[0]

	if len(commit.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(commit.Records))
	}
	first := commit.Records[0]
	if first.InDate != "20240105000000" || first.InClient != "acme" || first.Product != "phone x" {
		t.Errorf("first record mapped wrong: %+v", first)
	}
	if first.SerialNo == nil || *first.SerialNo != "S1" {
		t.Errorf("first record serial = %v", first.SerialNo)
	}
	if first.InPrice != 1000 {
		t.Errorf("first record in price = %v", first.InPrice)
	}
	if first.UploadID != "upload-1" {
		t.Errorf("first record upload id = %q", first.UploadID)
	}
	if commit.Records[1].InPrice != 2000 {
		t.Errorf("comma-grouped price = %v, want 2000", commit.Records[1].InPrice)
	}

	if len(commit.Prices) != 2 {
		t.Fatalf("prices = %d, want 2", len(commit.Prices))
	}
	price := commit.Prices[0]
	if price.KeyDate != "20240105000000" || price.Client != "acme" || price.InPrice != 1000 {
		t.Errorf("price projection mapped wrong: %+v", price)
	}
	if price.SerialNo == nil || *price.SerialNo != "S1" || price.UploadID != "upload-1" {
		t.Errorf("projection must mirror the record's identity: %+v", price)
	}
	second := commit.Prices[1]
	if second.IMEI == nil || *second.IMEI != "111" {
		t.Errorf("projection must mirror the IMEI: %+v", second)
	}

	wantProducts := []string{"phone x", "phone y"}
	if len(commit.Products) != len(wantProducts) {
		t.Fatalf("products = %v", commit.Products)
	}
	for i, name := range wantProducts {
		if commit.Products[i] != name {
			t.Errorf("products[%d] = %q, want %q", i, commit.Products[i], name)
		}
	}

	// Both rows share the counterparty; the rollup keeps the later date.
	if len(commit.NewRollups) != 1 {
		t.Fatalf("new rollups = %d, want 1", len(commit.NewRollups))
	}
	rollup := commit.NewRollups[0]
	if rollup.ClientID != "acme" || rollup.LastDate != "20240105000000" {
		t.Errorf("rollup = %+v", rollup)
	}
	if len(rollup.BackupDates) != 0 || len(rollup.BackupUploadIDs) != 0 {
		t.Errorf("fresh rollup must have empty backup stacks: %+v", rollup)
	}
	if len(commit.RollupUpdates) != 0 {
		t.Errorf("rollup updates = %v, want none", commit.RollupUpdates)
	}
}

func TestRunMapsSaleRow(t *testing.T) {
	store := &fakeStore{}
	_, err := run(t, store, Sale, []Row{
		headerRow(1),
		saleRow(2, "2024-01-02", "supplier", "2024-01-09", "buyer", "phone z", "S9", "222", "800", "1100", "scratched A-"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	commit := store.commits[0]
	rec := commit.Records[0]
	if rec.OutDate == nil || *rec.OutDate != "20240109000000" {
		t.Errorf("out date = %v", rec.OutDate)
	}
	if rec.OutClient == nil || *rec.OutClient != "buyer" {
		t.Errorf("out client = %v", rec.OutClient)
	}
	if rec.OutPrice == nil || *rec.OutPrice != 1100 {
		t.Errorf("out price = %v", rec.OutPrice)
	}
	if rec.Rank == nil || *rec.Rank != 2 {
		t.Errorf("rank = %v, want ordinal for A-", rec.Rank)
	}
	if rec.KeyDate() != "20240109000000" {
		t.Errorf("key date = %q, want the resale date", rec.KeyDate())
	}

	// Sale rollups follow the resale side.
	price := commit.Prices[0]
	if price.KeyDate != "20240109000000" || price.Client != "buyer" {
		t.Errorf("price projection = %+v", price)
	}
	rollup := commit.NewRollups[0]
	if rollup.ClientID != "buyer" || rollup.LastDate != "20240109000000" {
		t.Errorf("rollup = %+v", rollup)
	}
}

func TestRunRejectsEmptyDateCell(t *testing.T) {
	store := &fakeStore{}
	_, err := run(t, store, Purchase, []Row{
		headerRow(1),
		purchaseRow(2, "2024-01-05", "acme", "phone x", "S1", "", "1000"),
		purchaseRow(3, "", "acme", "phone y", "S2", "", "1000"),
	})
	if err == nil {
		t.Fatal("expected an error for the empty date cell")
	}
	if !domain.IsBadRequest(err) {
		t.Fatalf("error is not a bad request: %v", err)
	}
	if !strings.Contains(err.Error(), "A3") {
		t.Errorf("error %q does not name cell A3", err)
	}
	if len(store.commits) != 0 {
		t.Error("nothing may be committed after a rejected batch")
	}
	if len(store.deleted) != 1 || store.deleted[0] != "upload-1" {
		t.Errorf("upload marker not cleaned up: %v", store.deleted)
	}
}

func TestRunRejectsEmptyFile(t *testing.T) {
	store := &fakeStore{}
	_, err := run(t, store, Purchase, []Row{headerRow(1)})
	if err == nil || !domain.IsBadRequest(err) {
		t.Fatalf("expected a bad request for a header-only file, got %v", err)
	}
	if len(store.deleted) != 1 {
		t.Errorf("upload marker not cleaned up: %v", store.deleted)
	}
}

func TestRunRejectsDuplicateSerialsInBatch(t *testing.T) {
	store := &fakeStore{}
	_, err := run(t, store, Purchase, []Row{
		headerRow(1),
		purchaseRow(2, "2024-01-05", "acme", "phone x", "S1", "", "1000"),
		purchaseRow(3, "2024-01-06", "acme", "phone y", "S1", "", "1000"),
	})
	if err == nil || !strings.Contains(err.Error(), "S1") {
		t.Fatalf("expected the duplicate serial to be named, got %v", err)
	}
	if len(store.commits) != 0 {
		t.Error("nothing may be committed after a rejected batch")
	}
	if len(store.deleted) != 1 {
		t.Errorf("upload marker not cleaned up: %v", store.deleted)
	}
}

func TestRunRejectsStoredDuplicates(t *testing.T) {
	serial := "S1"
	store := &fakeStore{stored: []domain.Transaction{
		{Product: "phone old", SerialNo: &serial},
	}}
	_, err := run(t, store, Purchase, []Row{
		headerRow(1),
		purchaseRow(2, "2024-01-05", "acme", "phone x", "S1", "", "1000"),
	})
	if err == nil || !domain.IsBadRequest(err) {
		t.Fatalf("expected a bad request for a cross-batch duplicate, got %v", err)
	}
	if !strings.Contains(err.Error(), "phone old (S1)") {
		t.Errorf("error %q does not name the stored record", err)
	}
	if len(store.deleted) != 1 {
		t.Errorf("upload marker not cleaned up: %v", store.deleted)
	}
}

func TestRunPushesRollupOnNewerDate(t *testing.T) {
	store := &fakeStore{rollups: map[string]domain.ClientRollup{
		"acme": {
			ClientID:        "acme",
			Kind:            domain.KindPurchase,
			LastDate:        "20240101000000",
			BackupDates:     []string{},
			UploadID:        "upload-0",
			BackupUploadIDs: []string{},
		},
	}}
	_, err := run(t, store, Purchase, []Row{
		headerRow(1),
		purchaseRow(2, "2024-01-05", "acme", "phone x", "S1", "", "1000"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	commit := store.commits[0]
	if len(commit.NewRollups) != 0 {
		t.Errorf("existing counterparty must not get a fresh rollup: %v", commit.NewRollups)
	}
	if len(commit.RollupUpdates) != 1 {
		t.Fatalf("rollup updates = %d, want 1", len(commit.RollupUpdates))
	}
	update := commit.RollupUpdates[0]
	if update.ClientID != "acme" || update.Date != "20240105000000" || update.UploadID != "upload-1" {
		t.Errorf("rollup update = %+v", update)
	}
}

func TestRunLeavesRollupOnSameOrOlderDate(t *testing.T) {
	for _, lastDate := range []string{"20240105000000", "20240201000000"} {
		store := &fakeStore{rollups: map[string]domain.ClientRollup{
			"acme": {ClientID: "acme", Kind: domain.KindPurchase, LastDate: lastDate},
		}}
		_, err := run(t, store, Purchase, []Row{
			headerRow(1),
			purchaseRow(2, "2024-01-05", "acme", "phone x", "S1", "", "1000"),
		})
		if err != nil {
			t.Fatalf("Run with stored date %s: %v", lastDate, err)
		}

		commit := store.commits[0]
		if len(commit.NewRollups) != 0 || len(commit.RollupUpdates) != 0 {
			t.Errorf("stored date %s must leave the rollup alone: inserts=%v updates=%v",
				lastDate, commit.NewRollups, commit.RollupUpdates)
		}
	}
}

func TestRunRejectsRowsWithoutIdentity(t *testing.T) {
	store := &fakeStore{}
	_, err := run(t, store, Purchase, []Row{
		headerRow(1),
		purchaseRow(2, "2024-01-05", "acme", "phone x", "", "", "1000"),
	})
	if err == nil || !strings.Contains(err.Error(), "phone x") {
		t.Fatalf("expected the identity check to name the product, got %v", err)
	}
}

func TestRunPropagatesCommitFailure(t *testing.T) {
	store := &fakeStore{commitErr: errors.New("connection lost")}
	_, err := run(t, store, Purchase, []Row{
		headerRow(1),
		purchaseRow(2, "2024-01-05", "acme", "phone x", "S1", "", "1000"),
	})
	if err == nil || domain.IsBadRequest(err) {
		t.Fatalf("commit failures must surface as internal errors, got %v", err)
	}
	if len(store.deleted) != 1 {
		t.Errorf("upload marker not cleaned up after commit failure: %v", store.deleted)
	}
}

func TestUndoRequiresUploadID(t *testing.T) {
	store := &fakeStore{}
	if err := New(store).Undo(context.Background(), Purchase, "  "); err == nil || !domain.IsBadRequest(err) {
		t.Fatalf("expected a bad request for a blank upload id, got %v", err)
	}
	if len(store.undone) != 0 {
		t.Error("store must not be touched for a blank upload id")
	}
}

func TestUndoDelegatesToStore(t *testing.T) {
	store := &fakeStore{}
	if err := New(store).Undo(context.Background(), Sale, "upload-7"); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if len(store.undone) != 1 || store.undone[0] != "upload-7" {
		t.Errorf("undone = %v", store.undone)
	}
}
