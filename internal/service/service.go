package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"resaleback/internal/datefmt"
	"resaleback/internal/domain"
	"resaleback/internal/excel"
	"resaleback/internal/ingest"
	"resaleback/internal/repository"
)

type Service struct {
	repo *repository.Repository
	ing  *ingest.Ingestor
}

func New(repo *repository.Repository) *Service {
	return &Service{repo: repo, ing: ingest.New(repo)}
}

// Upload ingests one spooled workbook. The temp file is consumed: it is
// removed before Upload returns, success or not.
func (s *Service) Upload(ctx context.Context, kind ingest.Kind, tempPath string) (domain.UploadRecord, error) {
	sheet, err := excel.OpenSheet(tempPath)
	if err != nil {
		if rmErr := os.Remove(tempPath); rmErr != nil && !os.IsNotExist(rmErr) {
			return domain.UploadRecord{}, fmt.Errorf("remove upload temp file: %w", rmErr)
		}
		return domain.UploadRecord{}, domain.BadRequestf("the file is not a readable xlsx workbook")
	}
	defer sheet.Close()

	return s.ing.Run(ctx, kind, sheet, tempPath)
}

// Undo reverses one batch. Batches must be undone newest first.
func (s *Service) Undo(ctx context.Context, kind ingest.Kind, uploadID string) error {
	return s.ing.Undo(ctx, kind, uploadID)
}

func (s *Service) ListTransactions(ctx context.Context, kind ingest.Kind, filter repository.TransactionListFilter) (domain.TransactionPage, error) {
	return s.repo.ListTransactions(ctx, kind.Name, filter)
}

// Download re-serializes the selected records into a workbook with the
// kind's fixed column layout.
func (s *Service) Download(ctx context.Context, kind ingest.Kind, ids []int64) ([]byte, error) {
	if len(ids) == 0 {
		return nil, domain.BadRequestf("at least one record id is required")
	}
	records, err := s.repo.GetTransactionsByIDs(ctx, kind.Name, ids)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, repository.ErrNotFound
	}
	return excel.WriteTransactions(kind.Name, records)
}

func (s *Service) ListUploads(ctx context.Context, kind ingest.Kind) ([]domain.UploadRecord, error) {
	return s.repo.ListUploads(ctx, kind.Name)
}

func (s *Service) ListClients(ctx context.Context, kind ingest.Kind, keyword string, page, length int) (domain.ClientPage, error) {
	return s.repo.ListClients(ctx, kind.Name, keyword, page, length)
}

func (s *Service) UpdateClient(ctx context.Context, kind ingest.Kind, clientID string, note, manager *string) error {
	return s.repo.UpdateClient(ctx, kind.Name, clientID, note, manager)
}

func (s *Service) Reset(ctx context.Context, kind ingest.Kind) error {
	return s.repo.Reset(ctx, kind.Name)
}

// DashboardSummary pairs the running month's totals with today's.
type DashboardSummary struct {
	Month domain.PeriodSummary `json:"month"`
	Today domain.PeriodSummary `json:"today"`
}

func (s *Service) Summary(ctx context.Context, kind ingest.Kind) (DashboardSummary, error) {
	now := time.Now()

	month, err := s.repo.PeriodSummary(ctx, kind.Name, datefmt.StartOfMonth(now), datefmt.EndOfMonth(now))
	if err != nil {
		return DashboardSummary{}, err
	}
	today, err := s.repo.PeriodSummary(ctx, kind.Name, datefmt.StartOfDay(now), datefmt.EndOfDay(now))
	if err != nil {
		return DashboardSummary{}, err
	}
	return DashboardSummary{Month: month, Today: today}, nil
}

// DashboardTop carries the product and counterparty rankings for one window.
type DashboardTop struct {
	Products []domain.TopEntry `json:"products"`
	Clients  []domain.TopEntry `json:"clients"`
}

func (s *Service) Top(ctx context.Context, kind ingest.Kind, from, to string, limit int) (DashboardTop, error) {
	now := time.Now()
	if from == "" {
		from = datefmt.StartOfMonth(now)
	}
	if to == "" {
		to = datefmt.EndOfMonth(now)
	}

	products, err := s.repo.TopProducts(ctx, kind.Name, from, to, limit)
	if err != nil {
		return DashboardTop{}, err
	}
	clients, err := s.repo.TopClients(ctx, kind.Name, from, to, limit)
	if err != nil {
		return DashboardTop{}, err
	}
	return DashboardTop{Products: products, Clients: clients}, nil
}

// Visits lists counterparties least recently seen first, with each one's
// volume for the running month.
func (s *Service) Visits(ctx context.Context, kind ingest.Kind, limit int) ([]domain.ClientVisit, error) {
	return s.repo.ClientVisits(ctx, kind.Name, datefmt.StartOfMonth(time.Now()), limit)
}

// CleanupOrphanUploads drops markers older than a day that never got records:
// leftovers of batches that failed after marker creation.
func (s *Service) CleanupOrphanUploads(ctx context.Context) (int64, error) {
	return s.repo.DeleteOrphanUploads(ctx, time.Now().Add(-24*time.Hour))
}
