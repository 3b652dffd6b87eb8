package repository

import (
	"database/sql"
	"errors"

	"resaleback/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const transactionColumns = `
	id,
	kind,
	serial_no,
	imei,
	in_date,
	out_date,
	in_client,
	out_client,
	product,
	in_price::double precision,
	out_price::double precision,
	rank,
	note,
	distance_log,
	confirmed,
	upload_id,
	created_at
`

func scanTransaction(row pgx.Row) (domain.Transaction, error) {
	var (
		t           domain.Transaction
		serialNo    sql.NullString
		imei        sql.NullString
		outDate     sql.NullString
		outClient   sql.NullString
		outPrice    sql.NullFloat64
		rank        sql.NullInt32
		note        sql.NullString
		distanceLog sql.NullString
	)
	if err := row.Scan(
		&t.ID,
		&t.Kind,
		&serialNo,
		&imei,
		&t.InDate,
		&outDate,
		&t.InClient,
		&outClient,
		&t.Product,
		&t.InPrice,
		&outPrice,
		&rank,
		&note,
		&distanceLog,
		&t.Confirmed,
		&t.UploadID,
		&t.CreatedAt,
	); err != nil {
		return domain.Transaction{}, err
	}
	t.SerialNo = nullString(serialNo)
	t.IMEI = nullString(imei)
	t.OutDate = nullString(outDate)
	t.OutClient = nullString(outClient)
	t.Note = nullString(note)
	t.DistanceLog = nullString(distanceLog)
	if outPrice.Valid {
		value := outPrice.Float64
		t.OutPrice = &value
	}
	if rank.Valid {
		value := int(rank.Int32)
		t.Rank = &value
	}
	return t, nil
}

const rollupColumns = `
	client_id,
	kind,
	last_date,
	backup_dates,
	upload_id,
	backup_upload_ids,
	note,
	manager,
	updated_at
`

func scanRollup(row pgx.Row) (domain.ClientRollup, error) {
	var (
		r       domain.ClientRollup
		note    sql.NullString
		manager sql.NullString
	)
	if err := row.Scan(
		&r.ClientID,
		&r.Kind,
		&r.LastDate,
		&r.BackupDates,
		&r.UploadID,
		&r.BackupUploadIDs,
		&note,
		&manager,
		&r.UpdatedAt,
	); err != nil {
		return domain.ClientRollup{}, err
	}
	r.Note = nullString(note)
	r.Manager = nullString(manager)
	return r, nil
}

func nullString(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}

func normalizeLength(length int) int {
	if length <= 0 {
		return 20
	}
	if length > 1000 {
		return 1000
	}
	return length
}

func normalizePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}
