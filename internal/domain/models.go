package domain

import "time"

// Kind discriminates the two transaction directions. Sale rows carry both
// the acquisition and the resale side; purchase rows only the acquisition.
type Kind string

const (
	KindSale     Kind = "sale"
	KindPurchase Kind = "purchase"
)

func (k Kind) Valid() bool {
	return k == KindSale || k == KindPurchase
}

// Transaction is one row of an uploaded spreadsheet. Identity is the serial
// number, the IMEI, or both; at least one must be present.
type Transaction struct {
	ID          int64    `json:"id"`
	Kind        Kind     `json:"kind"`
	SerialNo    *string  `json:"serial_no,omitempty"`
	IMEI        *string  `json:"imei,omitempty"`
	InDate      string   `json:"in_date"`
	OutDate     *string  `json:"out_date,omitempty"`
	InClient    string   `json:"in_client"`
	OutClient   *string  `json:"out_client,omitempty"`
	Product     string   `json:"product"`
	InPrice     float64  `json:"in_price"`
	OutPrice    *float64 `json:"out_price,omitempty"`
	Rank        *int     `json:"rank,omitempty"`
	Note        *string  `json:"note,omitempty"`
	DistanceLog *string  `json:"distance_log,omitempty"`
	Confirmed   bool     `json:"confirmed"`
	UploadID    string   `json:"upload_id"`

	CreatedAt time.Time `json:"created_at"`
}

// KeyDate is the date that identifies the transaction for duplicate checks
// and rollups: the resale date for sales, the acquisition date otherwise.
func (t Transaction) KeyDate() string {
	if t.OutDate != nil && *t.OutDate != "" {
		return *t.OutDate
	}
	return t.InDate
}

// PriceRecord mirrors the price-bearing subset of a Transaction for the
// dashboard read side. It never exists without its parent record.
type PriceRecord struct {
	ID       int64    `json:"id"`
	Kind     Kind     `json:"kind"`
	SerialNo *string  `json:"serial_no,omitempty"`
	IMEI     *string  `json:"imei,omitempty"`
	KeyDate  string   `json:"key_date"`
	Client   string   `json:"client"`
	Product  string   `json:"product"`
	InPrice  float64  `json:"in_price"`
	OutPrice *float64 `json:"out_price,omitempty"`
	UploadID string   `json:"upload_id"`
}

// ClientRollup is the per-counterparty summary row. BackupDates and
// BackupUploadIDs are parallel stacks (push/pop at the tail) recording the
// value that was current before each overwriting batch; they always have
// equal length.
type ClientRollup struct {
	ClientID        string   `json:"client_id"`
	Kind            Kind     `json:"kind"`
	LastDate        string   `json:"last_date"`
	BackupDates     []string `json:"backup_dates"`
	UploadID        string   `json:"upload_id"`
	BackupUploadIDs []string `json:"backup_upload_ids"`
	Note            *string  `json:"note,omitempty"`
	Manager         *string  `json:"manager,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// RollupUpdate is a computed push-then-overwrite mutation for an existing
// rollup whose stored date is strictly older than Date.
type RollupUpdate struct {
	ClientID string
	Date     string
	UploadID string
}

// UploadRecord marks one ingestion batch. It is created before any row is
// parsed so its id can stamp every record the batch produces, and it is the
// key for undoing the batch.
type UploadRecord struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// DateIMEI is the composite duplicate key for records that carry an IMEI.
type DateIMEI struct {
	Date string
	IMEI string
}

// BatchCommit is everything a validated batch persists, applied as one unit.
type BatchCommit struct {
	Upload        UploadRecord
	Records       []Transaction
	Prices        []PriceRecord
	Products      []string
	NewRollups    []ClientRollup
	RollupUpdates []RollupUpdate
}

// TransactionPage is the list envelope shared by the paginated endpoints.
type TransactionPage struct {
	TotalCount int           `json:"total_count"`
	HasNext    bool          `json:"has_next"`
	Data       []Transaction `json:"data"`
}

type ClientPage struct {
	TotalCount int            `json:"total_count"`
	HasNext    bool           `json:"has_next"`
	Data       []ClientRollup `json:"data"`
}

// PeriodSummary aggregates one time window of price records.
type PeriodSummary struct {
	Count       int     `json:"count"`
	AccInPrice  float64 `json:"acc_in_price"`
	AccOutPrice float64 `json:"acc_out_price"`
	AccMargin   float64 `json:"acc_margin"`
}

// TopEntry is one row of a top-products or top-clients ranking.
type TopEntry struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	AccPrice   float64 `json:"acc_price"`
	AccMargin  float64 `json:"acc_margin"`
	MarginRate float64 `json:"margin_rate"`
}

// ClientVisit pairs a rollup with its recent transaction volume, ordered by
// how long ago the counterparty was last seen.
type ClientVisit struct {
	ClientID string  `json:"client_id"`
	LastDate string  `json:"last_date"`
	Note     *string `json:"note,omitempty"`
	Manager  *string `json:"manager,omitempty"`
	Count    int     `json:"count"`
	AccPrice float64 `json:"acc_price"`
}
