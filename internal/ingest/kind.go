package ingest

import "resaleback/internal/domain"

// Field names the logical destination of a spreadsheet column. The normalizer
// classifies fields by name: anything containing "date" is a date, anything
// containing "price" is a price, and so on.
type Field string

const (
	FieldInDate      Field = "in_date"
	FieldOutDate     Field = "out_date"
	FieldInClient    Field = "in_client"
	FieldOutClient   Field = "out_client"
	FieldProduct     Field = "product"
	FieldSerialNo    Field = "serial_no"
	FieldIMEI        Field = "imei"
	FieldInPrice     Field = "in_price"
	FieldOutPrice    Field = "out_price"
	FieldRank        Field = "rank"
	FieldDistanceLog Field = "distance_log"
	FieldNote        Field = "note"
)

// Kind configures the pipeline for one transaction direction: which columns
// map to which fields, which date and counterparty drive the client rollups,
// and which fields the price projection mirrors. Sale and purchase share the
// whole pipeline; only this configuration differs.
type Kind struct {
	Name        domain.Kind
	Columns     map[int]Field // 1-based spreadsheet column index
	DateField   Field
	ClientField Field
	Required    []Field
	Projection  map[Field]bool
}

var Sale = Kind{
	Name: domain.KindSale,
	Columns: map[int]Field{
		1:  FieldInDate,
		2:  FieldInClient,
		3:  FieldOutDate,
		4:  FieldOutClient,
		7:  FieldProduct,
		8:  FieldSerialNo,
		9:  FieldIMEI,
		13: FieldInPrice,
		17: FieldOutPrice,
		20: FieldRank,
		21: FieldDistanceLog,
		28: FieldNote,
	},
	DateField:   FieldOutDate,
	ClientField: FieldOutClient,
	Required:    []Field{FieldInDate, FieldOutDate, FieldInClient, FieldOutClient, FieldProduct, FieldInPrice, FieldOutPrice},
	Projection: map[Field]bool{
		FieldSerialNo:  true,
		FieldIMEI:      true,
		FieldOutDate:   true,
		FieldOutClient: true,
		FieldProduct:   true,
		FieldInPrice:   true,
		FieldOutPrice:  true,
	},
}

var Purchase = Kind{
	Name: domain.KindPurchase,
	Columns: map[int]Field{
		1:  FieldInDate,
		3:  FieldInClient,
		6:  FieldProduct,
		7:  FieldSerialNo,
		8:  FieldIMEI,
		18: FieldInPrice,
		19: FieldNote,
	},
	DateField:   FieldInDate,
	ClientField: FieldInClient,
	Required:    []Field{FieldInDate, FieldInClient, FieldProduct, FieldInPrice},
	Projection: map[Field]bool{
		FieldSerialNo: true,
		FieldIMEI:     true,
		FieldInDate:   true,
		FieldInClient: true,
		FieldProduct:  true,
		FieldInPrice:  true,
	},
}
