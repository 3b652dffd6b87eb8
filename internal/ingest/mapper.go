package ingest

import (
	"sort"
	"strings"

	"resaleback/internal/datefmt"
	"resaleback/internal/domain"
)

// Row is one parsed spreadsheet row. Index is the 1-based sheet row number;
// Cells[i] holds the raw value of column i+1.
type Row struct {
	Index int
	Cells []string
}

func (r Row) hasValues() bool {
	for _, cell := range r.Cells {
		if strings.TrimSpace(cell) != "" {
			return true
		}
	}
	return false
}

func (r Row) cell(col int) string {
	if col < 1 || col > len(r.Cells) {
		return ""
	}
	return r.Cells[col-1]
}

// RowSource streams parsed rows from an uploaded workbook. The pipeline owns
// iteration; implementations own the file format.
type RowSource interface {
	Next() bool
	Row() Row
	Err() error
}

// batch is the accumulator state for one upload: mapped records, their price
// projections, the products seen, and the latest date per counterparty. It is
// scoped to a single pipeline invocation.
type batch struct {
	kind     Kind
	uploadID string

	records     []domain.Transaction
	prices      []domain.PriceRecord
	products    map[string]struct{}
	clientDates map[string]string

	mappedCols []int
}

func newBatch(kind Kind, uploadID string) *batch {
	cols := make([]int, 0, len(kind.Columns))
	for col := range kind.Columns {
		cols = append(cols, col)
	}
	sort.Ints(cols)
	return &batch{
		kind:        kind,
		uploadID:    uploadID,
		products:    make(map[string]struct{}),
		clientDates: make(map[string]string),
		mappedCols:  cols,
	}
}

// addRow maps one data row through the column table into a Transaction and
// its projection, validates the result, and folds the row's counterparty date
// into the per-batch rollup map.
func (b *batch) addRow(row Row) error {
	rec := domain.Transaction{Kind: b.kind.Name, UploadID: b.uploadID}
	price := domain.PriceRecord{Kind: b.kind.Name, UploadID: b.uploadID}

	for _, col := range b.mappedCols {
		field := b.kind.Columns[col]
		pos := cellName(col, row.Index)
		if err := b.applyCell(&rec, &price, field, row.cell(col), pos); err != nil {
			return err
		}
	}

	if err := b.validateRecord(&rec, row.Index); err != nil {
		return err
	}

	b.records = append(b.records, rec)
	b.prices = append(b.prices, price)

	client := b.fieldString(&rec, b.kind.ClientField)
	date := b.fieldString(&rec, b.kind.DateField)
	if existing, ok := b.clientDates[client]; !ok || datefmt.After(date, existing) {
		b.clientDates[client] = date
	}
	return nil
}

// applyCell normalizes one cell per its field's rules and assigns it onto the
// record, mirroring onto the projection where the projection schema declares
// the field. Optional fields with blank cells are skipped.
func (b *batch) applyCell(rec *domain.Transaction, price *domain.PriceRecord, field Field, raw, pos string) error {
	value := strings.TrimSpace(raw)
	name := string(field)
	mirror := b.kind.Projection[field]

	switch {
	case strings.Contains(name, "date"):
		normalized, err := normalizeDate(raw, pos)
		if err != nil {
			return err
		}
		if field == FieldInDate {
			rec.InDate = normalized
		} else {
			rec.OutDate = &normalized
		}
		if mirror && field == b.kind.DateField {
			price.KeyDate = normalized
		}

	case field == FieldProduct:
		product, err := normalizeProduct(raw, pos)
		if err != nil {
			return err
		}
		rec.Product = product
		b.products[product] = struct{}{}
		if mirror {
			price.Product = product
		}

	case field == FieldRank:
		rank, err := normalizeRank(raw, pos)
		if err != nil {
			return err
		}
		rec.Rank = &rank

	case strings.Contains(name, "price"):
		amount, err := normalizePrice(raw, pos)
		if err != nil {
			return err
		}
		if field == FieldInPrice {
			rec.InPrice = amount
			if mirror {
				price.InPrice = amount
			}
		} else {
			rec.OutPrice = &amount
			if mirror {
				price.OutPrice = &amount
			}
		}

	case field == FieldSerialNo:
		if value == "" {
			if b.isRequired(field) {
				return domain.BadRequestf("cell %s is missing the serial number", pos)
			}
			return nil
		}
		rec.SerialNo = &value
		if mirror {
			price.SerialNo = &value
		}

	case field == FieldIMEI:
		if value == "" {
			if b.isRequired(field) {
				return domain.BadRequestf("cell %s is missing the IMEI", pos)
			}
			return nil
		}
		rec.IMEI = &value
		if mirror {
			price.IMEI = &value
		}

	case field == FieldInClient:
		if value == "" {
			return nil
		}
		rec.InClient = value
		if mirror && field == b.kind.ClientField {
			price.Client = value
		}

	case field == FieldOutClient:
		if value == "" {
			return nil
		}
		rec.OutClient = &value
		if mirror && field == b.kind.ClientField {
			price.Client = value
		}

	case field == FieldNote:
		if value != "" {
			rec.Note = &value
		}

	case field == FieldDistanceLog:
		if value != "" {
			rec.DistanceLog = &value
		}
	}

	return nil
}

// validateRecord checks the assembled record as a whole: every field the kind
// declares required must have been assigned.
func (b *batch) validateRecord(rec *domain.Transaction, rowIndex int) error {
	for _, field := range b.kind.Required {
		if b.fieldString(rec, field) == "" && !b.fieldAssigned(rec, field) {
			return domain.BadRequestf("row %d is missing a value for %s", rowIndex, field)
		}
	}
	return nil
}

func (b *batch) isRequired(field Field) bool {
	for _, f := range b.kind.Required {
		if f == field {
			return true
		}
	}
	return false
}

func (b *batch) fieldString(rec *domain.Transaction, field Field) string {
	switch field {
	case FieldInDate:
		return rec.InDate
	case FieldOutDate:
		if rec.OutDate != nil {
			return *rec.OutDate
		}
	case FieldInClient:
		return rec.InClient
	case FieldOutClient:
		if rec.OutClient != nil {
			return *rec.OutClient
		}
	case FieldProduct:
		return rec.Product
	case FieldSerialNo:
		if rec.SerialNo != nil {
			return *rec.SerialNo
		}
	case FieldIMEI:
		if rec.IMEI != nil {
			return *rec.IMEI
		}
	}
	return ""
}

// fieldAssigned distinguishes "assigned a zero-ish value" from "never set"
// for the non-string fields the requiredness check covers.
func (b *batch) fieldAssigned(rec *domain.Transaction, field Field) bool {
	switch field {
	case FieldInPrice:
		return true // normalizePrice rejects blanks, so assignment implies presence
	case FieldOutPrice:
		return rec.OutPrice != nil
	case FieldRank:
		return rec.Rank != nil
	}
	return false
}
