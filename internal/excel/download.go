package excel

import (
	"bytes"
	"fmt"

	"resaleback/internal/domain"

	"github.com/xuri/excelize/v2"
)

type downloadColumn struct {
	header string
	value  func(domain.Transaction) any
}

var saleColumns = []downloadColumn{
	{"in date", func(t domain.Transaction) any { return t.InDate }},
	{"in client", func(t domain.Transaction) any { return t.InClient }},
	{"out date", func(t domain.Transaction) any { return deref(t.OutDate) }},
	{"out client", func(t domain.Transaction) any { return deref(t.OutClient) }},
	{"product", func(t domain.Transaction) any { return t.Product }},
	{"serial no", func(t domain.Transaction) any { return deref(t.SerialNo) }},
	{"IMEI", func(t domain.Transaction) any { return deref(t.IMEI) }},
	{"in price", func(t domain.Transaction) any { return t.InPrice }},
	{"out price", func(t domain.Transaction) any { return derefFloat(t.OutPrice) }},
	{"grade", func(t domain.Transaction) any { return rankCode(t.Rank) }},
	{"deduction", func(t domain.Transaction) any { return deref(t.DistanceLog) }},
	{"note", func(t domain.Transaction) any { return deref(t.Note) }},
}

var purchaseColumns = []downloadColumn{
	{"in date", func(t domain.Transaction) any { return t.InDate }},
	{"in client", func(t domain.Transaction) any { return t.InClient }},
	{"product", func(t domain.Transaction) any { return t.Product }},
	{"serial no", func(t domain.Transaction) any { return deref(t.SerialNo) }},
	{"IMEI", func(t domain.Transaction) any { return deref(t.IMEI) }},
	{"in price", func(t domain.Transaction) any { return t.InPrice }},
	{"note", func(t domain.Transaction) any { return deref(t.Note) }},
}

// WriteTransactions serializes records back into a single-sheet workbook with
// the fixed column layout for the kind, grade ordinals rendered as codes.
func WriteTransactions(kind domain.Kind, records []domain.Transaction) ([]byte, error) {
	columns := saleColumns
	if kind == domain.KindPurchase {
		columns = purchaseColumns
	}

	file := excelize.NewFile()
	defer file.Close()
	sheet := file.GetSheetName(0)

	header := make([]any, len(columns))
	for i, col := range columns {
		header[i] = col.header
	}
	if err := file.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}

	for i, rec := range records {
		cells := make([]any, len(columns))
		for j, col := range columns {
			cells[j] = col.value(rec)
		}
		start, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("row coordinates: %w", err)
		}
		if err := file.SetSheetRow(sheet, start, &cells); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func deref(value *string) any {
	if value == nil {
		return ""
	}
	return *value
}

func derefFloat(value *float64) any {
	if value == nil {
		return ""
	}
	return *value
}

func rankCode(rank *int) string {
	if rank == nil {
		return ""
	}
	return domain.RankCode(*rank)
}
