package ingest

import (
	"strconv"
	"strings"

	"resaleback/internal/datefmt"
	"resaleback/internal/domain"

	"github.com/xuri/excelize/v2"
)

// normalizeDate turns a raw date cell into the sortable YYYYMMDDHHmmss form.
// Empty and unparsable cells fail with the cell position so the operator can
// fix the spreadsheet directly.
func normalizeDate(raw, pos string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", domain.BadRequestf("cell %s must contain a valid date", pos)
	}
	value, err := datefmt.Normalize(raw)
	if err != nil {
		return "", domain.BadRequestf("cell %s must contain a valid date, got %q", pos, strings.TrimSpace(raw))
	}
	return value, nil
}

func normalizeProduct(raw, pos string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", domain.BadRequestf("cell %s is missing the product name", pos)
	}
	return value, nil
}

func normalizeRank(raw, pos string) (int, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, domain.BadRequestf(
			"cell %s must contain a grade between %s and %s, e.g. %q",
			pos, domain.Ranks[0], domain.Ranks[len(domain.Ranks)-1], "scratched A-",
		)
	}
	rank, ok := domain.ExtractRank(value)
	if !ok {
		return 0, domain.BadRequestf(
			"cell %s must contain a grade between %s and %s, got %q",
			pos, domain.Ranks[0], domain.Ranks[len(domain.Ranks)-1], value,
		)
	}
	return rank, nil
}

func normalizePrice(raw, pos string) (float64, error) {
	value := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if value == "" {
		return 0, domain.BadRequestf("cell %s must contain a numeric price", pos)
	}
	price, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, domain.BadRequestf("cell %s must contain a numeric price, got %q", pos, strings.TrimSpace(raw))
	}
	return price, nil
}

// cellName renders a (column, row) pair as a spreadsheet position like "C12"
// for error messages.
func cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "?"
	}
	return name
}
