package ingest

import (
	"sort"
	"strings"

	"resaleback/internal/domain"
)

// validateBatch checks batch-internal uniqueness before anything is
// persisted: every record carries at least one identity key, serial numbers
// are pairwise distinct, and (key date, IMEI) pairs are pairwise distinct.
// Each check reports every offending identifier it finds, and any failure
// rejects the whole batch.
func validateBatch(records []domain.Transaction) error {
	var missing []string
	for _, rec := range records {
		if rec.SerialNo == nil && rec.IMEI == nil {
			missing = append(missing, rec.Product)
		}
	}
	if len(missing) > 0 {
		return domain.BadRequestf(
			"some rows have neither an IMEI nor a serial number: %s",
			strings.Join(missing, ", "),
		)
	}

	serialCount := make(map[string]int)
	for _, rec := range records {
		if rec.SerialNo != nil {
			serialCount[*rec.SerialNo]++
		}
	}
	if dups := duplicates(serialCount); len(dups) > 0 {
		return domain.BadRequestf(
			"duplicate serial numbers in the file: %s; remove the duplicates and upload again",
			strings.Join(dups, ", "),
		)
	}

	pairCount := make(map[string]int)
	for _, rec := range records {
		if rec.IMEI != nil {
			pairCount[rec.KeyDate()+"_"+*rec.IMEI]++
		}
	}
	if dups := duplicates(pairCount); len(dups) > 0 {
		return domain.BadRequestf(
			"the same IMEI appears more than once on the same date: %s",
			strings.Join(dups, ", "),
		)
	}

	return nil
}

func duplicates(counts map[string]int) []string {
	var dups []string
	for key, n := range counts {
		if n > 1 {
			dups = append(dups, key)
		}
	}
	sort.Strings(dups)
	return dups
}
