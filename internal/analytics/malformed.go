package analytics

import (
	"context"

	"chitieu/internal/core"
	"chitieu/internal/log"
)

// labelled is implemented by records whose label must come from a fixed set.
type labelled interface {
	ValidLabel() bool
}

// DropMalformed removes records that cannot take part in aggregation: a
// missing date, a negative amount or an unknown category. Each dropped record
// is logged at warn level so one bad row does not blank a dashboard silently.
func DropMalformed[T core.Record](ctx context.Context, logger *log.Logger, records []T) []T {
	out := make([]T, 0, len(records))
	for i, r := range records {
		reason := ""
		switch {
		case r.RecordDate().IsZero():
			reason = "missing date"
		case r.RecordAmount().IsNegative():
			reason = "negative amount"
		default:
			if l, ok := any(r).(labelled); ok && !l.ValidLabel() {
				reason = "unknown category"
			}
		}
		if reason == "" {
			out = append(out, r)
			continue
		}
		if logger != nil {
			logger.WarnContext(ctx, "Skipping malformed record",
				log.FieldOperation, log.OpAggregate,
				"index", i,
				"label", r.RecordLabel(),
				"reason", reason)
		}
	}
	return out
}
