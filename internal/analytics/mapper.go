package analytics

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	fieldDate        = "date"
	fieldSpend       = "spend"
	fieldClicks      = "clicks"
	fieldImpressions = "impressions"
	fieldConversions = "conversions"
)

// rowError names the offending row and field of an upstream payload.
type rowError struct {
	Index int
	Field string
	Err   error
}

func (e *rowError) Error() string {
	return fmt.Sprintf("row %d field %q: %v", e.Index, e.Field, e.Err)
}

func (e *rowError) Unwrap() error { return e.Err }

var errMissingField = errors.New("missing")

// rowsFromPayload maps the upstream array into typed rows.
func rowsFromPayload(body []byte) ([]Row, error) {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode insights: %w", err)
	}
	rows := make([]Row, 0, len(raw))
	for i, item := range raw {
		row, err := rowFromRaw(i, item)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func rowFromRaw(index int, item map[string]json.RawMessage) (Row, error) {
	var row Row

	rawDate, ok := item[fieldDate]
	if !ok {
		return Row{}, &rowError{Index: index, Field: fieldDate, Err: errMissingField}
	}
	if err := json.Unmarshal(rawDate, &row.Date); err != nil || strings.TrimSpace(row.Date) == "" {
		return Row{}, &rowError{Index: index, Field: fieldDate, Err: fmt.Errorf("not a date string")}
	}

	var err error
	if row.Spend, err = decimalField(index, item, fieldSpend, false); err != nil {
		return Row{}, err
	}
	if row.Clicks, err = decimalField(index, item, fieldClicks, false); err != nil {
		return Row{}, err
	}
	if row.Impressions, err = decimalField(index, item, fieldImpressions, false); err != nil {
		return Row{}, err
	}
	// days without the configured conversion action report nothing
	if row.Conversions, err = decimalField(index, item, fieldConversions, true); err != nil {
		return Row{}, err
	}
	return row, nil
}

func decimalField(index int, item map[string]json.RawMessage, field string, zeroIfMissing bool) (decimal.Decimal, error) {
	raw, ok := item[field]
	if !ok || string(raw) == "null" {
		if zeroIfMissing {
			return decimal.Zero, nil
		}
		return decimal.Decimal{}, &rowError{Index: index, Field: field, Err: errMissingField}
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return decimal.Decimal{}, &rowError{Index: index, Field: field, Err: err}
	}
	return d, nil
}
