package csvimport

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice import columns
const (
	ColumnExternalID   = "external_id"
	ColumnPayerID      = "payer_id"
	ColumnPayeeID      = "payee_id"
	ColumnIssueDate    = "issue_date"
	ColumnDueDate      = "due_date"
	ColumnAmount       = "amount"
	ColumnCurrencyCode = "currency_code"
)

// DateLayout is the date format of issue_date and due_date
const DateLayout = "2006-01-02"

// RequiredInvoiceHeaders lists the columns every invoice file must have.
// currency_code is optional and defaults downstream.
var RequiredInvoiceHeaders = []string{
	ColumnExternalID,
	ColumnPayerID,
	ColumnPayeeID,
	ColumnIssueDate,
	ColumnDueDate,
	ColumnAmount,
}

// InvoiceRow is a decoded invoice line
type InvoiceRow struct {
	LineNumber   int
	ExternalID   string
	PayerID      uuid.UUID
	PayeeID      uuid.UUID
	IssueDate    time.Time
	DueDate      time.Time
	Amount       decimal.Decimal
	CurrencyCode string
}

// InvoiceRowSet is the outcome of decoding a file: the valid rows and the
// errors of the rest
type InvoiceRowSet struct {
	Rows      []InvoiceRow
	Errors    *ErrorCollection
	TotalRows int
}

// ParseInvoiceRows decodes an invoice CSV. File-level problems (encoding,
// missing headers, no rows) return an error; problems in a row are recorded
// in the set and the row is left out.
func ParseInvoiceRows(r io.Reader, maxErrors int) (*InvoiceRowSet, error) {
	parser, err := NewCSVParser(r)
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}
	if missing := parser.MissingHeaders(RequiredInvoiceHeaders); len(missing) > 0 {
		return nil, fmt.Errorf("CSV file missing required columns: %s", strings.Join(missing, ", "))
	}

	rows, err := parser.ReadAllRows()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoDataRows
	}

	set := &InvoiceRowSet{
		Rows:      make([]InvoiceRow, 0, len(rows)),
		Errors:    NewErrorCollection(maxErrors),
		TotalRows: len(rows),
	}
	seen := make(map[string]int)
	for _, row := range rows {
		decoded, ok := decodeInvoiceRow(row, set.Errors)
		if !ok {
			continue
		}
		key := decoded.PayerID.String() + "/" + decoded.ExternalID
		if _, dup := seen[key]; dup {
			set.Errors.AddDuplicateError(row.LineNumber, ColumnExternalID, decoded.ExternalID, false)
			continue
		}
		seen[key] = row.LineNumber
		set.Rows = append(set.Rows, decoded)
	}
	return set, nil
}

func decodeInvoiceRow(row *Row, errs *ErrorCollection) (InvoiceRow, bool) {
	line := row.LineNumber
	out := InvoiceRow{
		LineNumber:   line,
		ExternalID:   row.Get(ColumnExternalID),
		CurrencyCode: strings.ToUpper(row.Get(ColumnCurrencyCode)),
	}

	for _, col := range RequiredInvoiceHeaders {
		if row.Get(col) == "" {
			errs.AddRequiredError(line, col)
		}
	}

	out.PayerID = parseUUID(row, ColumnPayerID, errs)
	out.PayeeID = parseUUID(row, ColumnPayeeID, errs)
	out.IssueDate = parseDate(row, ColumnIssueDate, errs)
	out.DueDate = parseDate(row, ColumnDueDate, errs)

	if v := row.Get(ColumnAmount); v != "" {
		amount, err := decimal.NewFromString(v)
		switch {
		case err != nil:
			errs.AddFormatError(line, ColumnAmount, "decimal number", v)
		case !amount.IsPositive():
			errs.Add(RowError{Row: line, Column: ColumnAmount, Code: ErrCodeImportInvalidValue,
				Message: "amount must be positive", Value: v})
		default:
			out.Amount = amount
		}
	}

	if out.CurrencyCode != "" && len(out.CurrencyCode) != 3 {
		errs.AddFormatError(line, ColumnCurrencyCode, "3-letter currency code", out.CurrencyCode)
	}

	return out, !errs.HasRowErrors(line)
}

func parseUUID(row *Row, column string, errs *ErrorCollection) uuid.UUID {
	v := row.Get(column)
	if v == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		errs.AddFormatError(row.LineNumber, column, "UUID", v)
		return uuid.Nil
	}
	return id
}

func parseDate(row *Row, column string, errs *ErrorCollection) time.Time {
	v := row.Get(column)
	if v == "" {
		return time.Time{}
	}
	if t, err := time.Parse(DateLayout, v); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t
	}
	errs.AddFormatError(row.LineNumber, column, "date (YYYY-MM-DD)", v)
	return time.Time{}
}
