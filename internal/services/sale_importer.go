package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ticketdesk/lottery-backoffice/internal/logger"
	"github.com/ticketdesk/lottery-backoffice/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compile-time check to ensure SaleImporter implements Importer
var _ Importer = (*SaleImporter)(nil)

// Row outcomes of an import
const (
	ImportSold     = "sold"
	ImportConflict = "conflict"
	ImportInvalid  = "invalid"
	ImportError    = "error"
)

// ImportRow is the outcome of one CSV row
type ImportRow struct {
	Line         int    `json:"line"`
	TicketNumber int    `json:"ticketNumber,omitempty"`
	Outcome      string `json:"outcome"`
	TicketID     string `json:"ticketId,omitempty"`
	Error        string `json:"error,omitempty"`
}

// ImportReport summarises an import run
type ImportReport struct {
	TotalRows int         `json:"totalRows"`
	Sold      int         `json:"sold"`
	Conflicts int         `json:"conflicts"`
	Invalid   int         `json:"invalid"`
	Errors    int         `json:"errors"`
	Rows      []ImportRow `json:"rows"`
}

func (r *ImportReport) record(row ImportRow) {
	r.TotalRows++
	switch row.Outcome {
	case ImportSold:
		r.Sold++
	case ImportConflict:
		r.Conflicts++
	case ImportInvalid:
		r.Invalid++
	default:
		r.Errors++
	}
	r.Rows = append(r.Rows, row)
}

// SaleImporter replays a sales sheet through the sale allocator, so imported
// rows obey the same uniqueness and validation rules as live sales
type SaleImporter struct {
	sales SaleService
}

// NewSaleImporter creates a new SaleImporter
func NewSaleImporter(sales SaleService) *SaleImporter {
	return &SaleImporter{sales: sales}
}

type columns struct {
	lottery, number, name, phone, seller int
}

// Import reads rows of lottery_id, ticket_number, customer_name,
// customer_phone, seller_id after a header row. A bad row never stops the run.
func (i *SaleImporter) Import(ctx context.Context, r io.Reader) (*ImportReport, error) {
	log := logger.FromContext(ctx)
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := columns{
		lottery: findColumnIndex(header, "lottery_id", "lottery"),
		number:  findColumnIndex(header, "ticket_number", "ticket", "number"),
		name:    findColumnIndex(header, "customer_name", "name"),
		phone:   findColumnIndex(header, "customer_phone", "phone", "mobile"),
		seller:  findColumnIndex(header, "seller_id", "seller", "sold_by"),
	}
	if cols.lottery < 0 || cols.number < 0 || cols.name < 0 || cols.phone < 0 || cols.seller < 0 {
		return nil, errors.New("header must name lottery_id, ticket_number, customer_name, customer_phone and seller_id columns")
	}

	report := &ImportReport{Rows: []ImportRow{}}
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			report.record(ImportRow{Line: line, Outcome: ImportInvalid, Error: err.Error()})
			continue
		}

		row := i.importRow(ctx, cols, record)
		row.Line = line
		report.record(row)
	}

	log.Info("Sales import finished",
		"rows", report.TotalRows, "sold", report.Sold, "conflicts", report.Conflicts,
		"invalid", report.Invalid, "errors", report.Errors)
	return report, nil
}

func (i *SaleImporter) importRow(ctx context.Context, cols columns, record []string) ImportRow {
	req, err := parseSaleRow(cols, record)
	if err != nil {
		return ImportRow{Outcome: ImportInvalid, Error: err.Error()}
	}
	row := ImportRow{TicketNumber: req.TicketNumber}

	ticket, err := i.sales.Sell(ctx, req)
	switch {
	case err == nil:
		row.Outcome = ImportSold
		row.TicketID = ticket.ID.Hex()
		return row
	case errors.Is(err, models.ErrConflict):
		row.Outcome = ImportConflict
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrState):
		row.Outcome = ImportInvalid
	default:
		row.Outcome = ImportError
	}
	row.Error = err.Error()
	return row
}

func parseSaleRow(cols columns, record []string) (SaleRequest, error) {
	field := func(idx int) string {
		if idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}
	lotteryID, err := primitive.ObjectIDFromHex(field(cols.lottery))
	if err != nil {
		return SaleRequest{}, fmt.Errorf("invalid lottery_id %q", field(cols.lottery))
	}
	number, err := strconv.Atoi(field(cols.number))
	if err != nil {
		return SaleRequest{}, fmt.Errorf("invalid ticket_number %q", field(cols.number))
	}
	sellerID, err := primitive.ObjectIDFromHex(field(cols.seller))
	if err != nil {
		return SaleRequest{}, fmt.Errorf("invalid seller_id %q", field(cols.seller))
	}
	return SaleRequest{
		LotteryID:     lotteryID,
		TicketNumber:  number,
		CustomerName:  field(cols.name),
		CustomerPhone: field(cols.phone),
		SellerID:      sellerID,
	}, nil
}

// findColumnIndex finds the index of the first header matching any name, case-insensitively
func findColumnIndex(header []string, names ...string) int {
	for i, h := range header {
		h = strings.TrimSpace(h)
		for _, name := range names {
			if strings.EqualFold(h, name) {
				return i
			}
		}
	}
	return -1
}
