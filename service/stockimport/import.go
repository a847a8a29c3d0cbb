// Package stockimport loads stock counts or receipts from CSV or JSON and
// writes them through the ledger, one atomic batch at a time.
package stockimport

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"backoffice.GO/core/apperr"
	inventoryEntity "backoffice.GO/model/entity/inventory"
	"backoffice.GO/service/audit"
	"backoffice.GO/service/ledger"
)

// Mode selects how a row's qty is applied.
type Mode string

const (
	// ModeSet treats qty as a physical count; the difference becomes an adjust movement.
	ModeSet Mode = "set"
	// ModeAdd receives qty units with an in movement.
	ModeAdd Mode = "add"
)

const defaultBatchSize = 200

// ItemInput is one row of a stock import.
type ItemInput struct {
	SKU       string           `json:"sku"`
	Qty       *int             `json:"qty"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Notes     string           `json:"notes,omitempty"`
}

type Options struct {
	Mode      Mode
	BatchSize int
	Reason    string
}

// Result holds counters and timing from an import run.
type Result struct {
	TotalRows int           `json:"total_rows"`
	Imported  int           `json:"imported"`
	Skipped   int           `json:"skipped"`
	Movements int           `json:"movements"`
	Warnings  []string      `json:"warnings,omitempty"`
	TotalTime time.Duration `json:"-"`
}

func (r *Result) warn(format string, args ...interface{}) {
	r.Skipped++
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

type Importer struct {
	db     *gorm.DB
	ledger *ledger.Ledger
	logger *zap.Logger
}

func NewImporter(db *gorm.DB, l *ledger.Ledger, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{db: db, ledger: l, logger: logger}
}

// ImportCSV reads a CSV with a header row. sku and qty are required columns;
// unit_price and notes are optional. Unknown columns are reported and ignored.
func (im *Importer) ImportCSV(ctx context.Context, r io.Reader, opts Options, actor audit.Actor) (*Result, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	headers, err := reader.Read()
	if err != nil {
		return nil, apperr.Validation("read CSV header: %v", err)
	}
	colIndex := make(map[string]int, len(headers))
	var unknown []string
	for i, h := range headers {
		h = strings.ToLower(strings.TrimSpace(h))
		switch h {
		case "sku", "qty", "unit_price", "notes":
			colIndex[h] = i
		default:
			unknown = append(unknown, h)
		}
	}
	if _, ok := colIndex["sku"]; !ok {
		return nil, apperr.Validation("CSV must contain a 'sku' column")
	}
	if _, ok := colIndex["qty"]; !ok {
		return nil, apperr.Validation("CSV must contain a 'qty' column")
	}

	field := func(row []string, col string) string {
		i, ok := colIndex[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var items []ItemInput
	var parseWarnings []string
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, apperr.Validation("CSV line %d: %v", line, err)
		}
		it := ItemInput{SKU: field(row, "sku"), Notes: field(row, "notes")}
		if v := field(row, "qty"); v != "" {
			q, err := strconv.Atoi(v)
			if err != nil {
				parseWarnings = append(parseWarnings, fmt.Sprintf("line %d: invalid qty %q", line, v))
			} else {
				it.Qty = &q
			}
		}
		if v := field(row, "unit_price"); v != "" {
			p, err := decimal.NewFromString(v)
			if err != nil {
				parseWarnings = append(parseWarnings, fmt.Sprintf("line %d: invalid unit_price %q", line, v))
			} else {
				it.UnitPrice = &p
			}
		}
		items = append(items, it)
	}

	res, err := im.Import(ctx, items, opts, actor)
	if err != nil {
		return nil, err
	}
	for _, h := range unknown {
		res.Warnings = append(res.Warnings, fmt.Sprintf("column %q: unknown, skipping", h))
	}
	res.Warnings = append(res.Warnings, parseWarnings...)
	return res, nil
}

// Import resolves SKUs to products or variants and records the rows in
// batches. Each batch is atomic; a rejected batch is reported as a warning
// and its rows counted as skipped, while earlier batches stay applied.
func (im *Importer) Import(ctx context.Context, items []ItemInput, opts Options, actor audit.Actor) (*Result, error) {
	start := time.Now()
	if opts.Mode == "" {
		opts.Mode = ModeSet
	}
	if opts.Mode != ModeSet && opts.Mode != ModeAdd {
		return nil, apperr.Validation("unknown import mode %q", opts.Mode)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if strings.TrimSpace(opts.Reason) == "" {
		opts.Reason = "stock import"
	}

	res := &Result{TotalRows: len(items)}
	skus := make([]string, 0, len(items))
	for _, it := range items {
		if sku := strings.TrimSpace(it.SKU); sku != "" {
			skus = append(skus, sku)
		}
	}
	targets, err := im.resolve(ctx, skus)
	if err != nil {
		return nil, err
	}

	type row struct {
		sku  string
		item ItemInput
		t    ledger.Target
	}
	var rows []row
	seen := make(map[ledger.Target]string)
	for _, it := range items {
		sku := strings.TrimSpace(it.SKU)
		switch {
		case sku == "":
			res.warn("empty sku, skipping")
			continue
		case it.Qty == nil:
			res.warn("sku=%s: qty is required", sku)
			continue
		case *it.Qty < 0 || (opts.Mode == ModeAdd && *it.Qty == 0):
			res.warn("sku=%s: invalid qty %d for mode %s", sku, *it.Qty, opts.Mode)
			continue
		}
		r, ok := targets[sku]
		if !ok {
			res.warn("sku=%s: product not found", sku)
			continue
		}
		if r.err != "" {
			res.warn("sku=%s: %s", sku, r.err)
			continue
		}
		if prev, dup := seen[r.target]; dup && opts.Mode == ModeSet {
			res.warn("sku=%s: already counted as %s, skipping", sku, prev)
			continue
		}
		seen[r.target] = sku
		rows = append(rows, row{sku: sku, item: it, t: r.target})
	}

	for i := 0; i < len(rows); i += opts.BatchSize {
		end := i + opts.BatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[i:end]
		var mvs []*inventoryEntity.Movement
		var err error
		if opts.Mode == ModeSet {
			counts := make([]ledger.Count, 0, len(batch))
			for _, r := range batch {
				counts = append(counts, ledger.Count{Target: r.t, Quantity: *r.item.Qty, Notes: r.item.Notes})
			}
			mvs, err = im.ledger.Stocktake(ctx, counts, opts.Reason, actor)
		} else {
			reqs := make([]ledger.MovementRequest, 0, len(batch))
			for _, r := range batch {
				reqs = append(reqs, ledger.MovementRequest{
					Target:    r.t,
					Type:      inventoryEntity.MovementIn,
					Quantity:  *r.item.Qty,
					UnitPrice: r.item.UnitPrice,
					Reason:    opts.Reason,
					Notes:     r.item.Notes,
				})
			}
			mvs, err = im.ledger.RecordBulk(ctx, reqs, actor)
		}
		if err != nil {
			if !apperr.IsValidation(err) && !apperr.IsConsistency(err) {
				return nil, fmt.Errorf("import batch %d: %w", i/opts.BatchSize+1, err)
			}
			res.Skipped += len(batch)
			res.Warnings = append(res.Warnings, fmt.Sprintf("batch %d (%s..%s) rejected: %s", i/opts.BatchSize+1, batch[0].sku, batch[len(batch)-1].sku, apperr.PublicMessage(err)))
			continue
		}
		res.Imported += len(batch)
		res.Movements += len(mvs)
	}
	res.TotalTime = time.Since(start)
	im.logger.Info("stock import finished",
		zap.String("mode", string(opts.Mode)),
		zap.Int("rows", res.TotalRows),
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
		zap.Int("movements", res.Movements),
		zap.Duration("took", res.TotalTime),
	)
	return res, nil
}
