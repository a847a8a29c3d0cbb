package report

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"backoffice.GO/config"
	"backoffice.GO/core/apperr"
	"backoffice.GO/core/testdb"
	billingEntity "backoffice.GO/model/entity/billing"
	inventoryEntity "backoffice.GO/model/entity/inventory"
	reportEntity "backoffice.GO/model/entity/report"
	"backoffice.GO/service/audit"
	"backoffice.GO/service/catalog"
	"backoffice.GO/service/invoice"
	"backoffice.GO/service/ledger"
	"backoffice.GO/service/reservation"
)

var actor = audit.Actor{Username: "manager"}

type fixture struct {
	db      *gorm.DB
	ledger  *ledger.Ledger
	manager *reservation.Manager
	engine  *invoice.Engine
	reports *Service
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testdb.Open(t)
	rec := audit.NewRecorder(db, nil)
	cat := catalog.NewService(db, nil, rec, nil)
	l, err := ledger.New(db, cat, rec, nil)
	if err != nil {
		t.Fatalf("ledger.New: %v", err)
	}
	rm := reservation.NewManager(db, cat, l, rec, config.DefaultReservationPolicy(), nil)
	reports, err := NewService(db, rm, rec, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &fixture{
		db:      db,
		ledger:  l,
		manager: rm,
		engine:  invoice.NewEngine(db, cat, rm, l, rec, config.InvoiceSettings{}, nil),
		reports: reports,
	}
}

func (f *fixture) seedSales(t *testing.T) (uint, uint) {
	t.Helper()
	ctx := context.Background()
	a := testdb.Product(t, f.db, "HOODIE", "40.00", false)
	b := testdb.Product(t, f.db, "BEANIE", "10.00", false)
	for _, id := range []uint{a.ID, b.ID} {
		if _, err := f.ledger.Record(ctx, ledger.MovementRequest{
			Target: ledger.ProductTarget(id), Type: inventoryEntity.MovementIn, Quantity: 10,
		}, actor); err != nil {
			t.Fatalf("stock: %v", err)
		}
	}
	sales := [][]invoice.ItemInput{
		{{ProductID: a.ID, Quantity: 1}, {ProductID: b.ID, Quantity: 4}},
		{{ProductID: b.ID, Quantity: 2}},
	}
	for _, items := range sales {
		if _, err := f.engine.Create(ctx, invoice.CreateInput{
			ClientName:    "walk-in",
			PaymentMethod: billingEntity.PaymentCash,
			AmountPaid:    decimal.NewFromInt(1000),
			Items:         items,
		}, actor); err != nil {
			t.Fatalf("sale: %v", err)
		}
	}
	if _, err := f.manager.Create(ctx, reservation.CreateInput{
		ClientName: "Diana",
		Items:      []reservation.ItemInput{{ProductID: a.ID, Quantity: 2}},
	}, actor); err != nil {
		t.Fatalf("reservation: %v", err)
	}
	return a.ID, b.ID
}

func TestParseKind(t *testing.T) {
	for _, k := range AllKinds() {
		got, err := ParseKind(" " + strings.ToUpper(string(k)) + " ")
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %q, %v", k, got, err)
		}
	}
	if _, err := ParseKind("forecast"); !apperr.IsValidation(err) {
		t.Errorf("unknown kind: err = %v, want validation", err)
	}
}

func TestDecodeParams(t *testing.T) {
	p, err := decodeParams(map[string]interface{}{
		"date_from":      "2025-09-01",
		"date_to":        "2025-09-30",
		"limit":          "5",
		"low_stock_only": "true",
		"types":          "in,out",
		"product_ids":    []interface{}{float64(3), float64(7)},
		"min_stock":      2,
	})
	if err != nil {
		t.Fatalf("decodeParams: %v", err)
	}
	if p.Limit != 5 || !p.LowStockOnly || p.MinStock == nil || *p.MinStock != 2 {
		t.Errorf("scalars = %+v", p)
	}
	if len(p.Types) != 2 || p.Types[1] != "out" || len(p.ProductIDs) != 2 || p.ProductIDs[1] != 7 {
		t.Errorf("slices = %v %v", p.Types, p.ProductIDs)
	}
	from, to := p.Range()
	if !from.Equal(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)) || !to.Equal(time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("range = %s..%s", from, to)
	}

	bad := []map[string]interface{}{
		{"date_from": "yesterday"},
		{"month": "09/2025"},
		{"limit": -1},
		{"date_from": "2025-09-10", "date_to": "2025-09-01"},
	}
	for _, raw := range bad {
		if _, err := decodeParams(raw); !apperr.IsValidation(err) {
			t.Errorf("decodeParams(%v): err = %v, want validation", raw, err)
		}
	}
}

func TestNewService_HandlesEveryKind(t *testing.T) {
	f := setup(t)
	for _, k := range AllKinds() {
		if f.reports.handlers[k] == nil {
			t.Errorf("no handler for %s", k)
		}
	}
}

func TestRun_InventoryFlagsLowStockAndHolds(t *testing.T) {
	f := setup(t)
	hoodie, _ := f.seedSales(t)

	run, res, err := f.reports.Run(context.Background(), RunRequest{Kind: "inventory"}, actor)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status != reportEntity.RunDone || run.RowsCount != 2 || run.RunToken == "" {
		t.Errorf("run = %+v", run)
	}
	var hoodieRow Row
	for _, r := range res.Rows {
		if r["id"] == hoodie {
			hoodieRow = r
		}
	}
	if hoodieRow == nil {
		t.Fatalf("no row for product %d in %v", hoodie, res.Rows)
	}
	if hoodieRow["stock"] != 9 || hoodieRow["reserved_stock"] != 2 || hoodieRow["available_stock"] != 7 {
		t.Errorf("hoodie row = %v", hoodieRow)
	}

	_, low, err := f.reports.Run(context.Background(), RunRequest{Kind: "inventory", Params: map[string]interface{}{"low_stock_only": true}}, actor)
	if err != nil {
		t.Fatalf("Run low stock: %v", err)
	}
	if len(low.Rows) != 1 || low.Rows[0]["sku"] != "BEANIE" {
		t.Errorf("low stock rows = %v, want BEANIE only", low.Rows)
	}
}

func TestRun_TopProductsAndSales(t *testing.T) {
	f := setup(t)
	_, beanie := f.seedSales(t)

	_, top, err := f.reports.Run(context.Background(), RunRequest{Kind: "top_products", Params: map[string]interface{}{"limit": 1}}, actor)
	if err != nil {
		t.Fatalf("Run top_products: %v", err)
	}
	if len(top.Rows) != 1 || top.Rows[0]["product_id"] != beanie || top.Rows[0]["qty_sold"] != int64(6) {
		t.Errorf("top rows = %v", top.Rows)
	}
	if rev, ok := top.Rows[0]["revenue"].(decimal.Decimal); !ok || !rev.Equal(decimal.NewFromInt(60)) {
		t.Errorf("revenue = %v, want 60", top.Rows[0]["revenue"])
	}

	_, sales, err := f.reports.Run(context.Background(), RunRequest{Kind: "sales"}, actor)
	if err != nil {
		t.Fatalf("Run sales: %v", err)
	}
	if len(sales.Rows) != 2 {
		t.Errorf("sales rows = %d, want 2", len(sales.Rows))
	}
}

func TestRun_DailyAggregates(t *testing.T) {
	f := setup(t)
	f.seedSales(t)

	_, res, err := f.reports.Run(context.Background(), RunRequest{Kind: "daily"}, actor)
	if err != nil {
		t.Fatalf("Run daily: %v", err)
	}
	row := res.Rows[0]
	if row["sales_count"] != int64(2) || row["units_in"] != int64(20) || row["units_out"] != int64(7) || row["units_reserved"] != int64(2) {
		t.Errorf("daily row = %v", row)
	}
	if total, _ := row["total_sales"].(decimal.Decimal); !total.Equal(decimal.NewFromInt(100)) {
		t.Errorf("total sales = %v, want 100", row["total_sales"])
	}
}

func TestRun_PersistsPreviewAndFailures(t *testing.T) {
	f := setup(t)
	f.seedSales(t)
	f.reports.previewRows = 1

	run, _, err := f.reports.Run(context.Background(), RunRequest{Kind: "movements"}, actor)
	if err != nil {
		t.Fatalf("Run movements: %v", err)
	}
	var preview []map[string]interface{}
	if err := json.Unmarshal(run.Preview, &preview); err != nil || len(preview) != 1 {
		t.Errorf("preview = %s (%v), want one row", run.Preview, err)
	}
	stored, err := f.reports.RunByToken(context.Background(), run.RunToken)
	if err != nil || stored.RowsCount != run.RowsCount {
		t.Errorf("RunByToken = %+v, %v", stored, err)
	}

	failed, _, err := f.reports.Run(context.Background(), RunRequest{Kind: "top_products", Params: map[string]interface{}{"mode": "sideways"}}, actor)
	if !apperr.IsValidation(err) {
		t.Fatalf("err = %v, want validation", err)
	}
	if failed == nil || failed.Status != reportEntity.RunFailed || failed.ErrorMessage == "" {
		t.Errorf("failed run = %+v", failed)
	}
}

func TestRun_FromDefinition(t *testing.T) {
	f := setup(t)
	n, err := f.reports.SeedDefinitions(context.Background())
	if err != nil || n != len(AllKinds()) {
		t.Fatalf("SeedDefinitions = %d, %v", n, err)
	}
	if again, _ := f.reports.SeedDefinitions(context.Background()); again != 0 {
		t.Errorf("second seed created %d", again)
	}
	var def reportEntity.Definition
	f.db.Where("kind = ?", string(KindTopProducts)).First(&def)

	run, _, err := f.reports.Run(context.Background(), RunRequest{DefinitionID: &def.ID, Params: map[string]interface{}{"limit": 3}}, actor)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.DefinitionID == nil || *run.DefinitionID != def.ID || run.Params["limit"] != 3 {
		t.Errorf("run = %+v", run)
	}
}

func TestWriteCSV(t *testing.T) {
	id := uint(4)
	res := &Result{
		Columns: []string{"id", "name", "amount", "ref"},
		Rows: []Row{
			{"id": 1, "name": "a, b", "amount": decimal.RequireFromString("2.50"), "ref": &id},
			{"id": 2, "name": "c", "amount": decimal.Zero, "ref": (*uint)(nil)},
		},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, res); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "id,name,amount,ref\n1,\"a, b\",2.5,4\n2,c,0,\n"
	if buf.String() != want {
		t.Errorf("csv = %q, want %q", buf.String(), want)
	}
}
