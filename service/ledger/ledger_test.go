package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"backoffice.GO/core/apperr"
	"backoffice.GO/core/testdb"
	auditEntity "backoffice.GO/model/entity/audit"
	inventoryEntity "backoffice.GO/model/entity/inventory"
	"backoffice.GO/service/audit"
	"backoffice.GO/service/catalog"
)

var actor = audit.Actor{Username: "tester"}

func newLedger(t *testing.T) (*Ledger, *gorm.DB) {
	t.Helper()
	db := testdb.Open(t)
	rec := audit.NewRecorder(db, nil)
	l, err := New(db, catalog.NewService(db, nil, rec, nil), rec, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l, db
}

func in(t Target, qty int) MovementRequest {
	return MovementRequest{Target: t, Type: inventoryEntity.MovementIn, Quantity: qty}
}

func out(t Target, qty int) MovementRequest {
	return MovementRequest{Target: t, Type: inventoryEntity.MovementOut, Quantity: qty}
}

func mustRecord(t *testing.T, l *Ledger, req MovementRequest) *inventoryEntity.Movement {
	t.Helper()
	mv, err := l.Record(context.Background(), req, actor)
	if err != nil {
		t.Fatalf("Record(%s %d on %s): %v", req.Type, req.Quantity, req.Target, err)
	}
	return mv
}

func TestRecord_StockEqualsSignedHistory(t *testing.T) {
	l, db := newLedger(t)
	p := testdb.Product(t, db, "TSHIRT", "25.00", false)
	target := ProductTarget(p.ID)

	mustRecord(t, l, in(target, 10))
	mustRecord(t, l, out(target, 3))
	mustRecord(t, l, MovementRequest{Target: target, Type: inventoryEntity.MovementAdjust, Quantity: -2, Reason: "damaged"})

	if got := testdb.Stock(t, db, p.ID, 0); got != 5 {
		t.Fatalf("stock = %d, want 5", got)
	}
	rec, err := l.Reconcile(context.Background(), target)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !rec.Balanced() {
		t.Errorf("reconciliation unbalanced: %+v", rec)
	}
}

func TestRecord_Validation(t *testing.T) {
	l, db := newLedger(t)
	p := testdb.Product(t, db, "CAP", "12.00", false)
	target := ProductTarget(p.ID)
	mustRecord(t, l, in(target, 4))

	cases := map[string]MovementRequest{
		"zero out":          out(target, 0),
		"negative in":       in(target, -1),
		"zero adjust":       {Target: target, Type: inventoryEntity.MovementAdjust, Quantity: 0, Reason: "count"},
		"adjust w/o reason": {Target: target, Type: inventoryEntity.MovementAdjust, Quantity: 1},
		"unknown type":      {Target: target, Type: "transfer", Quantity: 1},
		"missing target":    {Type: inventoryEntity.MovementIn, Quantity: 1},
		"discount > 100":    {Target: target, Type: inventoryEntity.MovementOut, Quantity: 1, DiscountPercentage: decimal.NewFromInt(101)},
		"oversell":          out(target, 5),
	}
	for name, req := range cases {
		if _, err := l.Record(context.Background(), req, actor); !apperr.IsValidation(err) {
			t.Errorf("%s: err = %v, want validation error", name, err)
		}
	}
	if got := testdb.Stock(t, db, p.ID, 0); got != 4 {
		t.Errorf("stock = %d after rejected movements, want 4", got)
	}
	var count int64
	db.Model(&inventoryEntity.Movement{}).Count(&count)
	if count != 1 {
		t.Errorf("movement rows = %d, want 1", count)
	}
}

func TestRecord_UnknownProduct(t *testing.T) {
	l, _ := newLedger(t)
	_, err := l.Record(context.Background(), in(ProductTarget(999), 1), actor)
	if !apperr.IsNotFound(err) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestRecord_MissingPriceIsConfigurationError(t *testing.T) {
	l, db := newLedger(t)
	p := testdb.Product(t, db, "NOPRICE", "", false)
	target := ProductTarget(p.ID)

	mv := mustRecord(t, l, in(target, 3))
	if !mv.UnitPrice.Equal(decimal.NewFromInt(10)) {
		t.Errorf("stock entry unit price = %s, want cost 10", mv.UnitPrice)
	}
	_, err := l.Record(context.Background(), out(target, 1), actor)
	if !apperr.IsConfiguration(err) {
		t.Fatalf("err = %v, want configuration error", err)
	}
	if got := testdb.Stock(t, db, p.ID, 0); got != 3 {
		t.Errorf("stock = %d, want 3", got)
	}
}

func TestRecord_PricingWithDiscount(t *testing.T) {
	l, db := newLedger(t)
	p := testdb.Product(t, db, "JEANS", "40.00", false)
	target := ProductTarget(p.ID)
	mustRecord(t, l, in(target, 5))

	req := out(target, 2)
	req.DiscountPercentage = decimal.NewFromInt(10)
	mv := mustRecord(t, l, req)
	if !mv.UnitPrice.Equal(decimal.NewFromInt(40)) {
		t.Errorf("unit price = %s, want 40", mv.UnitPrice)
	}
	if !mv.FinalUnitPrice.Equal(decimal.NewFromInt(36)) {
		t.Errorf("final unit price = %s, want 36", mv.FinalUnitPrice)
	}
	if !mv.TotalAmount.Equal(decimal.NewFromInt(72)) {
		t.Errorf("total = %s, want 72", mv.TotalAmount)
	}
}

func TestVariant_OutThenUpdate(t *testing.T) {
	l, db := newLedger(t)
	p := testdb.Product(t, db, "DRESS", "60.00", true)
	v := testdb.Variant(t, db, p.ID, "M", "Red")
	target := VariantTarget(v.ID)

	mustRecord(t, l, in(target, 10))
	sale := mustRecord(t, l, out(target, 4))
	if got := testdb.Stock(t, db, p.ID, v.ID); got != 6 {
		t.Fatalf("variant stock = %d, want 6", got)
	}

	qty := 2
	if _, err := l.Update(context.Background(), sale.ID, MovementPatch{Quantity: &qty}, actor); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := testdb.Stock(t, db, p.ID, v.ID); got != 8 {
		t.Errorf("variant stock = %d, want 8", got)
	}
	if got := testdb.Stock(t, db, p.ID, 0); got != 0 {
		t.Errorf("parent manual stock = %d, want untouched 0", got)
	}
}

func TestVariant_ShapeChecks(t *testing.T) {
	l, db := newLedger(t)
	parent := testdb.Product(t, db, "SHOE", "80.00", true)
	other := testdb.Product(t, db, "SOCK", "5.00", false)
	v := testdb.Variant(t, db, parent.ID, "42", "Black")

	req := in(VariantTarget(v.ID), 1)
	req.ProductID = other.ID
	if _, err := l.Record(context.Background(), req, actor); !apperr.IsValidation(err) {
		t.Errorf("mismatched parent: err = %v, want validation", err)
	}
	if _, err := l.Record(context.Background(), in(ProductTarget(parent.ID), 1), actor); !apperr.IsValidation(err) {
		t.Errorf("product with variants: err = %v, want validation", err)
	}
}

func TestReserve_KeepsPhysicalStock(t *testing.T) {
	l, db := newLedger(t)
	p := testdb.Product(t, db, "BAG", "30.00", false)
	target := ProductTarget(p.ID)

	mustRecord(t, l, in(target, 20))
	mustRecord(t, l, MovementRequest{Target: target, Type: inventoryEntity.MovementReserve, Quantity: 5, RequireAvailable: true})

	av, err := NewAvailabilityReader(db).Of(context.Background(), target)
	if err != nil {
		t.Fatalf("Of: %v", err)
	}
	if av.Physical != 20 || av.Reserved != 5 || av.Available != 15 {
		t.Errorf("availability = %+v, want physical 20 reserved 5 available 15", av)
	}

	_, err = l.Record(context.Background(), MovementRequest{Target: target, Type: inventoryEntity.MovementReserve, Quantity: 16, RequireAvailable: true}, actor)
	if !apperr.IsValidation(err) {
		t.Errorf("over-reserve: err = %v, want validation", err)
	}
}

func TestAvailability_IgnoresInactiveVariantHolds(t *testing.T) {
	l, db := newLedger(t)
	p := testdb.Product(t, db, "COAT", "80.00", true)
	small := testdb.Variant(t, db, p.ID, "S", "Grey")
	large := testdb.Variant(t, db, p.ID, "L", "Grey")

	mustRecord(t, l, in(VariantTarget(small.ID), 6))
	mustRecord(t, l, in(VariantTarget(large.ID), 4))
	mustRecord(t, l, MovementRequest{Target: VariantTarget(small.ID), Type: inventoryEntity.MovementReserve, Quantity: 1})
	mustRecord(t, l, MovementRequest{Target: VariantTarget(large.ID), Type: inventoryEntity.MovementReserve, Quantity: 3})

	if err := db.Model(large).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate variant: %v", err)
	}

	reader := NewAvailabilityReader(db)
	av, err := reader.Of(context.Background(), ProductTarget(p.ID))
	if err != nil {
		t.Fatalf("Of: %v", err)
	}
	if av.Physical != 6 || av.Reserved != 1 || av.Available != 5 {
		t.Errorf("availability = %+v, want physical 6 reserved 1 available 5", av)
	}
	byProduct, err := reader.ReservedByProduct(context.Background())
	if err != nil {
		t.Fatalf("ReservedByProduct: %v", err)
	}
	if byProduct[p.ID] != 1 {
		t.Errorf("reserved by product = %d, want 1", byProduct[p.ID])
	}
}

func TestDelete_WouldGoNegative(t *testing.T) {
	l, db := newLedger(t)
	p := testdb.Product(t, db, "HAT", "15.00", false)
	target := ProductTarget(p.ID)

	entry := mustRecord(t, l, in(target, 5))
	mustRecord(t, l, out(target, 3))

	err := l.Delete(context.Background(), entry.ID, actor)
	if !apperr.IsValidation(err) {
		t.Fatalf("Delete: err = %v, want validation", err)
	}
	if got := testdb.Stock(t, db, p.ID, 0); got != 2 {
		t.Errorf("stock = %d, want 2", got)
	}
	if _, err := l.Get(context.Background(), entry.ID); err != nil {
		t.Errorf("movement should survive a rejected delete: %v", err)
	}
}

func TestDelete_RevertsEffect(t *testing.T) {
	l, db := newLedger(t)
	p := testdb.Product(t, db, "BELT", "20.00", false)
	target := ProductTarget(p.ID)

	mustRecord(t, l, in(target, 5))
	extra := mustRecord(t, l, in(target, 3))
	if err := l.Delete(context.Background(), extra.ID, actor); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := testdb.Stock(t, db, p.ID, 0); got != 5 {
		t.Errorf("stock = %d, want 5", got)
	}
	if err := l.Delete(context.Background(), extra.ID, actor); !apperr.IsNotFound(err) {
		t.Errorf("second delete: err = %v, want not found", err)
	}
}

func TestUpdate_ChangesTarget(t *testing.T) {
	l, db := newLedger(t)
	a := testdb.Product(t, db, "A-1", "10.00", false)
	b := testdb.Product(t, db, "B-1", "10.00", false)

	mv := mustRecord(t, l, in(ProductTarget(a.ID), 5))
	next := ProductTarget(b.ID)
	if _, err := l.Update(context.Background(), mv.ID, MovementPatch{Target: &next}, actor); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := testdb.Stock(t, db, a.ID, 0); got != 0 {
		t.Errorf("old target stock = %d, want 0", got)
	}
	if got := testdb.Stock(t, db, b.ID, 0); got != 5 {
		t.Errorf("new target stock = %d, want 5", got)
	}
}

func TestUpdate_RejectsNegativeResult(t *testing.T) {
	l, db := newLedger(t)
	p := testdb.Product(t, db, "SCARF", "9.00", false)
	target := ProductTarget(p.ID)

	mv := mustRecord(t, l, in(target, 5))
	mustRecord(t, l, out(target, 4))
	qty := 2
	if _, err := l.Update(context.Background(), mv.ID, MovementPatch{Quantity: &qty}, actor); !apperr.IsValidation(err) {
		t.Fatalf("err = %v, want validation", err)
	}
	if got := testdb.Stock(t, db, p.ID, 0); got != 1 {
		t.Errorf("stock = %d, want 1", got)
	}
}

func TestRecordBulk_AllOrNothing(t *testing.T) {
	l, db := newLedger(t)
	a := testdb.Product(t, db, "BULK-A", "10.00", false)
	b := testdb.Product(t, db, "BULK-B", "10.00", false)

	_, err := l.RecordBulk(context.Background(), []MovementRequest{
		in(ProductTarget(a.ID), 5),
		out(ProductTarget(b.ID), 1),
	}, actor)
	if !apperr.IsValidation(err) {
		t.Fatalf("err = %v, want validation", err)
	}
	if got := testdb.Stock(t, db, a.ID, 0); got != 0 {
		t.Errorf("stock of A = %d, want 0 after rollback", got)
	}
}

func TestConcurrentOut_OneWins(t *testing.T) {
	l, db := newLedger(t)
	p := testdb.Product(t, db, "LAST", "10.00", false)
	target := ProductTarget(p.ID)
	mustRecord(t, l, in(target, 5))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = l.Record(context.Background(), out(target, 3), actor)
		}(i)
	}
	wg.Wait()

	ok, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.IsValidation(err):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || rejected != 1 {
		t.Errorf("successes = %d, rejections = %d, want 1 and 1", ok, rejected)
	}
	if got := testdb.Stock(t, db, p.ID, 0); got != 2 {
		t.Errorf("final stock = %d, want 2", got)
	}
}

func TestRecord_WritesAudit(t *testing.T) {
	l, db := newLedger(t)
	p := testdb.Product(t, db, "AUD", "10.00", false)
	mustRecord(t, l, in(ProductTarget(p.ID), 2))

	var logs []auditEntity.AuditLog
	db.Where("model = ?", "inventory_movement").Find(&logs)
	if len(logs) != 1 || logs[0].Action != auditEntity.ActionCreate {
		t.Errorf("audit logs = %+v, want one create entry", logs)
	}
}

func TestLockOrder(t *testing.T) {
	got := lockOrder([]Target{VariantTarget(2), ProductTarget(9), VariantTarget(1), ProductTarget(3), ProductTarget(9)})
	want := []Target{ProductTarget(3), ProductTarget(9), VariantTarget(1), VariantTarget(2)}
	if len(got) != len(want) {
		t.Fatalf("lockOrder = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("lockOrder[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestStocktake_AdjustsOnlyDifferences(t *testing.T) {
	l, db := newLedger(t)
	hat := testdb.Product(t, db, "CAP", "20", false)
	scarf := testdb.Product(t, db, "SCARF", "30", false)
	mustRecord(t, l, in(ProductTarget(hat.ID), 10))
	mustRecord(t, l, in(ProductTarget(scarf.ID), 4))

	mvs, err := l.Stocktake(context.Background(), []Count{
		{Target: ProductTarget(hat.ID), Quantity: 7},
		{Target: ProductTarget(scarf.ID), Quantity: 4},
	}, "", actor)
	if err != nil {
		t.Fatalf("Stocktake: %v", err)
	}
	if len(mvs) != 1 || mvs[0].MovementType != inventoryEntity.MovementAdjust || mvs[0].Quantity != -3 || mvs[0].Reason != "stocktake" {
		t.Fatalf("movements = %+v, want one adjust of -3", mvs)
	}
	if got := testdb.Stock(t, db, hat.ID, 0); got != 7 {
		t.Errorf("hat stock = %d, want 7", got)
	}
	rec, err := l.Reconcile(context.Background(), ProductTarget(hat.ID))
	if err != nil || !rec.Balanced() {
		t.Errorf("reconcile = %+v, %v", rec, err)
	}
}

func TestStocktake_Rejections(t *testing.T) {
	l, db := newLedger(t)
	p := testdb.Product(t, db, "CAP", "20", false)
	ctx := context.Background()

	if _, err := l.Stocktake(ctx, []Count{{Target: ProductTarget(p.ID), Quantity: -1}}, "", actor); !apperr.IsValidation(err) {
		t.Errorf("negative count err = %v", err)
	}
	dup := []Count{{Target: ProductTarget(p.ID), Quantity: 1}, {Target: ProductTarget(p.ID), Quantity: 2}}
	if _, err := l.Stocktake(ctx, dup, "", actor); !apperr.IsValidation(err) {
		t.Errorf("duplicate count err = %v", err)
	}
	if _, err := l.Stocktake(ctx, nil, "", actor); !apperr.IsValidation(err) {
		t.Errorf("empty counts err = %v", err)
	}
}
