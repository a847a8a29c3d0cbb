package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"backoffice.GO/core/apperr"
	"backoffice.GO/core/cache"
	"backoffice.GO/core/testdb"
	"backoffice.GO/service/audit"
)

var actor = audit.Actor{Username: "buyer"}

func newService(t *testing.T, rolls ...int) *Service {
	t.Helper()
	db := testdb.Open(t)
	s := NewService(db, cache.NewCache(), audit.NewRecorder(db, nil), nil)
	i := 0
	s.rnd = func(int) int {
		r := rolls[min(i, len(rolls)-1)]
		i++
		return r
	}
	return s
}

func TestCreateProduct_RetriesTakenSKU(t *testing.T) {
	s := newService(t, 42, 42, 7)
	first, err := s.CreateProduct(context.Background(), ProductInput{Name: "Hat", Cost: decimal.NewFromInt(10)}, actor)
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if first.SKU != "HAT-0042" {
		t.Fatalf("first sku = %q, want HAT-0042", first.SKU)
	}
	second, err := s.CreateProduct(context.Background(), ProductInput{Name: "Hat", Cost: decimal.NewFromInt(10)}, actor)
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if second.SKU != "HAT-0007" {
		t.Errorf("second sku = %q, want HAT-0007", second.SKU)
	}
}

func TestCreateProduct_GivesUpAfterAttempts(t *testing.T) {
	s := newService(t, 42)
	if _, err := s.CreateProduct(context.Background(), ProductInput{Name: "Hat"}, actor); err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	calls := 0
	inner := s.rnd
	s.rnd = func(n int) int {
		calls++
		return inner(n)
	}
	_, err := s.CreateProduct(context.Background(), ProductInput{Name: "Hat"}, actor)
	if !apperr.IsConsistency(err) {
		t.Fatalf("err = %v, want consistency", err)
	}
	if calls != skuAttempts {
		t.Errorf("attempts = %d, want %d", calls, skuAttempts)
	}
}

func TestCreateVariant_RetriesTakenSKU(t *testing.T) {
	s := newService(t, 3, 3, 3, 9)
	p, err := s.CreateProduct(context.Background(), ProductInput{SKU: "TEE-0001", Name: "Tee", HasVariants: true}, actor)
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	first, err := s.CreateVariant(context.Background(), p.ID, VariantInput{Size: "M", Color: "Red"}, actor)
	if err != nil {
		t.Fatalf("CreateVariant: %v", err)
	}
	second, err := s.CreateVariant(context.Background(), p.ID, VariantInput{Size: "M", Color: "Redwood"}, actor)
	if err != nil {
		t.Fatalf("CreateVariant: %v", err)
	}
	if first.SKU != "TEE-M-RED-03" || second.SKU != "TEE-M-RED-09" {
		t.Errorf("skus = %q, %q", first.SKU, second.SKU)
	}
}

func TestSKUPrefixCountsLetters(t *testing.T) {
	five := func(int) int { return 5 }
	cases := map[string]string{
		"Ñandú":    "ÑAN-0005",
		"Él":       "ÉLX-0005",
		"  ":       "PRD-0005",
		"a-b c":    "ABC-0005",
		"Étagère!": "ÉTA-0005",
	}
	for name, want := range cases {
		if got := ProductSKU(name, five); got != want {
			t.Errorf("ProductSKU(%q) = %q, want %q", name, got, want)
		}
	}
	if got := VariantSKU("CAM-0001", "Pequeño", "Azul", five); got != "CAM-PEQ-AZU-05" {
		t.Errorf("VariantSKU = %q", got)
	}
}
