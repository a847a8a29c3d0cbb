package catalog

import (
	"fmt"
	"net/http"
	"testing"

	"backoffice.GO/api/apitest"
	"backoffice.GO/core/testdb"
)

type productResponse struct {
	Product struct {
		ID             uint   `json:"id"`
		SKU            string `json:"sku"`
		Stock          int    `json:"stock"`
		Price          string `json:"price"`
		CostWithTax    string `json:"cost_with_tax"`
		SuggestedPrice string `json:"suggested_price"`
		LowStock       bool   `json:"low_stock"`
	} `json:"product"`
}

func TestCreateProduct_InitialStockGoesThroughLedger(t *testing.T) {
	s := apitest.New(t, RegisterCatalogRoutes)

	rec := s.Do(t, http.MethodPost, "/api/catalog/products", map[string]interface{}{
		"sku": "JKT-0001", "name": "Jacket", "cost": "100", "initial_stock": 12,
	})
	apitest.Expect(t, rec, http.StatusCreated)
	var created productResponse
	apitest.Decode(t, rec, &created)
	if created.Product.Stock != 12 || created.Product.LowStock {
		t.Errorf("product = %+v, want stock 12 and not low", created.Product)
	}
	if created.Product.CostWithTax != "119" || created.Product.SuggestedPrice != "154.7" || created.Product.Price != "154.7" {
		t.Errorf("pricing = %+v", created.Product)
	}

	detail, ok := reconcile(t, s, created.Product.ID)
	if !ok {
		t.Errorf("ledger does not explain stock: %s", detail)
	}
}

func TestCreateProduct_Rejections(t *testing.T) {
	s := apitest.New(t, RegisterCatalogRoutes)
	cases := []map[string]interface{}{
		{"name": ""},
		{"name": "Hat", "initial_stock": -1},
		{"name": "Hat", "has_variants": true, "initial_stock": 3},
		{"name": "Hat", "category_ids": []uint{42}},
	}
	for i, body := range cases {
		if rec := s.Do(t, http.MethodPost, "/api/catalog/products", body); rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("case %d: status = %d body = %s", i, rec.Code, rec.Body.String())
		}
	}
}

func TestVariantsAndPricing(t *testing.T) {
	s := apitest.New(t, RegisterCatalogRoutes)
	p := testdb.Product(t, s.DB, "HOOD", "80", true)

	rec := s.Do(t, http.MethodPost, fmt.Sprintf("/api/catalog/products/%d/variants", p.ID), map[string]interface{}{
		"size": "M", "color": "Black", "initial_stock": 4,
	})
	apitest.Expect(t, rec, http.StatusCreated)
	var created struct {
		Variant struct {
			ID    uint   `json:"id"`
			SKU   string `json:"sku"`
			Stock int    `json:"stock"`
		} `json:"variant"`
	}
	apitest.Decode(t, rec, &created)
	if created.Variant.SKU == "" || created.Variant.Stock != 4 {
		t.Errorf("variant = %+v", created.Variant)
	}
	if got := testdb.Stock(t, s.DB, p.ID, created.Variant.ID); got != 4 {
		t.Errorf("stored variant stock = %d, want 4", got)
	}

	rec = s.Do(t, http.MethodPost, fmt.Sprintf("/api/catalog/products/%d/variants", p.ID), map[string]interface{}{"size": "M", "color": "Black"})
	apitest.Expect(t, rec, http.StatusUnprocessableEntity)

	rec = s.Do(t, http.MethodPatch, fmt.Sprintf("/api/catalog/products/%d/pricing", p.ID), map[string]interface{}{"price": "95.5"})
	apitest.Expect(t, rec, http.StatusOK)
	var priced productResponse
	apitest.Decode(t, rec, &priced)
	if priced.Product.Price != "95.5" {
		t.Errorf("price = %s, want 95.5", priced.Product.Price)
	}
}

func TestCategoriesAndFiltering(t *testing.T) {
	s := apitest.New(t, RegisterCatalogRoutes)

	rec := s.Do(t, http.MethodPost, "/api/catalog/categories", map[string]interface{}{"name": "Apparel"})
	apitest.Expect(t, rec, http.StatusCreated)
	var parent struct {
		Category struct {
			ID uint `json:"id"`
		} `json:"category"`
	}
	apitest.Decode(t, rec, &parent)
	rec = s.Do(t, http.MethodPost, "/api/catalog/categories", map[string]interface{}{"name": "Coats", "parent_id": parent.Category.ID})
	apitest.Expect(t, rec, http.StatusCreated)
	var child struct {
		Category struct {
			ID uint `json:"id"`
		} `json:"category"`
	}
	apitest.Decode(t, rec, &child)

	apitest.Expect(t, s.Do(t, http.MethodPost, "/api/catalog/products", map[string]interface{}{
		"name": "Parka", "cost": "50", "category_ids": []uint{child.Category.ID},
	}), http.StatusCreated)
	apitest.Expect(t, s.Do(t, http.MethodPost, "/api/catalog/products", map[string]interface{}{"name": "Mug", "cost": "5"}), http.StatusCreated)

	rec = s.Do(t, http.MethodGet, fmt.Sprintf("/api/catalog/products?category_id=%d", parent.Category.ID), nil)
	apitest.Expect(t, rec, http.StatusOK)
	var list struct {
		Count int `json:"count"`
	}
	apitest.Decode(t, rec, &list)
	if list.Count != 1 {
		t.Errorf("count = %d, want the parka through the child category", list.Count)
	}
}

func reconcile(t *testing.T, s *apitest.Server, productID uint) (string, bool) {
	t.Helper()
	var p struct{ Stock int }
	s.DB.Table("products").Select("stock").Where("id = ?", productID).Scan(&p)
	var sum int64
	s.DB.Table("inventory_movements").Select("COALESCE(SUM(quantity), 0)").
		Where("product_id = ? AND movement_type = 'in'", productID).Scan(&sum)
	return fmt.Sprintf("stock %d, movements %d", p.Stock, sum), int64(p.Stock) == sum
}
