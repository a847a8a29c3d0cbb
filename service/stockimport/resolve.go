package stockimport

import (
	"context"
	"fmt"

	catalogEntity "backoffice.GO/model/entity/catalog"
	"backoffice.GO/service/ledger"
)

const lookupChunk = 500

type resolved struct {
	target ledger.Target
	err    string
}

// resolve maps SKUs to stock targets. Variant SKUs win over product SKUs;
// a product SKU of a product with variants resolves to an error.
func (im *Importer) resolve(ctx context.Context, skus []string) (map[string]resolved, error) {
	out := make(map[string]resolved, len(skus))
	db := im.db.WithContext(ctx)
	for i := 0; i < len(skus); i += lookupChunk {
		end := i + lookupChunk
		if end > len(skus) {
			end = len(skus)
		}
		chunk := skus[i:end]

		var products []catalogEntity.Product
		if err := db.Select("id, sku, has_variants").Where("sku IN ?", chunk).Find(&products).Error; err != nil {
			return nil, fmt.Errorf("lookup product skus: %w", err)
		}
		for _, p := range products {
			if p.HasVariants {
				out[p.SKU] = resolved{err: "product has variants; import variant skus"}
				continue
			}
			out[p.SKU] = resolved{target: ledger.ProductTarget(p.ID)}
		}

		var variants []catalogEntity.Variant
		if err := db.Select("id, sku, is_active").Where("sku IN ?", chunk).Find(&variants).Error; err != nil {
			return nil, fmt.Errorf("lookup variant skus: %w", err)
		}
		for _, v := range variants {
			if !v.IsActive {
				out[v.SKU] = resolved{err: "variant is inactive"}
				continue
			}
			out[v.SKU] = resolved{target: ledger.VariantTarget(v.ID)}
		}
	}
	return out, nil
}
