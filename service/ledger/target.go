package ledger

import (
	"fmt"
	"sort"

	inventoryEntity "backoffice.GO/model/entity/inventory"
)

type targetKind uint8

const (
	kindProduct targetKind = iota + 1
	kindVariant
)

// Target is the row a movement changes: a product or one of its variants.
// The zero value is invalid; build targets with ProductTarget or VariantTarget.
type Target struct {
	kind targetKind
	id   uint
}

func ProductTarget(id uint) Target { return Target{kind: kindProduct, id: id} }

func VariantTarget(id uint) Target { return Target{kind: kindVariant, id: id} }

// TargetFor picks the variant when variantID is set.
func TargetFor(productID uint, variantID *uint) Target {
	if variantID != nil {
		return VariantTarget(*variantID)
	}
	return ProductTarget(productID)
}

// TargetOf returns the target m applies to.
func TargetOf(m *inventoryEntity.Movement) Target {
	return TargetFor(m.ProductID, m.VariantID)
}

func (t Target) ID() uint { return t.id }

func (t Target) IsVariant() bool { return t.kind == kindVariant }

func (t Target) IsProduct() bool { return t.kind == kindProduct }

func (t Target) Valid() bool { return t.kind != 0 && t.id != 0 }

func (t Target) String() string {
	switch t.kind {
	case kindProduct:
		return fmt.Sprintf("product %d", t.id)
	case kindVariant:
		return fmt.Sprintf("variant %d", t.id)
	}
	return "invalid target"
}

// lockOrder de-duplicates targets and sorts products by id, then variants by id.
// All ledger transactions acquire row locks in this order.
func lockOrder(targets []Target) []Target {
	seen := make(map[Target]bool, len(targets))
	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].kind != out[j].kind {
			return out[i].kind < out[j].kind
		}
		return out[i].id < out[j].id
	})
	return out
}
