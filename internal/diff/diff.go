// Package diff compares the editable state of a delivery group against its
// baseline snapshot and produces the minimal change-set for submission.
package diff

import (
	"example.com/cloudkitchen/services/ordering/internal/models"
)

// IsDirty reports whether any tracked editable field differs from the
// baseline copy. Comparison is by value.
func IsDirty(item, base models.LineItem) bool {
	return item.ReqQty != base.ReqQty ||
		item.StorageType != base.StorageType ||
		item.MaxQty != base.MaxQty
}

// Changed returns the items in the group that should be part of a submission:
// rows whose merge identity exists in the baseline and are dirty, plus rows
// with no baseline entry at all (added this session). Deleted rows are simply
// absent; no delete markers are ever produced.
func Changed(items, baseline []models.LineItem) []models.LineItem {
	byKey := make(map[models.MergeKey]models.LineItem, len(baseline))
	for _, b := range baseline {
		byKey[b.Key()] = b
	}

	var out []models.LineItem
	for _, it := range items {
		base, ok := byKey[it.Key()]
		if !ok {
			out = append(out, it)
			continue
		}
		if IsDirty(it, base) {
			out = append(out, it)
		}
	}
	return out
}
