// Package adjust computes seed quantities for freshly fetched line items and
// applies bulk arithmetic edits to the requested quantity.
package adjust

import (
	"math"

	"example.com/cloudkitchen/services/ordering/internal/models"
)

// Operator is the sign of a bulk adjustment.
type Operator string

const (
	OpAdd      Operator = "+"
	OpSubtract Operator = "-"
)

// Mode chooses how the magnitude is interpreted.
type Mode string

const (
	ModePercent  Mode = "PERCENT"
	ModeAbsolute Mode = "ABSOLUTE"
)

// InitialRequestedQty derives the quantity suggested to the user when a group
// is first populated. When the recommendation already exceeds what is on hand
// the order tops the store up to capacity; otherwise it covers the shortfall
// against the recommendation. Never negative.
func InitialRequestedQty(item models.LineItem) int {
	var qty int
	if item.RecommendedQty > item.AvailableQty {
		qty = item.MaxQty - item.AvailableQty
	} else {
		qty = item.RecommendedQty - item.AvailableQty
	}
	if qty < 0 {
		qty = 0
	}
	return qty
}

// Seed stamps an item with its initial requested quantity, recording the same
// value as the immutable original used for dirty detection.
func Seed(item models.LineItem) models.LineItem {
	qty := InitialRequestedQty(item)
	item.ReqQty = qty
	item.OriginalQty = qty
	item.Checked = false
	return item
}

// ApplyBulk applies one arithmetic edit to the requested quantity of every
// item in the subset. Only ReqQty changes; the result is rounded half away
// from zero and floored at 0. A zero magnitude is a strict no-op so it never
// shows up as a phantom change.
func ApplyBulk(items []models.LineItem, op Operator, magnitude float64, mode Mode) []models.LineItem {
	if magnitude == 0 {
		return items
	}
	out := make([]models.LineItem, len(items))
	for i, it := range items {
		it.ReqQty = applied(it.ReqQty, op, magnitude, mode)
		out[i] = it
	}
	return out
}

// ApplyToChecked is ApplyBulk restricted to the checked subset of a group;
// unchecked rows pass through untouched.
func ApplyToChecked(items []models.LineItem, op Operator, magnitude float64, mode Mode) []models.LineItem {
	if magnitude == 0 {
		return items
	}
	out := make([]models.LineItem, len(items))
	for i, it := range items {
		if it.Checked {
			it.ReqQty = applied(it.ReqQty, op, magnitude, mode)
		}
		out[i] = it
	}
	return out
}

// ApplyByStorageType applies a percentage edit to every item of one storage
// classification within a group, the cart screen's filter adjustment.
func ApplyByStorageType(items []models.LineItem, st models.StorageType, op Operator, percentage float64) []models.LineItem {
	if percentage == 0 {
		return items
	}
	out := make([]models.LineItem, len(items))
	for i, it := range items {
		if it.StorageType == st {
			it.ReqQty = applied(it.ReqQty, op, percentage, ModePercent)
		}
		out[i] = it
	}
	return out
}

// ApplyBySource applies a percentage edit across every group to items carrying
// the given demand-source tag, matching by category instead of selection.
func ApplyBySource(groups []models.DeliveryGroup, source string, op Operator, percentage float64) []models.DeliveryGroup {
	if percentage == 0 {
		return groups
	}
	out := make([]models.DeliveryGroup, len(groups))
	for gi, g := range groups {
		items := make([]models.LineItem, len(g.Items))
		for i, it := range g.Items {
			if it.Source == source {
				it.ReqQty = applied(it.ReqQty, op, percentage, ModePercent)
			}
			items[i] = it
		}
		out[gi] = models.DeliveryGroup{Config: g.Config, Items: items}
	}
	return out
}

// applied computes the new requested quantity. Only the in-flight delta may be
// negative; the stored result never is.
func applied(current int, op Operator, magnitude float64, mode Mode) int {
	delta := magnitude
	if mode == ModePercent {
		delta = float64(current) * magnitude / 100
	}
	val := float64(current)
	if op == OpSubtract {
		val -= delta
	} else {
		val += delta
	}
	rounded := int(math.Round(val))
	if rounded < 0 {
		rounded = 0
	}
	return rounded
}
