// Package view derives what the user currently sees in a delivery group:
// free-text search, one numeric comparator on the requested quantity and the
// exclusive zero/unchanged toggles. Results are non-owning copies; the
// underlying group is never mutated here.
package view

import (
	"strconv"
	"strings"

	"example.com/cloudkitchen/services/ordering/internal/diff"
	"example.com/cloudkitchen/services/ordering/internal/models"
)

// CmpOp is a numeric comparison operator for the quantity filter.
type CmpOp string

const (
	CmpLT CmpOp = "<"
	CmpLE CmpOp = "<="
	CmpGT CmpOp = ">"
	CmpGE CmpOp = ">="
	CmpEQ CmpOp = "="
)

// QtyFilter is the single active comparison against the requested quantity.
type QtyFilter struct {
	Op        CmpOp `json:"op"`
	Threshold int   `json:"threshold"`
}

// Toggle is one of the mutually exclusive categorical view modes.
type Toggle string

const (
	ToggleNone      Toggle = ""
	ToggleZeroOnly  Toggle = "ZERO_ONLY"
	ToggleUnchanged Toggle = "UNCHANGED_ONLY"
)

// FilterState is the transient per-group filter configuration. It is never
// submitted anywhere.
type FilterState struct {
	Search string     `json:"search"`
	Qty    *QtyFilter `json:"qty,omitempty"`
	Toggle Toggle     `json:"toggle,omitempty"`
}

// Visible returns the subset of items the filter lets through, in group
// order. The search term matches case-insensitively against item name, item
// code, storage type and source tag; a row passes if any field matches. The
// unchanged toggle compares against the group's baseline.
func Visible(items, baseline []models.LineItem, fs FilterState) []models.LineItem {
	byKey := make(map[models.MergeKey]models.LineItem, len(baseline))
	for _, b := range baseline {
		byKey[b.Key()] = b
	}

	var out []models.LineItem
	for _, it := range items {
		if !matchesSearch(it, fs.Search) {
			continue
		}
		if fs.Qty != nil && !matchesQty(it.ReqQty, *fs.Qty) {
			continue
		}
		switch fs.Toggle {
		case ToggleZeroOnly:
			if it.ReqQty != 0 {
				continue
			}
		case ToggleUnchanged:
			base, ok := byKey[it.Key()]
			if !ok || diff.IsDirty(it, base) {
				continue
			}
		}
		out = append(out, it)
	}
	return out
}

// VisibleIDs returns just the ids of the visible subset, the shape the store
// wants for scoped select-all.
func VisibleIDs(items, baseline []models.LineItem, fs FilterState) []int {
	visible := Visible(items, baseline, fs)
	ids := make([]int, len(visible))
	for i, it := range visible {
		ids[i] = it.ID
	}
	return ids
}

// AllChecked reports whether the visible subset is non-empty and entirely
// checked. Drives the header checkbox.
func AllChecked(visible []models.LineItem) bool {
	if len(visible) == 0 {
		return false
	}
	for _, it := range visible {
		if !it.Checked {
			return false
		}
	}
	return true
}

func matchesSearch(it models.LineItem, term string) bool {
	term = strings.TrimSpace(strings.ToLower(term))
	if term == "" {
		return true
	}
	fields := []string{
		strings.ToLower(it.ItemName),
		strconv.Itoa(it.ItemCode),
		strings.ToLower(string(it.StorageType)),
		strings.ToLower(it.Source),
	}
	for _, f := range fields {
		if strings.Contains(f, term) {
			return true
		}
	}
	return false
}

func matchesQty(qty int, f QtyFilter) bool {
	switch f.Op {
	case CmpLT:
		return qty < f.Threshold
	case CmpLE:
		return qty <= f.Threshold
	case CmpGT:
		return qty > f.Threshold
	case CmpGE:
		return qty >= f.Threshold
	case CmpEQ:
		return qty == f.Threshold
	default:
		return true
	}
}
