package view

import (
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/cloudkitchen/services/ordering/internal/models"
)

func viewItems() []models.LineItem {
	return []models.LineItem{
		{ID: 1, ItemCode: 101, ItemName: "Chicken Breast", StorageType: models.StorageFridge, Source: models.SourceOnline, MeasCode: 1, MeasQty: 1, ReqQty: 5},
		{ID: 2, ItemCode: 102, ItemName: "Paneer", StorageType: models.StorageFridge, MeasCode: 1, MeasQty: 0.5, ReqQty: 0},
		{ID: 3, ItemCode: 103, ItemName: "Frozen Peas", StorageType: models.StorageFreezer, MeasCode: 2, MeasQty: 1, ReqQty: 7},
		{ID: 4, ItemCode: 104, ItemName: "Ice Cream", StorageType: models.StorageFreezer, MeasCode: 3, MeasQty: 1, ReqQty: 0},
	}
}

func TestVisibleWithEmptyFilterReturnsEverything(t *testing.T) {
	items := viewItems()
	visible := Visible(items, items, FilterState{})
	require.Len(t, visible, 4)
}

func TestSearchMatchesAnyField(t *testing.T) {
	items := viewItems()

	// Item name, case-insensitive substring
	visible := Visible(items, items, FilterState{Search: "pane"})
	require.Len(t, visible, 1)
	require.Equal(t, 102, visible[0].ItemCode)

	// Item code as text
	visible = Visible(items, items, FilterState{Search: "103"})
	require.Len(t, visible, 1)
	require.Equal(t, 103, visible[0].ItemCode)

	// Storage type
	visible = Visible(items, items, FilterState{Search: "freezer"})
	require.Len(t, visible, 2)

	// Source tag
	visible = Visible(items, items, FilterState{Search: "online"})
	require.Len(t, visible, 1)
	require.Equal(t, 101, visible[0].ItemCode)
}

func TestQtyFilterComparators(t *testing.T) {
	items := viewItems()

	tests := []struct {
		op   CmpOp
		n    int
		want int
	}{
		{CmpLT, 5, 2},
		{CmpLE, 5, 3},
		{CmpGT, 5, 1},
		{CmpGE, 5, 2},
		{CmpEQ, 0, 2},
	}
	for _, tt := range tests {
		visible := Visible(items, items, FilterState{Qty: &QtyFilter{Op: tt.op, Threshold: tt.n}})
		require.Len(t, visible, tt.want, "op %s threshold %d", tt.op, tt.n)
	}
}

func TestZeroOnlyToggle(t *testing.T) {
	items := viewItems()
	visible := Visible(items, items, FilterState{Toggle: ToggleZeroOnly})
	require.Len(t, visible, 2)
	for _, it := range visible {
		require.Zero(t, it.ReqQty)
	}
}

func TestUnchangedToggleComparesAgainstBaseline(t *testing.T) {
	baseline := viewItems()
	items := viewItems()
	items[0].ReqQty = 9

	visible := Visible(items, baseline, FilterState{Toggle: ToggleUnchanged})
	require.Len(t, visible, 3)
	for _, it := range visible {
		require.NotEqual(t, 101, it.ItemCode)
	}
}

func TestFiltersCompose(t *testing.T) {
	items := viewItems()
	visible := Visible(items, items, FilterState{
		Search: "freezer",
		Qty:    &QtyFilter{Op: CmpGT, Threshold: 0},
	})
	require.Len(t, visible, 1)
	require.Equal(t, 103, visible[0].ItemCode)
}

func TestVisibleIDsScopeSelectAllToFilteredSubset(t *testing.T) {
	items := viewItems()
	ids := VisibleIDs(items, items, FilterState{Toggle: ToggleZeroOnly})
	require.Equal(t, []int{2, 4}, ids)
}

func TestAllChecked(t *testing.T) {
	require.False(t, AllChecked(nil), "empty subset can never be all-checked")

	items := viewItems()
	require.False(t, AllChecked(items))

	for i := range items {
		items[i].Checked = true
	}
	require.True(t, AllChecked(items))
}
