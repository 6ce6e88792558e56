package adjust

import (
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/cloudkitchen/services/ordering/internal/models"
)

func TestInitialRequestedQty(t *testing.T) {
	tests := []struct {
		name string
		item models.LineItem
		want int
	}{
		{
			name: "shortfall against recommendation",
			item: models.LineItem{RecommendedQty: 12, AvailableQty: 5, MaxQty: 30},
			want: 7,
		},
		{
			name: "recommendation exceeds stock, top up to capacity",
			item: models.LineItem{RecommendedQty: 12, AvailableQty: 5, MaxQty: 10},
			want: 5,
		},
		{
			name: "stock covers recommendation",
			item: models.LineItem{RecommendedQty: 3, AvailableQty: 5, MaxQty: 30},
			want: 0,
		},
		{
			name: "capacity below stock never goes negative",
			item: models.LineItem{RecommendedQty: 12, AvailableQty: 8, MaxQty: 6},
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, InitialRequestedQty(tt.item))
		})
	}
}

func TestSeedStampsOriginalAndClearsChecked(t *testing.T) {
	item := models.LineItem{RecommendedQty: 12, AvailableQty: 5, MaxQty: 30, Checked: true}
	seeded := Seed(item)
	require.Equal(t, 7, seeded.ReqQty)
	require.Equal(t, 7, seeded.OriginalQty)
	require.False(t, seeded.Checked)
}

func TestApplyBulkPercentRoundsHalfAwayFromZero(t *testing.T) {
	items := []models.LineItem{
		{ReqQty: 5},  // +10% = 5.5, rounds to 6
		{ReqQty: 14}, // +10% = 15.4, rounds to 15
	}
	out := ApplyBulk(items, OpAdd, 10, ModePercent)
	require.Equal(t, 6, out[0].ReqQty)
	require.Equal(t, 15, out[1].ReqQty)
}

func TestApplyBulkFloorsAtZero(t *testing.T) {
	items := []models.LineItem{{ReqQty: 40}}

	out := ApplyBulk(items, OpSubtract, 110, ModePercent)
	require.Equal(t, 0, out[0].ReqQty)

	out = ApplyBulk(items, OpSubtract, 100, ModeAbsolute)
	require.Equal(t, 0, out[0].ReqQty)
}

func TestApplyBulkAbsolute(t *testing.T) {
	items := []models.LineItem{{ReqQty: 10}, {ReqQty: 0}}
	out := ApplyBulk(items, OpAdd, 3, ModeAbsolute)
	require.Equal(t, 13, out[0].ReqQty)
	require.Equal(t, 3, out[1].ReqQty)
}

func TestZeroMagnitudeIsStrictNoOp(t *testing.T) {
	items := []models.LineItem{{ReqQty: 10, Checked: true}}

	require.Equal(t, items, ApplyBulk(items, OpAdd, 0, ModePercent))
	require.Equal(t, items, ApplyToChecked(items, OpSubtract, 0, ModeAbsolute))
	require.Equal(t, items, ApplyByStorageType(items, models.StorageFridge, OpAdd, 0))
}

func TestApplyToCheckedSkipsUnchecked(t *testing.T) {
	items := []models.LineItem{
		{ReqQty: 10, Checked: true},
		{ReqQty: 10, Checked: false},
	}
	out := ApplyToChecked(items, OpAdd, 50, ModePercent)
	require.Equal(t, 15, out[0].ReqQty)
	require.Equal(t, 10, out[1].ReqQty)
}

func TestApplyByStorageTypeOnlyTouchesMatchingRows(t *testing.T) {
	items := []models.LineItem{
		{ReqQty: 10, StorageType: models.StorageFreezer},
		{ReqQty: 10, StorageType: models.StorageFridge},
	}
	out := ApplyByStorageType(items, models.StorageFreezer, OpSubtract, 20)
	require.Equal(t, 8, out[0].ReqQty)
	require.Equal(t, 10, out[1].ReqQty)
}

func TestApplyBySourceSpansAllGroups(t *testing.T) {
	groups := []models.DeliveryGroup{
		{Items: []models.LineItem{
			{ReqQty: 10, Source: models.SourceOnline},
			{ReqQty: 10, Source: models.SourceEvent},
		}},
		{Items: []models.LineItem{
			{ReqQty: 4, Source: models.SourceOnline},
		}},
	}
	out := ApplyBySource(groups, models.SourceOnline, OpAdd, 25)
	require.Equal(t, 13, out[0].Items[0].ReqQty)
	require.Equal(t, 10, out[0].Items[1].ReqQty)
	require.Equal(t, 5, out[1].Items[0].ReqQty)

	// Input groups stay untouched
	require.Equal(t, 10, groups[0].Items[0].ReqQty)
}
