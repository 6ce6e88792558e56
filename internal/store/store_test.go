package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/cloudkitchen/services/ordering/internal/models"
)

func testGroups() []models.DeliveryGroup {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	thursday := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	return []models.DeliveryGroup{
		{
			Config: models.GroupConfig{DeliveryDate: monday, Day: "MONDAY"},
			Items: []models.LineItem{
				{ItemCode: 101, ItemName: "Chicken Breast", StorageType: models.StorageFridge, MeasCode: 1, MeasQty: 1, UOM: "KG", RecommendedQty: 5, ReqQty: 5, OriginalQty: 5},
				{ItemCode: 102, ItemName: "Paneer", StorageType: models.StorageFridge, MeasCode: 1, MeasQty: 0.5, UOM: "KG", RecommendedQty: 3, ReqQty: 3, OriginalQty: 3},
				{ItemCode: 103, ItemName: "Frozen Peas", StorageType: models.StorageFreezer, MeasCode: 2, MeasQty: 1, UOM: "PKT", RecommendedQty: 7, ReqQty: 7, OriginalQty: 7},
			},
		},
		{
			Config: models.GroupConfig{DeliveryDate: thursday, Day: "THURSDAY"},
			Items: []models.LineItem{
				{ItemCode: 101, ItemName: "Chicken Breast", StorageType: models.StorageFridge, MeasCode: 1, MeasQty: 1, UOM: "KG", RecommendedQty: 8, ReqQty: 8, OriginalQty: 8},
				{ItemCode: 104, ItemName: "Ice Cream", StorageType: models.StorageFreezer, MeasCode: 3, MeasQty: 1, UOM: "TUB", RecommendedQty: 2, ReqQty: 2, OriginalQty: 2},
			},
		},
	}
}

func requireDenseIDs(t *testing.T, items []models.LineItem) {
	t.Helper()
	for i, it := range items {
		require.Equal(t, i+1, it.ID, "item at position %d has id %d", i, it.ID)
	}
}

func TestLoadResequencesAndStampsDates(t *testing.T) {
	s := Load(testGroups())

	require.Len(t, s.Groups, 2)
	requireDenseIDs(t, s.Groups[0].Items)
	requireDenseIDs(t, s.Groups[1].Items)

	for _, it := range s.Groups[0].Items {
		require.Equal(t, "2026-03-02", it.DeliveryDate)
	}
	for _, it := range s.Groups[1].Items {
		require.Equal(t, "2026-03-05", it.DeliveryDate)
	}

	// Baseline mirrors the loaded items exactly
	require.Equal(t, s.Groups[0].Items, s.Baseline(0))
	require.Equal(t, s.Groups[1].Items, s.Baseline(1))
}

func TestOperationsAreValueSemantics(t *testing.T) {
	s := Load(testGroups())

	next, err := s.UpdateReqQty(0, 1, 99)
	require.NoError(t, err)

	require.Equal(t, 5, s.Groups[0].Items[0].ReqQty, "previous state must stay unchanged")
	require.Equal(t, 99, next.Groups[0].Items[0].ReqQty)
}

func TestAddItemInsertsAtHeadAndRejectsDuplicates(t *testing.T) {
	s := Load(testGroups())

	added := models.LineItem{ItemCode: 200, ItemName: "Basmati Rice", MeasCode: 1, MeasQty: 5, UOM: "KG"}
	next, err := s.AddItem(0, added)
	require.NoError(t, err)

	require.Len(t, next.Groups[0].Items, 4)
	require.Equal(t, 200, next.Groups[0].Items[0].ItemCode)
	require.Equal(t, "2026-03-02", next.Groups[0].Items[0].DeliveryDate)
	require.False(t, next.Groups[0].Items[0].Checked)
	requireDenseIDs(t, next.Groups[0].Items)

	// Same identity again is rejected and the state is untouched
	dup := models.LineItem{ItemCode: 200, MeasCode: 1, MeasQty: 5}
	rejected, err := next.AddItem(0, dup)
	require.ErrorIs(t, err, ErrDuplicateItem)
	require.Equal(t, next, rejected)

	// Same item code with a different pack size is a distinct identity
	otherPack := models.LineItem{ItemCode: 200, MeasCode: 1, MeasQty: 10, UOM: "KG"}
	_, err = next.AddItem(0, otherPack)
	require.NoError(t, err)
}

func TestDeleteItemResequencesAndToleratesMissingIDs(t *testing.T) {
	s := Load(testGroups())

	next, err := s.DeleteItem(0, 2)
	require.NoError(t, err)
	require.Len(t, next.Groups[0].Items, 2)
	require.Equal(t, []int{101, 103}, []int{next.Groups[0].Items[0].ItemCode, next.Groups[0].Items[1].ItemCode})
	requireDenseIDs(t, next.Groups[0].Items)

	// Deleting an id that is not there changes nothing and returns no error
	same, err := next.DeleteItem(0, 42)
	require.NoError(t, err)
	require.Equal(t, next.Groups[0].Items, same.Groups[0].Items)
}

func TestGroupIndexOutOfRangeIsLoud(t *testing.T) {
	s := Load(testGroups())

	_, err := s.DeleteItem(5, 1)
	require.ErrorIs(t, err, ErrGroupIndex)

	_, err = s.SetAllChecked(-1, true)
	require.ErrorIs(t, err, ErrGroupIndex)
}

func TestDeleteCheckedRequiresSelection(t *testing.T) {
	s := Load(testGroups())

	_, err := s.DeleteChecked(0)
	require.ErrorIs(t, err, ErrNothingSelected)

	checked, err := s.ToggleItem(0, 1)
	require.NoError(t, err)
	checked, err = checked.ToggleItem(0, 3)
	require.NoError(t, err)

	next, err := checked.DeleteChecked(0)
	require.NoError(t, err)
	require.Len(t, next.Groups[0].Items, 1)
	require.Equal(t, 102, next.Groups[0].Items[0].ItemCode)
	requireDenseIDs(t, next.Groups[0].Items)
}

func TestSetCheckedOnlyTouchesGivenIDs(t *testing.T) {
	s := Load(testGroups())

	next, err := s.SetChecked(0, []int{1, 3}, true)
	require.NoError(t, err)
	require.True(t, next.Groups[0].Items[0].Checked)
	require.False(t, next.Groups[0].Items[1].Checked)
	require.True(t, next.Groups[0].Items[2].Checked)

	// Unchecking the same subset leaves the middle row alone too
	next, err = next.SetChecked(0, []int{1, 3}, false)
	require.NoError(t, err)
	for _, it := range next.Groups[0].Items {
		require.False(t, it.Checked)
	}
}

func TestUpdateReqQtyClampsAtZero(t *testing.T) {
	s := Load(testGroups())

	next, err := s.UpdateReqQty(0, 1, -10)
	require.NoError(t, err)
	require.Equal(t, 0, next.Groups[0].Items[0].ReqQty)
}

func TestMoveItemMergesIntoExistingIdentity(t *testing.T) {
	s := Load(testGroups())

	// Chicken Breast exists in both groups: 5 recommended in Monday,
	// 8 in Thursday. Moving Monday's row must sum to 13, not duplicate.
	next, err := s.MoveItem(0, 1, 1)
	require.NoError(t, err)

	require.Len(t, next.Groups[0].Items, 2)
	require.Len(t, next.Groups[1].Items, 2)
	requireDenseIDs(t, next.Groups[0].Items)
	requireDenseIDs(t, next.Groups[1].Items)

	var merged *models.LineItem
	for i := range next.Groups[1].Items {
		if next.Groups[1].Items[i].ItemCode == 101 {
			merged = &next.Groups[1].Items[i]
		}
	}
	require.NotNil(t, merged)
	require.Equal(t, 13, merged.RecommendedQty)
}

func TestMoveItemToForeignGroupAppends(t *testing.T) {
	s := Load(testGroups())

	// Paneer only exists in Monday; it lands in Thursday stamped with the
	// destination date and unchecked.
	checked, err := s.ToggleItem(0, 2)
	require.NoError(t, err)
	next, err := checked.MoveItem(0, 1, 2)
	require.NoError(t, err)

	require.Len(t, next.Groups[1].Items, 3)
	moved := next.Groups[1].Items[2]
	require.Equal(t, 102, moved.ItemCode)
	require.Equal(t, "2026-03-05", moved.DeliveryDate)
	require.False(t, moved.Checked)
}

func TestMoveItemSameGroupIsNoOp(t *testing.T) {
	s := Load(testGroups())
	next, err := s.MoveItem(0, 0, 1)
	require.NoError(t, err)
	require.Equal(t, s.Groups, next.Groups)
}

func TestMoveCheckedInfersOtherGroupForTwoGroupLayout(t *testing.T) {
	s := Load(testGroups())

	checked, err := s.SetChecked(0, []int{2, 3}, true)
	require.NoError(t, err)

	next, err := checked.MoveChecked(0, -1)
	require.NoError(t, err)
	require.Len(t, next.Groups[0].Items, 1)
	require.Len(t, next.Groups[1].Items, 4)
	requireDenseIDs(t, next.Groups[1].Items)
}

func TestMoveCheckedNeedsExplicitTargetBeyondTwoGroups(t *testing.T) {
	groups := testGroups()
	groups = append(groups, models.DeliveryGroup{
		Config: models.GroupConfig{DeliveryDate: time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC), Day: "SATURDAY"},
	})
	s := Load(groups)

	checked, err := s.SetChecked(0, []int{1}, true)
	require.NoError(t, err)

	_, err = checked.MoveChecked(0, -1)
	require.ErrorIs(t, err, ErrNoMoveTarget)

	next, err := checked.MoveChecked(0, 2)
	require.NoError(t, err)
	require.Len(t, next.Groups[2].Items, 1)
	require.Equal(t, "2026-03-07", next.Groups[2].Items[0].DeliveryDate)
}

func TestConsolidateRoutesStorageTypeToTarget(t *testing.T) {
	s := Load(testGroups())

	next, err := s.Consolidate([]ConsolidationRule{
		{StorageType: models.StorageFreezer, TargetGroup: 0},
	})
	require.NoError(t, err)

	// Ice Cream left Thursday for Monday; Frozen Peas stayed put
	require.Len(t, next.Groups[0].Items, 4)
	require.Len(t, next.Groups[1].Items, 1)
	require.Equal(t, 101, next.Groups[1].Items[0].ItemCode)
	requireDenseIDs(t, next.Groups[0].Items)
	requireDenseIDs(t, next.Groups[1].Items)

	for _, it := range next.Groups[0].Items {
		if it.ItemCode == 104 {
			require.Equal(t, "2026-03-02", it.DeliveryDate)
		}
	}
}

func TestConsolidateRejectsBadTarget(t *testing.T) {
	s := Load(testGroups())
	_, err := s.Consolidate([]ConsolidationRule{
		{StorageType: models.StorageFreezer, TargetGroup: 9},
	})
	require.ErrorIs(t, err, ErrGroupIndex)
}

func TestReplaceItemsKeepsBaseline(t *testing.T) {
	s := Load(testGroups())

	edited := cloneItems(s.Groups[0].Items)
	for i := range edited {
		edited[i].ReqQty *= 2
	}

	next, err := s.ReplaceItems(0, edited)
	require.NoError(t, err)
	require.Equal(t, 10, next.Groups[0].Items[0].ReqQty)
	require.Equal(t, 5, next.Baseline(0)[0].ReqQty)
	require.Equal(t, 5, s.Groups[0].Items[0].ReqQty, "previous state untouched")

	_, err = s.ReplaceItems(7, edited)
	require.ErrorIs(t, err, ErrGroupIndex)
}

func TestReplaceAllGroupsRejectsCountMismatch(t *testing.T) {
	s := Load(testGroups())

	_, err := s.ReplaceAllGroups(s.Groups[:1])
	require.ErrorIs(t, err, ErrGroupIndex)

	next, err := s.ReplaceAllGroups(s.Groups)
	require.NoError(t, err)
	require.Equal(t, s.Groups, next.Groups)
}

func TestCommitBaselineSnapshotsCurrentItems(t *testing.T) {
	s := Load(testGroups())

	edited, err := s.UpdateReqQty(0, 1, 20)
	require.NoError(t, err)
	require.Equal(t, 5, edited.Baseline(0)[0].ReqQty, "baseline must survive edits")

	committed, err := edited.CommitBaseline(0)
	require.NoError(t, err)
	require.Equal(t, 20, committed.Baseline(0)[0].ReqQty)

	// Later edits must not leak into the committed snapshot
	again, err := committed.UpdateReqQty(0, 1, 7)
	require.NoError(t, err)
	require.Equal(t, 20, again.Baseline(0)[0].ReqQty)
}
