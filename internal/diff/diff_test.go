package diff

import (
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/cloudkitchen/services/ordering/internal/models"
)

func baselineItems() []models.LineItem {
	return []models.LineItem{
		{ID: 1, ItemCode: 101, MeasCode: 1, MeasQty: 1, ReqQty: 5, StorageType: models.StorageFridge, MaxQty: 20},
		{ID: 2, ItemCode: 102, MeasCode: 1, MeasQty: 0.5, ReqQty: 3, StorageType: models.StorageFridge, MaxQty: 10},
		{ID: 3, ItemCode: 103, MeasCode: 2, MeasQty: 1, ReqQty: 7, StorageType: models.StorageFreezer, MaxQty: 15},
	}
}

func TestChangedIsEmptyRightAfterLoad(t *testing.T) {
	items := baselineItems()
	require.Empty(t, Changed(items, baselineItems()))
}

func TestChangedPicksOnlyEditedRows(t *testing.T) {
	items := baselineItems()
	items[1].ReqQty = 9

	changed := Changed(items, baselineItems())
	require.Len(t, changed, 1)
	require.Equal(t, 102, changed[0].ItemCode)
}

func TestChangedTracksStorageAndCapacityEdits(t *testing.T) {
	items := baselineItems()
	items[0].StorageType = models.StorageFreezer
	items[2].MaxQty = 99

	changed := Changed(items, baselineItems())
	require.Len(t, changed, 2)
	require.Equal(t, 101, changed[0].ItemCode)
	require.Equal(t, 103, changed[1].ItemCode)
}

func TestChangedIncludesRowsWithoutBaselineEntry(t *testing.T) {
	items := append(baselineItems(), models.LineItem{ID: 4, ItemCode: 200, MeasCode: 1, MeasQty: 5, ReqQty: 0})

	changed := Changed(items, baselineItems())
	require.Len(t, changed, 1)
	require.Equal(t, 200, changed[0].ItemCode)
}

func TestChangedIgnoresDeletedRows(t *testing.T) {
	items := baselineItems()[:2]
	require.Empty(t, Changed(items, baselineItems()))
}

func TestIdentityMatchSurvivesResequencing(t *testing.T) {
	// Positions shuffled, ids reassigned: nothing is dirty because identity
	// is the merge key, never the positional id.
	items := []models.LineItem{baselineItems()[2], baselineItems()[0], baselineItems()[1]}
	for i := range items {
		items[i].ID = i + 1
	}
	require.Empty(t, Changed(items, baselineItems()))
}

func TestIsDirtyComparesTrackedFieldsOnly(t *testing.T) {
	base := baselineItems()[0]

	same := base
	same.ID = 9
	same.Checked = true
	require.False(t, IsDirty(same, base))

	edited := base
	edited.ReqQty = 6
	require.True(t, IsDirty(edited, base))
}
