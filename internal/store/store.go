// Package store owns the authoritative list of delivery groups for an
// ordering session and every structural mutation over it. Operations are pure
// reducers: they take a State value and return a new one, so a caller holding
// the previous value observes no change until it adopts the result. Every
// operation either fully applies or returns the input state untouched.
package store

import (
	"github.com/pkg/errors"

	"example.com/cloudkitchen/services/ordering/internal/models"
)

// Structural no-op conditions surfaced to the user, and the one loud error.
// Group indexes come from the UI layout and a bad one is a programmer error;
// item ids are only stable within a render cycle, so lookups by id are
// tolerant no-ops instead.
var (
	ErrGroupIndex      = errors.New("delivery group index out of range")
	ErrNothingSelected = errors.New("no items selected")
	ErrDuplicateItem   = errors.New("item already exists in this delivery")
	ErrNoMoveTarget    = errors.New("no move target group")
)

// ConsolidationRule routes all items of one storage type into a single target
// group at load time, e.g. every FREEZER item into the first delivery.
type ConsolidationRule struct {
	StorageType models.StorageType `json:"storageType"`
	TargetGroup int                `json:"targetGroup"`
}

// State is the full editable state of an ordering session: the delivery
// groups plus one immutable baseline snapshot per group. Baselines are
// replaced only by Load and CommitBaseline, never by edits.
type State struct {
	Groups    []models.DeliveryGroup `json:"groups"`
	Baselines [][]models.LineItem    `json:"baselines"`
}

// Load replaces the whole collection. Each group is resequenced, stamped with
// its own delivery date and snapshotted as the new baseline.
func Load(groups []models.DeliveryGroup) State {
	s := State{
		Groups:    make([]models.DeliveryGroup, len(groups)),
		Baselines: make([][]models.LineItem, len(groups)),
	}
	for i, g := range groups {
		items := cloneItems(g.Items)
		date := g.Config.DateString()
		for j := range items {
			items[j].DeliveryDate = date
		}
		resequence(items)
		s.Groups[i] = models.DeliveryGroup{Config: g.Config, Items: items}
		s.Baselines[i] = cloneItems(items)
	}
	return s
}

// Baseline returns the immutable snapshot for a group.
func (s State) Baseline(group int) []models.LineItem {
	if group < 0 || group >= len(s.Baselines) {
		return nil
	}
	return s.Baselines[group]
}

// AddItem inserts a new item at the head of the target group and resequences.
// An existing item with the same merge identity rejects the whole operation.
func (s State) AddItem(group int, item models.LineItem) (State, error) {
	if err := s.checkGroup(group); err != nil {
		return s, err
	}
	for _, existing := range s.Groups[group].Items {
		if existing.Key() == item.Key() {
			return s, ErrDuplicateItem
		}
	}
	next := s.clone()
	item.Checked = false
	item.DeliveryDate = next.Groups[group].Config.DateString()
	next.Groups[group].Items = append([]models.LineItem{item}, next.Groups[group].Items...)
	resequence(next.Groups[group].Items)
	return next, nil
}

// DeleteItem removes the item with the given id and resequences. A missing id
// is a tolerant no-op.
func (s State) DeleteItem(group, itemID int) (State, error) {
	if err := s.checkGroup(group); err != nil {
		return s, err
	}
	next := s.clone()
	items := next.Groups[group].Items
	kept := items[:0]
	for _, it := range items {
		if it.ID != itemID {
			kept = append(kept, it)
		}
	}
	next.Groups[group].Items = kept
	resequence(next.Groups[group].Items)
	return next, nil
}

// DeleteChecked removes every checked item in the group and resequences.
func (s State) DeleteChecked(group int) (State, error) {
	if err := s.checkGroup(group); err != nil {
		return s, err
	}
	if !anyChecked(s.Groups[group].Items) {
		return s, ErrNothingSelected
	}
	next := s.clone()
	items := next.Groups[group].Items
	kept := items[:0]
	for _, it := range items {
		if !it.Checked {
			kept = append(kept, it)
		}
	}
	next.Groups[group].Items = kept
	resequence(next.Groups[group].Items)
	return next, nil
}

// ToggleItem flips the checked flag of a single item.
func (s State) ToggleItem(group, itemID int) (State, error) {
	if err := s.checkGroup(group); err != nil {
		return s, err
	}
	next := s.clone()
	for i := range next.Groups[group].Items {
		if next.Groups[group].Items[i].ID == itemID {
			next.Groups[group].Items[i].Checked = !next.Groups[group].Items[i].Checked
			break
		}
	}
	return next, nil
}

// SetAllChecked sets the checked flag uniformly across the whole group.
func (s State) SetAllChecked(group int, checked bool) (State, error) {
	if err := s.checkGroup(group); err != nil {
		return s, err
	}
	next := s.clone()
	for i := range next.Groups[group].Items {
		next.Groups[group].Items[i].Checked = checked
	}
	return next, nil
}

// SetChecked sets the checked flag on exactly the given ids, leaving every
// other item untouched. This is how "select all" stays scoped to the visible
// subset: the view layer supplies the visible ids.
func (s State) SetChecked(group int, itemIDs []int, checked bool) (State, error) {
	if err := s.checkGroup(group); err != nil {
		return s, err
	}
	wanted := make(map[int]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}
	next := s.clone()
	for i := range next.Groups[group].Items {
		if wanted[next.Groups[group].Items[i].ID] {
			next.Groups[group].Items[i].Checked = checked
		}
	}
	return next, nil
}

// UpdateReqQty sets the requested quantity of one item, clamped at zero.
func (s State) UpdateReqQty(group, itemID, qty int) (State, error) {
	if err := s.checkGroup(group); err != nil {
		return s, err
	}
	if qty < 0 {
		qty = 0
	}
	next := s.clone()
	for i := range next.Groups[group].Items {
		if next.Groups[group].Items[i].ID == itemID {
			next.Groups[group].Items[i].ReqQty = qty
			break
		}
	}
	return next, nil
}

// SetStorageType reclassifies one item's storage.
func (s State) SetStorageType(group, itemID int, st models.StorageType) (State, error) {
	if err := s.checkGroup(group); err != nil {
		return s, err
	}
	next := s.clone()
	for i := range next.Groups[group].Items {
		if next.Groups[group].Items[i].ID == itemID {
			next.Groups[group].Items[i].StorageType = st
			break
		}
	}
	return next, nil
}

// SetMaxQty updates one item's capacity ceiling, clamped at zero.
func (s State) SetMaxQty(group, itemID, maxQty int) (State, error) {
	if err := s.checkGroup(group); err != nil {
		return s, err
	}
	if maxQty < 0 {
		maxQty = 0
	}
	next := s.clone()
	for i := range next.Groups[group].Items {
		if next.Groups[group].Items[i].ID == itemID {
			next.Groups[group].Items[i].MaxQty = maxQty
			break
		}
	}
	return next, nil
}

// MoveItem removes the item from the source group and merges it into the
// destination. Moving a group onto itself is a no-op.
func (s State) MoveItem(fromGroup, toGroup, itemID int) (State, error) {
	if err := s.checkGroup(fromGroup); err != nil {
		return s, err
	}
	if err := s.checkGroup(toGroup); err != nil {
		return s, err
	}
	if fromGroup == toGroup {
		return s, nil
	}

	var moved *models.LineItem
	for _, it := range s.Groups[fromGroup].Items {
		if it.ID == itemID {
			copied := it
			moved = &copied
			break
		}
	}
	if moved == nil {
		return s, nil
	}

	next, _ := s.DeleteItem(fromGroup, itemID)
	next.Groups[toGroup].Items = mergeInto(
		next.Groups[toGroup].Items,
		next.Groups[toGroup].Config.DateString(),
		*moved,
	)
	resequence(next.Groups[toGroup].Items)
	return next, nil
}

// MoveChecked moves the whole checked subset of the source group into the
// destination. With exactly two groups a negative destination means "the
// other group".
func (s State) MoveChecked(fromGroup, toGroup int) (State, error) {
	if err := s.checkGroup(fromGroup); err != nil {
		return s, err
	}
	if toGroup < 0 {
		if len(s.Groups) != 2 {
			return s, ErrNoMoveTarget
		}
		toGroup = 1 - fromGroup
	}
	if err := s.checkGroup(toGroup); err != nil {
		return s, err
	}
	if fromGroup == toGroup {
		return s, nil
	}
	if !anyChecked(s.Groups[fromGroup].Items) {
		return s, ErrNothingSelected
	}

	next := s.clone()
	var moved []models.LineItem
	kept := next.Groups[fromGroup].Items[:0]
	for _, it := range next.Groups[fromGroup].Items {
		if it.Checked {
			moved = append(moved, it)
		} else {
			kept = append(kept, it)
		}
	}
	next.Groups[fromGroup].Items = kept
	resequence(next.Groups[fromGroup].Items)

	next.Groups[toGroup].Items = mergeInto(
		next.Groups[toGroup].Items,
		next.Groups[toGroup].Config.DateString(),
		moved...,
	)
	resequence(next.Groups[toGroup].Items)
	return next, nil
}

// Consolidate applies the configured category->target routing across the
// whole collection, then resequences every group. Items already in their
// target group stay put.
func (s State) Consolidate(rules []ConsolidationRule) (State, error) {
	for _, rule := range rules {
		if err := s.checkGroup(rule.TargetGroup); err != nil {
			return s, err
		}
	}
	next := s.clone()
	for _, rule := range rules {
		var collected []models.LineItem
		for gi := range next.Groups {
			if gi == rule.TargetGroup {
				continue
			}
			kept := next.Groups[gi].Items[:0]
			for _, it := range next.Groups[gi].Items {
				if it.StorageType == rule.StorageType {
					collected = append(collected, it)
				} else {
					kept = append(kept, it)
				}
			}
			next.Groups[gi].Items = kept
		}
		next.Groups[rule.TargetGroup].Items = mergeInto(
			next.Groups[rule.TargetGroup].Items,
			next.Groups[rule.TargetGroup].Config.DateString(),
			collected...,
		)
	}
	for gi := range next.Groups {
		resequence(next.Groups[gi].Items)
	}
	return next, nil
}

// ReplaceItems swaps one group's item list for an externally transformed
// copy, e.g. after a bulk quantity adjustment. Ids and baselines are kept.
func (s State) ReplaceItems(group int, items []models.LineItem) (State, error) {
	if err := s.checkGroup(group); err != nil {
		return s, err
	}
	next := s.clone()
	next.Groups[group].Items = cloneItems(items)
	return next, nil
}

// ReplaceAllGroups swaps every group's item list at once, for transformations
// that span the whole collection. The group count must not change.
func (s State) ReplaceAllGroups(groups []models.DeliveryGroup) (State, error) {
	if len(groups) != len(s.Groups) {
		return s, errors.Wrapf(ErrGroupIndex, "replacement has %d groups, state has %d", len(groups), len(s.Groups))
	}
	next := s.clone()
	for i, g := range groups {
		next.Groups[i].Items = cloneItems(g.Items)
	}
	return next, nil
}

// CommitBaseline replaces the group's baseline with a fresh deep copy of the
// current items. Call only after a successful submission.
func (s State) CommitBaseline(group int) (State, error) {
	if err := s.checkGroup(group); err != nil {
		return s, err
	}
	next := s.clone()
	next.Baselines[group] = cloneItems(next.Groups[group].Items)
	return next, nil
}

func (s State) checkGroup(group int) error {
	if group < 0 || group >= len(s.Groups) {
		return errors.Wrapf(ErrGroupIndex, "group %d of %d", group, len(s.Groups))
	}
	return nil
}

func (s State) clone() State {
	next := State{
		Groups:    make([]models.DeliveryGroup, len(s.Groups)),
		Baselines: make([][]models.LineItem, len(s.Baselines)),
	}
	for i, g := range s.Groups {
		next.Groups[i] = models.DeliveryGroup{Config: g.Config, Items: cloneItems(g.Items)}
	}
	for i, b := range s.Baselines {
		next.Baselines[i] = cloneItems(b)
	}
	return next
}

// mergeInto folds incoming items into dst one by one: an identity match adds
// the incoming recommended quantity onto the existing row and drops the copy,
// anything else is appended stamped with the destination date. Caller
// resequences afterwards.
func mergeInto(dst []models.LineItem, date string, incoming ...models.LineItem) []models.LineItem {
	for _, in := range incoming {
		merged := false
		for i := range dst {
			if dst[i].Key() == in.Key() {
				dst[i].RecommendedQty += in.RecommendedQty
				merged = true
				break
			}
		}
		if !merged {
			in.Checked = false
			in.DeliveryDate = date
			dst = append(dst, in)
		}
	}
	return dst
}

func resequence(items []models.LineItem) {
	for i := range items {
		items[i].ID = i + 1
	}
}

func anyChecked(items []models.LineItem) bool {
	for _, it := range items {
		if it.Checked {
			return true
		}
	}
	return false
}

func cloneItems(items []models.LineItem) []models.LineItem {
	if items == nil {
		return nil
	}
	out := make([]models.LineItem, len(items))
	copy(out, items)
	return out
}
