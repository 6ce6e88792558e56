package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"example.com/cloudkitchen/services/ordering/internal/adjust"
	"example.com/cloudkitchen/services/ordering/internal/cache"
	"example.com/cloudkitchen/services/ordering/internal/client"
	"example.com/cloudkitchen/services/ordering/internal/diff"
	"example.com/cloudkitchen/services/ordering/internal/metrics"
	"example.com/cloudkitchen/services/ordering/internal/models"
	"example.com/cloudkitchen/services/ordering/internal/repositories"
	"example.com/cloudkitchen/services/ordering/internal/search"
	"example.com/cloudkitchen/services/ordering/internal/store"
	"example.com/cloudkitchen/services/ordering/internal/tracing"
	"example.com/cloudkitchen/services/ordering/internal/view"
)

// Service-level sentinel errors surfaced to the UI as blocking messages.
var (
	ErrSessionNotFound = errors.New("ordering session not found")
	ErrNoChanges       = errors.New("no changes to apply")
)

// Session is one staff member's in-flight ordering run: the editable group
// state plus the catalog backing the add-item picker. It lives in memory for
// the duration of the run and is mirrored to Redis between requests.
type Session struct {
	ID             uuid.UUID            `json:"id"`
	CloudKitchenID int                  `json:"cloudKitchenId"`
	State          store.State          `json:"state"`
	Catalog        []models.CatalogItem `json:"catalog,omitempty"`
	CreatedAt      time.Time            `json:"createdAt"`
}

// OrderingService drives the full ordering pipeline: concurrent group
// fetches, quantity seeding, the interactive editing loop over the grouped
// item store, and submission of the dirty change-set.
type OrderingService struct {
	kitchen    *client.Client
	cache      *cache.RedisCache
	orderRepo  *repositories.OrderRecordRepository
	elastic    *search.ElasticClient
	metrics    *metrics.Metrics
	tracer     tracing.Tracer
	sessionTTL time.Duration

	// Store mutations are synchronous and atomic; a single writer at a time.
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewOrderingService creates a new ordering service
func NewOrderingService(
	kitchen *client.Client,
	redisCache *cache.RedisCache,
	orderRepo *repositories.OrderRecordRepository,
	elastic *search.ElasticClient,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
	sessionTTL time.Duration,
) *OrderingService {
	return &OrderingService{
		kitchen:    kitchen,
		cache:      redisCache,
		orderRepo:  orderRepo,
		elastic:    elastic,
		metrics:    metricsCollector,
		tracer:     tracer,
		sessionTTL: sessionTTL,
		sessions:   make(map[uuid.UUID]*Session),
	}
}

// StartSession fetches primary items for every delivery-date configuration
// concurrently and opens a new ordering session. Group order always matches
// the configuration order regardless of fetch completion order, and nothing
// is populated unless every fetch succeeds.
func (s *OrderingService) StartSession(
	ctx context.Context,
	kitchenID int,
	configs []models.GroupConfig,
	rules []store.ConsolidationRule,
) (*Session, error) {
	txn := s.tracer.StartTransaction("start-ordering-session")
	defer s.tracer.EndTransaction(txn)
	started := time.Now()

	if len(configs) == 0 {
		return nil, errors.New("at least one delivery date configuration is required")
	}

	groups := make([]models.DeliveryGroup, len(configs))
	g, fetchCtx := errgroup.WithContext(ctx)
	for i, cfg := range configs {
		g.Go(func() error {
			rows, err := s.kitchen.FetchPrimaryItems(fetchCtx, client.PrimaryItemsRequest{
				CloudKitchenID:    kitchenID,
				DeliveryDate:      cfg.DateString(),
				SaleDays:          cfg.SaleDays,
				PreviousWeekCount: cfg.PrevWeekCount,
				SaleDates:         cfg.SaleDates,
			})
			if err != nil {
				return errors.Wrapf(err, "failed to fetch primary items for %s", cfg.DateString())
			}
			items := make([]models.LineItem, len(rows))
			for j, row := range rows {
				items[j] = models.LineItem{
					ItemCode:       row.ItemCode,
					ItemName:       row.ItemName,
					Source:         row.Source,
					MeasCode:       row.MeasCode,
					MeasQty:        row.MeasQty,
					UOM:            row.UOM,
					RecommendedQty: row.ItemQty,
					ReqQty:         row.ItemQty,
					OriginalQty:    row.ItemQty,
				}
			}
			groups[i] = models.DeliveryGroup{Config: cfg, Items: items}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.tracer.RecordError(txn, err)
		s.metrics.IncrementCounter("session.start.failed")
		return nil, err
	}

	state := store.Load(groups)
	if len(rules) > 0 {
		consolidated, err := state.Consolidate(rules)
		if err != nil {
			s.tracer.RecordError(txn, err)
			return nil, errors.Wrap(err, "failed to apply consolidation rules")
		}
		// Re-snapshot so consolidation does not read as user edits.
		for gi := range consolidated.Groups {
			consolidated, _ = consolidated.CommitBaseline(gi)
		}
		state = consolidated
	}

	sess := &Session{
		ID:             uuid.New(),
		CloudKitchenID: kitchenID,
		State:          state,
		CreatedAt:      time.Now(),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	s.persist(ctx, sess)

	s.metrics.IncrementCounter("session.start.ok")
	s.metrics.RecordTimer("session.start", time.Since(started))
	s.metrics.SetGauge("sessions.active", int64(len(s.sessions)))

	log.Info().
		Str("session_id", sess.ID.String()).
		Int("kitchen_id", kitchenID).
		Int("groups", len(configs)).
		Msg("Ordering session started")

	return sess, nil
}

// BuildCart resolves the session's current primary items into assembly line
// items with availability and capacity figures, seeds requested quantities
// and replaces the session state. The catalog for the add-item picker is
// fetched alongside, served from cache when possible.
func (s *OrderingService) BuildCart(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	txn := s.tracer.StartTransaction("build-cart")
	defer s.tracer.EndTransaction(txn)

	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	groups := make([]models.DeliveryGroup, len(sess.State.Groups))
	g, fetchCtx := errgroup.WithContext(ctx)
	for i, grp := range sess.State.Groups {
		g.Go(func() error {
			refs := make([]client.ItemRef, len(grp.Items))
			for j, it := range grp.Items {
				refs[j] = client.ItemRef{
					Qty:      it.ReqQty,
					MeasQty:  it.MeasQty,
					ItemCode: it.ItemCode,
					MeasCode: it.MeasCode,
				}
			}
			rows, err := s.kitchen.FetchAssemblyAvailability(fetchCtx, sess.CloudKitchenID, refs)
			if err != nil {
				return errors.Wrapf(err, "failed to fetch availability for %s", grp.Config.DateString())
			}
			items := make([]models.LineItem, len(rows))
			for j, row := range rows {
				items[j] = adjust.Seed(models.LineItem{
					ItemCode:       row.ItemCode,
					ItemName:       row.ItemName,
					ItemType:       row.ItemType,
					StorageType:    row.StorageType,
					Source:         row.Source,
					MeasCode:       row.MeasCode,
					MeasQty:        row.MeasQty,
					UOM:            row.UOM,
					AvailableQty:   row.AvailableQty,
					RecommendedQty: row.RecommendedQty,
					MaxQty:         row.MaxQty,
				})
			}
			groups[i] = models.DeliveryGroup{Config: grp.Config, Items: items}
			return nil
		})
	}

	g.Go(func() error {
		catalog, err := s.fetchCatalog(fetchCtx, sess.CloudKitchenID)
		if err != nil {
			return err
		}
		sess.Catalog = catalog
		return nil
	})

	if err := g.Wait(); err != nil {
		s.tracer.RecordError(txn, err)
		s.metrics.IncrementCounter("cart.build.failed")
		return nil, err
	}

	sess.State = store.Load(groups)
	s.persist(ctx, sess)
	s.metrics.IncrementCounter("cart.build.ok")
	return sess, nil
}

// Get returns the session, falling back to the Redis mirror when the
// in-memory copy is gone (e.g. after a restart).
func (s *OrderingService) Get(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if ok {
		return sess, nil
	}

	var restored Session
	if err := s.cache.Get(ctx, cache.SessionKey(sessionID), &restored); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrSessionNotFound
		}
		return nil, errors.Wrap(err, "failed to restore session from cache")
	}

	s.mu.Lock()
	s.sessions[sessionID] = &restored
	s.mu.Unlock()
	return &restored, nil
}

// Mutate applies one reducer to the session state under the single-writer
// lock and persists the result. The previous state is kept on any error.
func (s *OrderingService) Mutate(ctx context.Context, sessionID uuid.UUID, fn func(store.State) (store.State, error)) (*Session, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(sess.State)
	if err != nil {
		return nil, err
	}
	sess.State = next
	s.persist(ctx, sess)
	return sess, nil
}

// SetVisibleChecked implements filter-scoped select-all: only the currently
// visible rows change; rows hidden by the active filter keep their state.
func (s *OrderingService) SetVisibleChecked(ctx context.Context, sessionID uuid.UUID, group int, fs view.FilterState, checked bool) (*Session, error) {
	return s.Mutate(ctx, sessionID, func(st store.State) (store.State, error) {
		if group < 0 || group >= len(st.Groups) {
			return st, store.ErrGroupIndex
		}
		ids := view.VisibleIDs(st.Groups[group].Items, st.Baseline(group), fs)
		return st.SetChecked(group, ids, checked)
	})
}

// AdjustChecked applies one bulk arithmetic edit to the checked subset of a
// group. A zero magnitude is rejected upstream as a no-op.
func (s *OrderingService) AdjustChecked(ctx context.Context, sessionID uuid.UUID, group int, op adjust.Operator, magnitude float64, mode adjust.Mode) (*Session, error) {
	s.metrics.IncrementCounter("adjust.bulk")
	return s.Mutate(ctx, sessionID, func(st store.State) (store.State, error) {
		if group < 0 || group >= len(st.Groups) {
			return st, store.ErrGroupIndex
		}
		return st.ReplaceItems(group, adjust.ApplyToChecked(st.Groups[group].Items, op, magnitude, mode))
	})
}

// AdjustByStorageType applies a percentage edit to every row of one storage
// classification within a group.
func (s *OrderingService) AdjustByStorageType(ctx context.Context, sessionID uuid.UUID, group int, storageType models.StorageType, op adjust.Operator, percentage float64) (*Session, error) {
	s.metrics.IncrementCounter("adjust.storage")
	return s.Mutate(ctx, sessionID, func(st store.State) (store.State, error) {
		if group < 0 || group >= len(st.Groups) {
			return st, store.ErrGroupIndex
		}
		return st.ReplaceItems(group, adjust.ApplyByStorageType(st.Groups[group].Items, storageType, op, percentage))
	})
}

// AdjustBySource applies a percentage edit across every group to rows
// carrying the given demand-source tag.
func (s *OrderingService) AdjustBySource(ctx context.Context, sessionID uuid.UUID, source string, op adjust.Operator, percentage float64) (*Session, error) {
	s.metrics.IncrementCounter("adjust.source")
	return s.Mutate(ctx, sessionID, func(st store.State) (store.State, error) {
		return st.ReplaceAllGroups(adjust.ApplyBySource(st.Groups, source, op, percentage))
	})
}

// AddCatalogItem adds a catalog item to a group with zero quantities, the way
// the add-item picker does. The chosen unit of measure must be one of the
// catalog item's options.
func (s *OrderingService) AddCatalogItem(ctx context.Context, sessionID uuid.UUID, group, itemCode, measCode int) (*Session, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var picked *models.CatalogItem
	var uom *models.CatalogUOM
	for i := range sess.Catalog {
		if sess.Catalog[i].ItemCode != itemCode {
			continue
		}
		picked = &sess.Catalog[i]
		for j := range picked.UOMList {
			if picked.UOMList[j].MeasCode == measCode {
				uom = &picked.UOMList[j]
				break
			}
		}
		break
	}
	if picked == nil {
		return nil, errors.Errorf("item %d not found in catalog", itemCode)
	}
	if uom == nil {
		return nil, errors.Errorf("measurement %d not offered for item %d", measCode, itemCode)
	}

	item := models.LineItem{
		ItemCode:    picked.ItemCode,
		ItemName:    picked.ItemName,
		ItemType:    picked.ItemType,
		StorageType: picked.StorageType,
		VegType:     picked.VegType,
		MeasCode:    uom.MeasCode,
		MeasQty:     uom.Qty,
		UOM:         uom.UOM,
	}
	return s.Mutate(ctx, sessionID, func(st store.State) (store.State, error) {
		return st.AddItem(group, item)
	})
}

// Visible derives the filtered view of one group for rendering.
func (s *OrderingService) Visible(ctx context.Context, sessionID uuid.UUID, group int, fs view.FilterState) ([]models.LineItem, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if group < 0 || group >= len(sess.State.Groups) {
		return nil, store.ErrGroupIndex
	}
	return view.Visible(sess.State.Groups[group].Items, sess.State.Baseline(group), fs), nil
}

// Submit places an order for one group containing exactly the dirty rows.
// On success the group's baseline is recommitted; on any failure the baseline
// and dirty flags stay as they were so the user can retry.
func (s *OrderingService) Submit(ctx context.Context, sessionID uuid.UUID, group int) (*models.Order, error) {
	txn := s.tracer.StartTransaction("submit-order")
	defer s.tracer.EndTransaction(txn)
	started := time.Now()

	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if group < 0 || group >= len(sess.State.Groups) {
		return nil, store.ErrGroupIndex
	}

	grp := sess.State.Groups[group]
	changed := diff.Changed(grp.Items, sess.State.Baseline(group))
	payload := BuildOrderItems(changed)
	if len(payload) == 0 {
		return nil, ErrNoChanges
	}

	s.tracer.AddAttribute(txn, "kitchen_id", sess.CloudKitchenID)
	s.tracer.AddAttribute(txn, "changed_items", len(payload))

	order, err := s.kitchen.SubmitOrder(ctx, client.OrderRequest{
		CloudKitchenID: sess.CloudKitchenID,
		DeliveryDate:   grp.Config.DateString(),
		Items:          payload,
	})
	if err != nil {
		s.tracer.RecordError(txn, err)
		s.metrics.IncrementCounter("order.submit.failed")
		return nil, err
	}

	next, err := sess.State.CommitBaseline(group)
	if err != nil {
		return nil, err
	}
	sess.State = next
	s.persist(ctx, sess)

	s.metrics.IncrementCounter("order.submit.ok")
	s.metrics.RecordTimer("order.submit", time.Since(started))

	s.recordOrder(ctx, sess, order, payload)

	log.Info().
		Str("session_id", sess.ID.String()).
		Int("order_id", order.OrderID).
		Int("items", len(payload)).
		Str("delivery_date", grp.Config.DateString()).
		Msg("Order placed")

	return order, nil
}

// recordOrder writes the audit record and search document for a placed
// order. Failures are logged but never undo a submission the platform has
// already accepted.
func (s *OrderingService) recordOrder(ctx context.Context, sess *Session, order *models.Order, payload []models.OrderItemPayload) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Int("order_id", order.OrderID).Msg("Failed to marshal order payload")
	}
	record := &models.OrderRecord{
		ID:             uuid.New(),
		OrderID:        order.OrderID,
		CloudKitchenID: sess.CloudKitchenID,
		SessionID:      sess.ID,
		DeliveryDate:   order.DeliveryDate,
		OrderStatus:    order.OrderStatus,
		ItemsCount:     len(payload),
		Payload:        payloadJSON,
	}
	if record.OrderStatus == "" {
		record.OrderStatus = models.OrderStatusWaiting
	}

	if s.orderRepo != nil {
		if err := s.orderRepo.Create(ctx, record); err != nil {
			log.Error().Err(err).Int("order_id", order.OrderID).Msg("Failed to write order record")
			return
		}
	}
	if s.elastic != nil {
		if err := s.elastic.IndexOrder(ctx, record); err != nil {
			log.Warn().Err(err).Int("order_id", order.OrderID).Msg("Failed to index order")
		}
	}
}

// ListOrders proxies the delivery API's order listing ("A" active, "D"
// delivered), numbering rows for display.
func (s *OrderingService) ListOrders(ctx context.Context, statusClass string) ([]models.Order, error) {
	orders, err := s.kitchen.ListOrders(ctx, statusClass)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].ID = i + 1
	}
	return orders, nil
}

// SearchOrderHistory searches placed orders previously indexed on submit.
func (s *OrderingService) SearchOrderHistory(ctx context.Context, kitchenID int, term string) ([]map[string]interface{}, error) {
	if s.elastic == nil {
		return nil, errors.New("order search is not available")
	}
	return s.elastic.SearchOrders(ctx, kitchenID, term)
}

// fetchCatalog returns the kitchen catalog, cached for an hour.
func (s *OrderingService) fetchCatalog(ctx context.Context, kitchenID int) ([]models.CatalogItem, error) {
	key := cache.CatalogKey(kitchenID)

	var cached []models.CatalogItem
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	catalog, err := s.kitchen.FetchCatalog(ctx, kitchenID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch assembly catalog")
	}
	for i := range catalog {
		catalog[i].ID = i + 1
	}
	if err := s.cache.Set(ctx, key, catalog, time.Hour); err != nil {
		log.Warn().Err(err).Msg("Failed to cache catalog")
	}
	return catalog, nil
}

// Catalog returns the kitchen's assembly item catalog for the maintenance
// screen, independent of any session.
func (s *OrderingService) Catalog(ctx context.Context, kitchenID int) ([]models.CatalogItem, error) {
	return s.fetchCatalog(ctx, kitchenID)
}

// UpdateAssemblyItems pushes edited catalog rows upstream and drops the
// cached catalog so the next read sees the change.
func (s *OrderingService) UpdateAssemblyItems(ctx context.Context, kitchenID int, items []models.CatalogItem) error {
	if len(items) == 0 {
		return ErrNoChanges
	}
	if err := s.kitchen.UpdateAssemblyItems(ctx, items); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, cache.CatalogKey(kitchenID)); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate catalog cache")
	}
	s.metrics.IncrementCounter("catalog.update")
	return nil
}

// StockData fetches the latest uploaded stock count for review.
func (s *OrderingService) StockData(ctx context.Context, kitchenID int) ([]models.StockData, error) {
	return s.kitchen.FetchStockData(ctx, kitchenID)
}

// SaveStockData persists reviewed stock rows back to the platform.
func (s *OrderingService) SaveStockData(ctx context.Context, req client.StockSaveRequest) error {
	return s.kitchen.SaveStockData(ctx, req)
}

// persist mirrors the session to Redis. Caller holds the session lock.
func (s *OrderingService) persist(ctx context.Context, sess *Session) {
	if err := s.cache.Set(ctx, cache.SessionKey(sess.ID), sess, s.sessionTTL); err != nil {
		log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("Failed to persist session")
	}
}
