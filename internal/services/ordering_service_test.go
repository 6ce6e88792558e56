package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"example.com/cloudkitchen/services/ordering/config"
	"example.com/cloudkitchen/services/ordering/internal/cache"
	"example.com/cloudkitchen/services/ordering/internal/client"
	"example.com/cloudkitchen/services/ordering/internal/metrics"
	"example.com/cloudkitchen/services/ordering/internal/models"
	"example.com/cloudkitchen/services/ordering/internal/store"
	"example.com/cloudkitchen/services/ordering/internal/tracing"
)

func envelope(object interface{}) map[string]interface{} {
	return map[string]interface{}{"status": true, "object": object}
}

func newTestService(t *testing.T, handler http.HandlerFunc) *OrderingService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	kitchenClient := client.New(config.KitchenConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})
	redisCache, err := cache.NewRedisCache(config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	tracer, err := tracing.NewTracer(config.TracingConfig{})
	require.NoError(t, err)

	return NewOrderingService(kitchenClient, redisCache, nil, nil, metrics.NewMetrics(), tracer, time.Hour)
}

func groupConfigs() []models.GroupConfig {
	return []models.GroupConfig{
		{DeliveryDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Day: "MONDAY"},
		{DeliveryDate: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), Day: "THURSDAY"},
	}
}

func TestStartSessionPreservesConfigOrder(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		var req client.PrimaryItemsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// Answer the first group slowly so completion order differs from
		// configuration order.
		itemCode := 201
		if req.DeliveryDate == "2026-03-02" {
			time.Sleep(50 * time.Millisecond)
			itemCode = 101
		}
		json.NewEncoder(w).Encode(envelope([]map[string]interface{}{
			{"itemCode": itemCode, "itemName": "Item", "itemQty": 5, "itemMeasCode": 1, "itemMeasQty": 1.0, "UOM": "KG"},
		}))
	})

	sess, err := svc.StartSession(context.Background(), 7, groupConfigs(), nil)
	require.NoError(t, err)
	require.Len(t, sess.State.Groups, 2)
	require.Equal(t, 101, sess.State.Groups[0].Items[0].ItemCode)
	require.Equal(t, 201, sess.State.Groups[1].Items[0].ItemCode)
	require.Equal(t, "2026-03-02", sess.State.Groups[0].Items[0].DeliveryDate)
}

func TestStartSessionAbortsEntirelyWhenOneFetchFails(t *testing.T) {
	var calls int32
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		var req client.PrimaryItemsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		atomic.AddInt32(&calls, 1)

		if req.DeliveryDate == "2026-03-05" {
			json.NewEncoder(w).Encode(map[string]interface{}{"status": false, "message": "no data for date"})
			return
		}
		json.NewEncoder(w).Encode(envelope([]map[string]interface{}{
			{"itemCode": 101, "itemName": "Item", "itemQty": 5, "itemMeasCode": 1, "itemMeasQty": 1.0, "UOM": "KG"},
		}))
	})

	sess, err := svc.StartSession(context.Background(), 7, groupConfigs(), nil)
	require.Error(t, err)
	require.Nil(t, sess, "no partial population on failure")
	require.Contains(t, err.Error(), "no data for date")
}

func TestStartSessionAppliesConsolidationWithCleanBaseline(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(envelope([]map[string]interface{}{
			{"itemCode": 101, "itemName": "Item", "itemQty": 5, "itemMeasCode": 1, "itemMeasQty": 1.0, "UOM": "KG"},
		}))
	})

	// Primary rows carry no storage type yet, so route everything tagged
	// with the zero value to group 0 to observe the mechanics.
	sess, err := svc.StartSession(context.Background(), 7, groupConfigs(), []store.ConsolidationRule{
		{StorageType: "", TargetGroup: 0},
	})
	require.NoError(t, err)

	// Both groups answered with the same identity, so the moved row merged
	// into the existing one instead of duplicating it.
	require.Len(t, sess.State.Groups[0].Items, 1)
	require.Empty(t, sess.State.Groups[1].Items)
	require.Equal(t, 10, sess.State.Groups[0].Items[0].RecommendedQty)
	// Consolidation must not show up as user edits
	require.Equal(t, sess.State.Groups[0].Items, sess.State.Baseline(0))
}

func TestSubmitSendsOnlyDirtyRowsAndCommitsBaseline(t *testing.T) {
	var orderBody client.OrderRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "get-inventory-primary-items-list"):
			json.NewEncoder(w).Encode(envelope([]map[string]interface{}{
				{"itemCode": 101, "itemName": "Chicken", "itemQty": 5, "itemMeasCode": 1, "itemMeasQty": 1.0, "UOM": "KG"},
				{"itemCode": 102, "itemName": "Paneer", "itemQty": 3, "itemMeasCode": 1, "itemMeasQty": 0.5, "UOM": "KG"},
			}))
		case strings.Contains(r.URL.Path, "place-order"):
			require.NoError(t, json.NewDecoder(r.Body).Decode(&orderBody))
			json.NewEncoder(w).Encode(envelope(map[string]interface{}{
				"orderId": 9001, "orderStatus": "WAITING", "deliveryDate": "2026-03-02",
			}))
		default:
			t.Fatalf("unexpected call to %s", r.URL.Path)
		}
	})

	ctx := context.Background()
	sess, err := svc.StartSession(ctx, 7, groupConfigs()[:1], nil)
	require.NoError(t, err)

	// Edit one of the two rows
	_, err = svc.Mutate(ctx, sess.ID, func(st store.State) (store.State, error) {
		return st.UpdateReqQty(0, 1, 9)
	})
	require.NoError(t, err)

	order, err := svc.Submit(ctx, sess.ID, 0)
	require.NoError(t, err)
	require.Equal(t, 9001, order.OrderID)

	require.Len(t, orderBody.Items, 1, "unchanged rows stay out of the payload")
	require.Equal(t, 101, orderBody.Items[0].ItemCode)
	require.Equal(t, 9, orderBody.Items[0].Quantity)

	// Baseline was recommitted, so a second submit has nothing to send
	_, err = svc.Submit(ctx, sess.ID, 0)
	require.ErrorIs(t, err, ErrNoChanges)
}

func TestSubmitKeepsBaselineOnUpstreamFailure(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "get-inventory-primary-items-list"):
			json.NewEncoder(w).Encode(envelope([]map[string]interface{}{
				{"itemCode": 101, "itemName": "Chicken", "itemQty": 5, "itemMeasCode": 1, "itemMeasQty": 1.0, "UOM": "KG"},
			}))
		case strings.Contains(r.URL.Path, "place-order"):
			json.NewEncoder(w).Encode(map[string]interface{}{"status": false, "message": "kitchen is closed"})
		}
	})

	ctx := context.Background()
	sess, err := svc.StartSession(ctx, 7, groupConfigs()[:1], nil)
	require.NoError(t, err)

	_, err = svc.Mutate(ctx, sess.ID, func(st store.State) (store.State, error) {
		return st.UpdateReqQty(0, 1, 9)
	})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, sess.ID, 0)
	require.Error(t, err)
	require.True(t, client.IsAPIError(err))

	// The edit is still pending, retry must see it
	current, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, 5, current.State.Baseline(0)[0].ReqQty)
	require.Equal(t, 9, current.State.Groups[0].Items[0].ReqQty)
}

func TestSubmitWithNoEditsIsRefused(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(envelope([]map[string]interface{}{
			{"itemCode": 101, "itemName": "Chicken", "itemQty": 5, "itemMeasCode": 1, "itemMeasQty": 1.0, "UOM": "KG"},
		}))
	})

	ctx := context.Background()
	sess, err := svc.StartSession(ctx, 7, groupConfigs()[:1], nil)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, sess.ID, 0)
	require.ErrorIs(t, err, ErrNoChanges)
}

func TestMutateKeepsStateOnError(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(envelope([]map[string]interface{}{
			{"itemCode": 101, "itemName": "Chicken", "itemQty": 5, "itemMeasCode": 1, "itemMeasQty": 1.0, "UOM": "KG"},
		}))
	})

	ctx := context.Background()
	sess, err := svc.StartSession(ctx, 7, groupConfigs()[:1], nil)
	require.NoError(t, err)

	_, err = svc.Mutate(ctx, sess.ID, func(st store.State) (store.State, error) {
		return st.DeleteChecked(0)
	})
	require.ErrorIs(t, err, store.ErrNothingSelected)

	current, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, current.State.Groups[0].Items, 1)
}

func TestGetUnknownSession(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := svc.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrSessionNotFound)
}
