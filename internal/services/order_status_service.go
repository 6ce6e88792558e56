package services

import (
	"context"
	"encoding/json"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/cloudkitchen/services/ordering/internal/client"
	"example.com/cloudkitchen/services/ordering/internal/metrics"
	"example.com/cloudkitchen/services/ordering/internal/repositories"
	"example.com/cloudkitchen/services/ordering/internal/search"
)

// orderStatusEvent is the message body the kitchen platform publishes when an
// order changes status.
type orderStatusEvent struct {
	OrderID     int    `json:"orderId"`
	OrderStatus string `json:"orderStatus"`
}

// OrderStatusService keeps the local audit trail in sync with the platform's
// order lifecycle, from status events when they arrive and from periodic
// reconciliation when they don't.
type OrderStatusService struct {
	kitchen   *client.Client
	orderRepo *repositories.OrderRecordRepository
	elastic   *search.ElasticClient
	metrics   *metrics.Metrics
}

// NewOrderStatusService creates a new order status service
func NewOrderStatusService(
	kitchen *client.Client,
	orderRepo *repositories.OrderRecordRepository,
	elastic *search.ElasticClient,
	metricsCollector *metrics.Metrics,
) *OrderStatusService {
	return &OrderStatusService{
		kitchen:   kitchen,
		orderRepo: orderRepo,
		elastic:   elastic,
		metrics:   metricsCollector,
	}
}

// ProcessMessage handles one order-status event from the Service Bus queue.
// Events for orders this service never placed are acknowledged and skipped.
func (s *OrderStatusService) ProcessMessage(ctx context.Context, message *azservicebus.ReceivedMessage, txn *newrelic.Transaction) error {
	var event orderStatusEvent
	if err := json.Unmarshal(message.Body, &event); err != nil {
		return errors.Wrap(err, "failed to unmarshal order status event")
	}
	if event.OrderID == 0 || event.OrderStatus == "" {
		return errors.Errorf("invalid order status event: order %d status %q", event.OrderID, event.OrderStatus)
	}

	if txn != nil {
		txn.AddAttribute("order_id", event.OrderID)
		txn.AddAttribute("order_status", event.OrderStatus)
	}

	if err := s.applyStatus(ctx, event.OrderID, event.OrderStatus); err != nil {
		if errors.Is(err, errUnknownOrder) {
			log.Debug().Int("order_id", event.OrderID).Msg("Status event for unknown order, skipping")
			return nil
		}
		return err
	}

	s.metrics.IncrementCounter("order.status.event")
	return nil
}

// Reconcile sweeps unsettled audit records against the delivery API's active
// and delivered listings and applies any status changes found. It backs up
// the event stream, so individual record failures are logged, not fatal.
func (s *OrderStatusService) Reconcile(ctx context.Context) error {
	records, err := s.orderRepo.ListUnsettled(ctx, 200)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	latest := make(map[int]string)
	for _, class := range []string{"A", "D"} {
		orders, err := s.kitchen.ListOrders(ctx, class)
		if err != nil {
			return errors.Wrapf(err, "failed to list %q orders for reconciliation", class)
		}
		for _, o := range orders {
			latest[o.OrderID] = o.OrderStatus
		}
	}

	updated := 0
	for _, record := range records {
		status, ok := latest[record.OrderID]
		if !ok || status == record.OrderStatus {
			continue
		}
		if err := s.applyStatus(ctx, record.OrderID, status); err != nil {
			log.Error().Err(err).Int("order_id", record.OrderID).Msg("Failed to reconcile order status")
			continue
		}
		updated++
	}

	if updated > 0 {
		s.metrics.IncrementCounter("order.status.reconciled")
		log.Info().Int("checked", len(records)).Int("updated", updated).Msg("Order statuses reconciled")
	}
	return nil
}

var errUnknownOrder = errors.New("order record not found")

// applyStatus updates the audit record and reindexes the order document.
func (s *OrderStatusService) applyStatus(ctx context.Context, orderID int, status string) error {
	record, err := s.orderRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return errUnknownOrder
	}
	if record.OrderStatus == status {
		return nil
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, status); err != nil {
		return err
	}
	record.OrderStatus = status

	if s.elastic != nil {
		if err := s.elastic.IndexOrder(ctx, record); err != nil {
			log.Warn().Err(err).Int("order_id", orderID).Msg("Failed to reindex order after status change")
		}
	}

	log.Info().Int("order_id", orderID).Str("status", status).Msg("Order status updated")
	return nil
}
