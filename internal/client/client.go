// Package client talks to the kitchen platform's HTTP API. Every endpoint
// answers with the same envelope: {status, message, object}. A transport
// failure and an application-level refusal (status=false) are kept distinct
// so callers can surface the platform's message verbatim.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/cloudkitchen/services/ordering/config"
	"example.com/cloudkitchen/services/ordering/internal/models"
)

// APIError is a recoverable application-level failure reported by the
// platform. Its message is shown to the user as-is.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return "kitchen API rejected the request"
	}
	return e.Message
}

// IsAPIError reports whether err is an application-level failure.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// envelope is the platform's uniform response wrapper.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Object  json.RawMessage `json:"object"`
}

// ItemRef identifies one primary item when requesting assembly availability.
type ItemRef struct {
	Qty      int     `json:"qty"`
	MeasQty  float64 `json:"meas_qty"`
	ItemCode int     `json:"item_code"`
	MeasCode int     `json:"meas_code"`
}

// PrimaryItemRow is a row of the historical/recommended primary items fetch.
type PrimaryItemRow struct {
	ItemCode int     `json:"itemCode"`
	ItemName string  `json:"itemName"`
	Source   string  `json:"mainItemName"`
	ItemQty  int     `json:"itemQty"`
	MeasCode int     `json:"itemMeasCode"`
	MeasQty  float64 `json:"itemMeasQty"`
	MeasDesc string  `json:"itemMeasDesc"`
	UOM      string  `json:"UOM"`
}

// PrimaryItemsRequest is the per-delivery-date request body for the primary
// items fetch.
type PrimaryItemsRequest struct {
	CloudKitchenID    int      `json:"cloud_kitchen_id"`
	DeliveryDate      string   `json:"delivery_date"`
	SaleDays          []string `json:"sale_days,omitempty"`
	PreviousWeekCount int      `json:"previous_week_count"`
	SaleDates         []string `json:"sale_dates,omitempty"`
}

// OrderRequest is the submission body for placing or updating an order.
type OrderRequest struct {
	CloudKitchenID int                       `json:"cloud_kitchen_id"`
	DeliveryDate   string                    `json:"delivery_date"`
	Items          []models.OrderItemPayload `json:"items"`
}

// StockSaveRequest persists a reviewed stock count back to the platform.
type StockSaveRequest struct {
	DataID         int               `json:"data_id"`
	CloudKitchenID int               `json:"cloud_kitchen_id"`
	DataType       string            `json:"data_type"`
	Status         string            `json:"status"`
	DataValue      []models.StockRow `json:"data_value"`
}

// Client is the kitchen platform API client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a kitchen API client.
func New(cfg config.KitchenConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.BearerToken,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// FetchPrimaryItems fetches the historical/recommended primary items for one
// delivery-date configuration.
func (c *Client) FetchPrimaryItems(ctx context.Context, req PrimaryItemsRequest) ([]PrimaryItemRow, error) {
	var rows []PrimaryItemRow
	err := c.call(ctx, http.MethodPost, "StoreCtl/get-inventory-primary-items-list", req, &rows)
	if err != nil {
		return nil, err
	}
	for i, r := range rows {
		if r.ItemCode <= 0 || r.MeasCode <= 0 {
			return nil, errors.Errorf("malformed primary item row %d: missing item or measurement code", i)
		}
	}
	return rows, nil
}

// FetchAssemblyAvailability resolves primary item refs into assembly line
// items with availability, recommendation and capacity figures.
func (c *Client) FetchAssemblyAvailability(ctx context.Context, kitchenID int, refs []ItemRef) ([]models.AvailabilityRow, error) {
	path := fmt.Sprintf("StoreCtl/get-inventory-assembly-items-list/%d", kitchenID)
	var rows []models.AvailabilityRow
	if err := c.call(ctx, http.MethodPost, path, refs, &rows); err != nil {
		return nil, err
	}
	// A malformed row rejects the whole group rather than producing items
	// with undefined quantities.
	for i, r := range rows {
		if r.ItemCode <= 0 || r.MeasCode <= 0 || r.UOM == "" {
			return nil, errors.Errorf("malformed availability row %d: missing item, measurement or unit data", i)
		}
	}
	return rows, nil
}

// FetchCatalog fetches the kitchen's full assembly item catalog.
func (c *Client) FetchCatalog(ctx context.Context, kitchenID int) ([]models.CatalogItem, error) {
	path := fmt.Sprintf("StoreCtl/get-kitchen-assembly-items-list/%d", kitchenID)
	var items []models.CatalogItem
	if err := c.call(ctx, http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateAssemblyItems pushes edited storage type / capacity details for
// catalog items.
func (c *Client) UpdateAssemblyItems(ctx context.Context, items []models.CatalogItem) error {
	return c.call(ctx, http.MethodPost, "StoreCtl/update-assembly-item-basic-details", items, nil)
}

// SubmitOrder places a replenishment order for one delivery group.
func (c *Client) SubmitOrder(ctx context.Context, req OrderRequest) (*models.Order, error) {
	var order models.Order
	if err := c.call(ctx, http.MethodPost, "DeliveryCtl/place-order", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders lists orders by status class: "A" for active, "D" for delivered.
func (c *Client) ListOrders(ctx context.Context, statusClass string) ([]models.Order, error) {
	path := fmt.Sprintf("DeliveryCtl/get-my-orders-list/%s", statusClass)
	var orders []models.Order
	if err := c.call(ctx, http.MethodGet, path, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// FetchStockData fetches the latest uploaded stock count.
func (c *Client) FetchStockData(ctx context.Context, kitchenID int) ([]models.StockData, error) {
	path := fmt.Sprintf("StoreCtl/get-inventory-data/STOCK/%d", kitchenID)
	var data []models.StockData
	if err := c.call(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// SaveStockData persists reviewed stock rows.
func (c *Client) SaveStockData(ctx context.Context, req StockSaveRequest) error {
	return c.call(ctx, http.MethodPost, "StoreCtl/save-or-update-inventory-data", req, nil)
}

// call performs one request/response round trip through the envelope. out may
// be nil when the caller only cares about status.
func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	url := c.baseURL + "/" + path

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request body")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "kitchen API request failed: %s %s", method, path)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusInternalServerError {
		return errors.Errorf("kitchen API returned %d for %s", res.StatusCode, path)
	}

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return errors.Wrapf(err, "failed to decode kitchen API response for %s", path)
	}

	if !env.Status {
		log.Debug().Str("path", path).Str("message", env.Message).Msg("kitchen API refused request")
		return &APIError{Message: env.Message}
	}

	if out != nil && len(env.Object) > 0 {
		if err := json.Unmarshal(env.Object, out); err != nil {
			return errors.Wrapf(err, "failed to unmarshal kitchen API object for %s", path)
		}
	}
	return nil
}
