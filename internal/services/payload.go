package services

import (
	"example.com/cloudkitchen/services/ordering/internal/models"
)

// BuildOrderItems maps changed line items onto the upstream order shape.
// Rows whose requested quantity ended up at zero carry no order intent and
// are dropped rather than sent as zero-quantity lines.
func BuildOrderItems(changed []models.LineItem) []models.OrderItemPayload {
	payload := make([]models.OrderItemPayload, 0, len(changed))
	for _, it := range changed {
		if it.ReqQty <= 0 {
			continue
		}
		payload = append(payload, models.OrderItemPayload{
			ItemCode: it.ItemCode,
			ItemType: it.ItemType,
			Quantity: it.ReqQty,
			ListMeasurements: []models.OrderMeasurement{{
				MeasurementCode: it.MeasCode,
				MeasurementDesc: it.UOM,
				Qty:             it.MeasQty,
			}},
			ItemDelDate: it.DeliveryDate,
		})
	}
	return payload
}
