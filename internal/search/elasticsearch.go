package search

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"

	"example.com/cloudkitchen/services/ordering/config"
	"example.com/cloudkitchen/services/ordering/internal/models"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ElasticClient indexes placed orders so the history screen can search them.
type ElasticClient struct {
	client *elasticsearch.Client
	config config.ElasticConfig
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client: client,
		config: cfg,
	}, nil
}

// IndexOrder indexes one placed order. The document id is the platform order
// id so a later status update overwrites the same document.
func (c *ElasticClient) IndexOrder(ctx context.Context, record *models.OrderRecord) error {
	doc := map[string]interface{}{
		"order_id":         record.OrderID,
		"cloud_kitchen_id": record.CloudKitchenID,
		"session_id":       record.SessionID.String(),
		"delivery_date":    record.DeliveryDate,
		"order_status":     record.OrderStatus,
		"items_count":      record.ItemsCount,
		"placed_at":        record.CreatedAt,
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal order document")
	}

	req := esapi.IndexRequest{
		Index:      config.FormatIndex(c.config, c.config.Index),
		DocumentID: strconv.Itoa(record.OrderID),
		Body:       bytes.NewReader(docJSON),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return errors.Errorf("Elasticsearch index error: %v", e)
	}

	log.Info().Int("order_id", record.OrderID).Msg("order indexed")
	return nil
}

// SearchOrders searches indexed orders for one kitchen. An empty term matches
// everything; results come back newest first.
func (c *ElasticClient) SearchOrders(ctx context.Context, kitchenID int, term string) ([]map[string]interface{}, error) {
	must := []map[string]interface{}{
		{"term": map[string]interface{}{"cloud_kitchen_id": kitchenID}},
	}
	if term != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  term,
				"fields": []string{"delivery_date", "order_status"},
			},
		})
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{"bool": map[string]interface{}{"must": must}},
		"sort":  []map[string]interface{}{{"placed_at": map[string]interface{}{"order": "desc"}}},
	}

	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal search query")
	}

	req := esapi.SearchRequest{
		Index: []string{config.FormatIndex(c.config, c.config.Index)},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute Elasticsearch search request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return nil, errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return nil, errors.Errorf("Elasticsearch search error: %v", e)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to parse Elasticsearch search response")
	}

	hits, ok := result["hits"].(map[string]interface{})
	if !ok {
		return nil, errors.New("unexpected search result format")
	}
	hitsArray, ok := hits["hits"].([]interface{})
	if !ok {
		return nil, errors.New("unexpected hits format")
	}

	var docs []map[string]interface{}
	for _, hit := range hitsArray {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		source, ok := hitMap["_source"].(map[string]interface{})
		if !ok {
			continue
		}
		docs = append(docs, source)
	}
	return docs, nil
}
