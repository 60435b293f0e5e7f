// Package infiplex provides the InfiPlex warehouse connector implementation.
package infiplex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/syncline/syncline/pkg/connector"
)

const (
	ServiceType = "infiplex"

	readTimeout  = 30 * time.Second
	writeTimeout = 60 * time.Second
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) ID() string {
	return ServiceType
}

func (f *Factory) Name() string {
	return "InfiPlex"
}

func (f *Factory) Description() string {
	return "Reads and writes warehouse inventory through the InfiPlex admin API."
}

func (f *Factory) Create(credentials map[string]any, baseURL string, config map[string]any) (connector.Connector, error) {
	if credentials == nil {
		credentials = map[string]any{}
	}

	if config == nil {
		config = map[string]any{}
	}

	return &Connector{
		credentials: credentials,
		baseURL:     baseURL,
		config:      config,
		client:      &http.Client{Timeout: writeTimeout},
		logger:      slog.With("module", "infiplex_connector"),
	}, nil
}

// Connector talks to the InfiPlex shop admin API.
type Connector struct {
	credentials map[string]any
	baseURL     string
	config      map[string]any
	client      *http.Client
	logger      *slog.Logger
}

func (c *Connector) ServiceType() string {
	return ServiceType
}

func (c *Connector) Capabilities() connector.Capability {
	return connector.Capability{
		CanReadInventory:  true,
		CanWriteInventory: true,
	}
}

func (c *Connector) InventorySchema() connector.Schema {
	return connector.Schema{Fields: []connector.Field{
		{Name: "sku", Description: "Product SKU", DataType: "string", Required: true, Example: "WIDGET-1"},
		{Name: "quantity", Description: "Current quantity in warehouse (read-only)", DataType: "integer", Example: 12},
		{Name: "quantity_to_set", Description: "Quantity to write on update", DataType: "integer", Required: true},
		{Name: "product_name", Description: "Product display name", DataType: "string"},
		{Name: "warehouse_id", Description: "Warehouse identifier", DataType: "integer", Example: 4},
		{Name: "warehouse_name", Description: "Warehouse display name", DataType: "string"},
	}}
}

func (c *Connector) Operation(name string) (connector.Operation, bool) {
	switch name {
	case connector.OpReadInventory:
		return connector.Operation{
			Name:   name,
			Params: []string{"api_key", "base_url", "warehouse_id", "search_term", "limit", "is_active"},
			Invoke: c.readInventory,
		}, true
	case connector.OpWriteInventory:
		return connector.Operation{
			Name:   name,
			Params: []string{"api_key", "base_url", "items", "warehouse_id"},
			Invoke: c.writeInventory,
		}, true
	case connector.OpReadProducts, connector.OpWriteProducts:
		return connector.Operation{
			Name: name,
			Invoke: func(context.Context, map[string]any) (any, error) {
				return nil, fmt.Errorf("%w: infiplex does not support %s", connector.ErrOperationNotSupported, name)
			},
		}, true
	default:
		return connector.Operation{}, false
	}
}

func (c *Connector) TestConnection(ctx context.Context) error {
	params := url.Values{}
	params.Set("limit", "1")

	_, err := c.get(ctx, c.baseURL, c.apiKeyFrom(nil), "/api/admin/shop/inventory/search", params)

	return err
}

func (c *Connector) readInventory(ctx context.Context, args map[string]any) (any, error) {
	apiKey := c.apiKeyFrom(args)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: api_key", connector.ErrMissingCredential)
	}

	baseURL := c.baseURLFrom(args)

	params := url.Values{}

	for _, key := range []string{"warehouse_id", "search_term", "limit", "is_active"} {
		if v, ok := args[key]; ok {
			params.Set(key, fmt.Sprintf("%v", v))
		}
	}

	body, err := c.get(ctx, baseURL, apiKey, "/api/admin/shop/inventory/search", params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Inventory []map[string]any `json:"inventory"`
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, connector.NewRequestError(ServiceType, connector.OpReadInventory, 0, err)
	}

	items := make([]any, 0, len(payload.Inventory))

	for _, raw := range payload.Inventory {
		sku := raw["base_sku"]
		if sku == nil || sku == "" {
			sku = raw["item_sku"]
		}

		items = append(items, map[string]any{
			"sku":            sku,
			"quantity":       raw["quantity"],
			"product_name":   raw["product_name"],
			"warehouse_id":   raw["shop_warehouseid"],
			"warehouse_name": raw["warehouse_name"],
		})
	}

	c.logger.Info("Fetched InfiPlex inventory", "items", len(items))

	return items, nil
}

// writeInventory updates inventory levels. Items need sku and
// quantity_to_set; warehouse_id falls back to the call argument and then to
// the connector's static configuration. A single item goes through the
// per-SKU endpoint, multiple items through the bulk endpoint.
func (c *Connector) writeInventory(ctx context.Context, args map[string]any) (any, error) {
	apiKey := c.apiKeyFrom(args)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: api_key", connector.ErrMissingCredential)
	}

	baseURL := c.baseURLFrom(args)

	items := itemList(args["items"])
	if len(items) == 0 {
		return connector.WriteResult{}.AsMap(), nil
	}

	defaultWarehouse := args["warehouse_id"]
	if defaultWarehouse == nil {
		defaultWarehouse = c.config["warehouse_id"]
	}

	if len(items) == 1 {
		return c.writeSingle(ctx, baseURL, apiKey, items[0], defaultWarehouse)
	}

	return c.writeBulk(ctx, baseURL, apiKey, items, defaultWarehouse)
}

func (c *Connector) writeSingle(ctx context.Context, baseURL, apiKey string, item map[string]any, defaultWarehouse any) (any, error) {
	sku, _ := item["sku"].(string)
	quantity := item["quantity_to_set"]
	warehouse := item["warehouse_id"]

	if warehouse == nil {
		warehouse = defaultWarehouse
	}

	if sku == "" {
		return nil, connector.NewRequestError(ServiceType, connector.OpWriteInventory, 0,
			errors.New("sku is required for inventory update"))
	}

	if quantity == nil {
		return nil, connector.NewRequestError(ServiceType, connector.OpWriteInventory, 0,
			errors.New("quantity_to_set is required for inventory update"))
	}

	if warehouse == nil {
		return nil, connector.NewRequestError(ServiceType, connector.OpWriteInventory, 0,
			errors.New("warehouse_id is required for inventory update"))
	}

	payload := map[string]any{
		"quantity_to_set": quantity,
		"warehouse_id":    warehouse,
	}

	status, _, err := c.send(ctx, http.MethodPut, baseURL+"/api/admin/shop/inventory/"+url.PathEscape(sku), apiKey, payload)
	if err != nil {
		return nil, err
	}

	result := connector.WriteResult{TotalCount: 1}

	if status == http.StatusOK {
		result.SuccessCount = 1
		result.Items = []map[string]any{item}
	} else {
		result.FailedCount = 1
		result.Errors = []string{fmt.Sprintf("HTTP %d updating %s", status, sku)}
	}

	return result.AsMap(), nil
}

func (c *Connector) writeBulk(ctx context.Context, baseURL, apiKey string, items []map[string]any, defaultWarehouse any) (any, error) {
	bulk := make([]map[string]any, 0, len(items))
	valid := make([]map[string]any, 0, len(items))
	skippedInvalid := 0

	for _, item := range items {
		sku, _ := item["sku"].(string)
		quantity := item["quantity_to_set"]
		warehouse := item["warehouse_id"]

		if warehouse == nil {
			warehouse = defaultWarehouse
		}

		if sku == "" || quantity == nil || warehouse == nil {
			c.logger.Warn("Skipping invalid inventory item", "sku", sku)
			skippedInvalid++

			continue
		}

		bulk = append(bulk, map[string]any{
			"sku":             sku,
			"warehouse_id":    warehouse,
			"quantity_to_set": quantity,
		})
		valid = append(valid, item)
	}

	if len(bulk) == 0 {
		result := connector.WriteResult{FailedCount: len(items), TotalCount: len(items)}

		return result.AsMap(), nil
	}

	status, body, err := c.send(ctx, http.MethodPost, baseURL+"/api/admin/shop/inventory/bulk_update", apiKey,
		map[string]any{"inventory_items": bulk})
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		return nil, connector.NewRequestError(ServiceType, connector.OpWriteInventory, status,
			errors.New("bulk update rejected"))
	}

	var results []map[string]any
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, connector.NewRequestError(ServiceType, connector.OpWriteInventory, 0, err)
	}

	result := connector.WriteResult{TotalCount: len(bulk) + skippedInvalid, FailedCount: skippedInvalid}

	for i, entry := range results {
		if entry["warehouse_inventory"] != nil {
			result.SuccessCount++

			if i < len(valid) {
				result.Items = append(result.Items, valid[i])
			}
		} else {
			result.FailedCount++
		}
	}

	c.logger.Info("Bulk inventory update completed",
		"success", result.SuccessCount, "failed", result.FailedCount)

	return result.AsMap(), nil
}

func (c *Connector) get(ctx context.Context, baseURL, apiKey, path string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, connector.NewRequestError(ServiceType, connector.OpReadInventory, 0, err)
	}

	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, connector.NewRequestError(ServiceType, connector.OpReadInventory, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, connector.NewRequestError(ServiceType, connector.OpReadInventory, 0, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, connector.NewRequestError(ServiceType, connector.OpReadInventory, resp.StatusCode,
			errors.New(string(body)))
	}

	return body, nil
}

func (c *Connector) send(ctx context.Context, method, endpoint, apiKey string, payload any) (int, []byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, connector.NewRequestError(ServiceType, connector.OpWriteInventory, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return 0, nil, connector.NewRequestError(ServiceType, connector.OpWriteInventory, 0, err)
	}

	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, connector.NewRequestError(ServiceType, connector.OpWriteInventory, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, connector.NewRequestError(ServiceType, connector.OpWriteInventory, 0, err)
	}

	return resp.StatusCode, body, nil
}

func (c *Connector) apiKeyFrom(args map[string]any) string {
	if key, ok := args["api_key"].(string); ok && key != "" {
		return key
	}

	key, _ := c.credentials["api_key"].(string)

	return key
}

func (c *Connector) baseURLFrom(args map[string]any) string {
	if override, ok := args["base_url"].(string); ok && override != "" {
		return override
	}

	return c.baseURL
}

// itemList normalizes an items argument into a list of objects, accepting
// both the native []map form and the []any form JSON decoding produces.
func itemList(value any) []map[string]any {
	switch list := value.(type) {
	case []map[string]any:
		return list
	case []any:
		items := make([]map[string]any, 0, len(list))
		for _, v := range list {
			if item, ok := v.(map[string]any); ok {
				items = append(items, item)
			}
		}

		return items
	default:
		return nil
	}
}
