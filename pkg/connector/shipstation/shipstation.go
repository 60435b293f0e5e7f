// Package shipstation provides the ShipStation connector implementation.
// ShipStation exposes inventory read-only; writes go through the shipping
// UI and are not available on the public API surface used here.
package shipstation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/syncline/syncline/pkg/connector"
)

const (
	ServiceType = "shipstation"

	DefaultBaseURL = "https://api.shipstation.com"

	// maxPageSize is the largest page the inventory endpoint accepts.
	maxPageSize = 500

	requestTimeout = 30 * time.Second
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) ID() string {
	return ServiceType
}

func (f *Factory) Name() string {
	return "ShipStation"
}

func (f *Factory) Description() string {
	return "Reads inventory levels from the ShipStation shipping platform."
}

func (f *Factory) Create(credentials map[string]any, baseURL string, config map[string]any) (connector.Connector, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	if credentials == nil {
		credentials = map[string]any{}
	}

	return &Connector{
		credentials: credentials,
		baseURL:     baseURL,
		config:      config,
		client:      &http.Client{Timeout: requestTimeout},
		logger:      slog.With("module", "shipstation_connector"),
	}, nil
}

// Connector talks to the ShipStation v2 API.
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
		CanReadInventory: true,
	}
}

func (c *Connector) InventorySchema() connector.Schema {
	return connector.Schema{Fields: []connector.Field{
		{Name: "sku", Description: "Product SKU", DataType: "string", Required: true, Example: "WIDGET-1"},
		{Name: "on_hand", Description: "Units physically on hand", DataType: "integer", Example: 42},
		{Name: "allocated", Description: "Units allocated to open orders", DataType: "integer", Example: 3},
		{Name: "available", Description: "Units available to sell", DataType: "integer", Example: 39},
		{Name: "average_cost", Description: "Average unit cost", DataType: "float"},
		{Name: "inventory_warehouse_id", Description: "Warehouse identifier", DataType: "string", Example: "warehouse-123"},
		{Name: "inventory_location_id", Description: "Location ID within warehouse", DataType: "string"},
	}}
}

func (c *Connector) Operation(name string) (connector.Operation, bool) {
	switch name {
	case connector.OpReadInventory:
		return connector.Operation{
			Name: name,
			Params: []string{
				"api_key", "base_url", "limit", "sku", "sku_list",
				"inventory_warehouse_id", "inventory_location_id", "group_by",
			},
			Invoke: c.readInventory,
		}, true
	case connector.OpWriteInventory, connector.OpReadProducts, connector.OpWriteProducts:
		return connector.Operation{
			Name: name,
			Invoke: func(context.Context, map[string]any) (any, error) {
				return nil, fmt.Errorf("%w: shipstation does not support %s", connector.ErrOperationNotSupported, name)
			},
		}, true
	default:
		return connector.Operation{}, false
	}
}

func (c *Connector) TestConnection(ctx context.Context) error {
	_, err := c.fetchPage(ctx, c.baseURL, c.apiKeyFrom(nil), url.Values{"limit": []string{"1"}})

	return err
}

// readInventory pages through /v2/inventory and returns items in the
// normalized inventory shape. Pagination is internal; callers see one list.
func (c *Connector) readInventory(ctx context.Context, args map[string]any) (any, error) {
	apiKey := c.apiKeyFrom(args)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: api_key", connector.ErrMissingCredential)
	}

	baseURL := c.baseURL
	if override, ok := args["base_url"].(string); ok && override != "" {
		baseURL = override
	}

	limit := intArg(args, "limit", maxPageSize)

	params := url.Values{}
	params.Set("limit", strconv.Itoa(min(limit, maxPageSize)))

	for _, key := range []string{"sku", "inventory_warehouse_id", "inventory_location_id", "group_by"} {
		if v, ok := args[key]; ok {
			params.Set(key, fmt.Sprintf("%v", v))
		}
	}

	skuFilter := skuSet(args["sku_list"])

	items := make([]any, 0)
	page := 1

	for {
		params.Set("page", strconv.Itoa(page))

		c.logger.Debug("Fetching ShipStation inventory page", "page", page)

		body, err := c.fetchPage(ctx, baseURL, apiKey, params)
		if err != nil {
			return nil, err
		}

		if len(body.Inventory) == 0 {
			break
		}

		for _, raw := range body.Inventory {
			item := map[string]any{
				"sku":                    raw["sku"],
				"on_hand":                numberOrZero(raw["on_hand"]),
				"allocated":              numberOrZero(raw["allocated"]),
				"available":              numberOrZero(raw["available"]),
				"average_cost":           raw["average_cost"],
				"inventory_warehouse_id": raw["inventory_warehouse_id"],
				"inventory_location_id":  raw["inventory_location_id"],
			}

			if skuFilter != nil {
				sku, _ := raw["sku"].(string)
				if _, keep := skuFilter[sku]; !keep {
					continue
				}
			}

			items = append(items, item)
		}

		if len(items) >= limit || len(body.Inventory) < min(limit, maxPageSize) {
			break
		}

		// a response without a pages count is treated as single-page
		pages := body.Pages
		if pages == 0 {
			pages = 1
		}

		if page >= pages {
			break
		}

		page++
	}

	if len(items) > limit {
		items = items[:limit]
	}

	c.logger.Info("Fetched ShipStation inventory", "items", len(items))

	return items, nil
}

type inventoryPage struct {
	Inventory []map[string]any `json:"inventory"`
	Pages     int              `json:"pages"`
	Total     int              `json:"total"`
}

func (c *Connector) fetchPage(ctx context.Context, baseURL, apiKey string, params url.Values) (*inventoryPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v2/inventory?"+params.Encode(), nil)
	if err != nil {
		return nil, connector.NewRequestError(ServiceType, connector.OpReadInventory, 0, err)
	}

	req.Header.Set("API-Key", apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, connector.NewRequestError(ServiceType, connector.OpReadInventory, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))

		return nil, connector.NewRequestError(
			ServiceType, connector.OpReadInventory, resp.StatusCode, errors.New(string(payload)))
	}

	var body inventoryPage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, connector.NewRequestError(ServiceType, connector.OpReadInventory, 0, err)
	}

	return &body, nil
}

// apiKeyFrom prefers a per-call api_key argument over the connector's
// construction-time credentials.
func (c *Connector) apiKeyFrom(args map[string]any) string {
	if key, ok := args["api_key"].(string); ok && key != "" {
		return key
	}

	key, _ := c.credentials["api_key"].(string)

	return key
}

// skuSet builds a membership set from a sku_list argument, tolerating both
// []string and the []any that JSON decoding produces.
func skuSet(value any) map[string]struct{} {
	switch list := value.(type) {
	case []string:
		set := make(map[string]struct{}, len(list))
		for _, sku := range list {
			set[sku] = struct{}{}
		}

		return set
	case []any:
		set := make(map[string]struct{}, len(list))
		for _, v := range list {
			if sku, ok := v.(string); ok {
				set[sku] = struct{}{}
			}
		}

		return set
	default:
		return nil
	}
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func numberOrZero(value any) any {
	if value == nil {
		return 0
	}

	return value
}
