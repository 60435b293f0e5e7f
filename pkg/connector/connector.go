// Package connector defines the capability contract between the workflow
// engine and external inventory services.
package connector

import "context"

// Well-known operation names. Every connector exposes a subset of these,
// declared through its Capability.
const (
	OpReadInventory  = "read_inventory"
	OpWriteInventory = "write_inventory"
	OpReadProducts   = "read_products"
	OpWriteProducts  = "write_products"
)

// Capability declares which operations a connector supports. The engine
// queries it before dispatch; invoking an undeclared operation fails with
// ErrOperationNotSupported without any I/O.
type Capability struct {
	CanReadInventory  bool `json:"can_read_inventory"`
	CanWriteInventory bool `json:"can_write_inventory"`
	CanReadProducts   bool `json:"can_read_products"`
	CanWriteProducts  bool `json:"can_write_products"`
	CanReadOrders     bool `json:"can_read_orders"`
	CanWriteOrders    bool `json:"can_write_orders"`
}

// Field describes one field of a connector's data shape. Used for
// discovery/UI only, never by the interpreter's control flow.
type Field struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	DataType    string `json:"data_type"`
	Required    bool   `json:"required"`
	Example     any    `json:"example,omitempty"`
}

// Schema describes the data shape a connector reads or writes.
type Schema struct {
	Fields []Field `json:"fields"`
}

// FieldNames returns the names of all schema fields.
func (s Schema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}

	return names
}

// Operation is a named connector operation together with its argument
// descriptor. Params lists the argument names the operation declares; the
// engine drops every call argument not listed unless AcceptsExtra is set,
// and injects credentials only for declared names.
type Operation struct {
	Name         string
	Params       []string
	AcceptsExtra bool
	Invoke       func(ctx context.Context, args map[string]any) (any, error)
}

// Declares reports whether the operation declares an argument name.
func (o Operation) Declares(name string) bool {
	for _, p := range o.Params {
		if p == name {
			return true
		}
	}

	return false
}

// FilterArgs returns args restricted to the operation's declared parameter
// names. Operations accepting open-ended extras receive everything.
func (o Operation) FilterArgs(args map[string]any) map[string]any {
	if o.AcceptsExtra {
		return args
	}

	filtered := make(map[string]any, len(args))

	for name, value := range args {
		if o.Declares(name) {
			filtered[name] = value
		}
	}

	return filtered
}

// WriteResult is the summary shape write operations return, alongside the
// raw map form the engine stores as stage output.
type WriteResult struct {
	SuccessCount int              `json:"success_count"`
	FailedCount  int              `json:"failed_count"`
	TotalCount   int              `json:"total_count"`
	Items        []map[string]any `json:"items,omitempty"`
	Errors       []string         `json:"errors,omitempty"`
}

// AsMap converts the result to the wire shape stage outputs use.
func (r WriteResult) AsMap() map[string]any {
	out := map[string]any{
		"success_count": r.SuccessCount,
		"failed_count":  r.FailedCount,
		"total_count":   r.TotalCount,
	}

	if r.Items != nil {
		items := make([]any, 0, len(r.Items))
		for _, item := range r.Items {
			items = append(items, item)
		}

		out["items"] = items
	}

	if len(r.Errors) > 0 {
		errs := make([]any, 0, len(r.Errors))
		for _, e := range r.Errors {
			errs = append(errs, e)
		}

		out["errors"] = errs
	}

	return out
}

// Connector is an adapter for one external inventory service.
type Connector interface {
	// ServiceType returns the service tag used in workflow bindings.
	ServiceType() string

	// Capabilities returns what operations this connector supports.
	Capabilities() Capability

	// InventorySchema returns the inventory data shape for discovery.
	InventorySchema() Schema

	// Operation returns the named operation's descriptor.
	Operation(name string) (Operation, bool)

	// TestConnection verifies the service is reachable with the
	// connector's construction-time credentials.
	TestConnection(ctx context.Context) error
}
