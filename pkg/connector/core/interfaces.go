package core

import (
	"context"
	"time"
)

// Connector is the base interface for all connectors
type Connector interface {
	// Metadata
	Name() string
	Version() string

	// Lifecycle
	Initialize(ctx context.Context) error
	Close(ctx context.Context) error

	// Health and monitoring
	Health(ctx context.Context) error
	Metrics() map[string]interface{}
}

// SchemaOp describes the object classes and attributes a connector supports
type SchemaOp interface {
	Schema(ctx context.Context) (*Schema, error)
}

// TestOp checks that the configured backend is reachable and usable
type TestOp interface {
	Test(ctx context.Context) error
}

// CreateOp creates an object and returns its Uid
type CreateOp interface {
	Create(ctx context.Context, oc ObjectClass, attrs AttributeSet, opts *OperationOptions) (Uid, error)
}

// UpdateOp replaces the values of the given attributes. The returned Uid
// differs from uid when the object was renamed.
type UpdateOp interface {
	Update(ctx context.Context, oc ObjectClass, uid Uid, attrs AttributeSet, opts *OperationOptions) (Uid, error)
}

// DeleteOp removes an object
type DeleteOp interface {
	Delete(ctx context.Context, oc ObjectClass, uid Uid, opts *OperationOptions) error
}

// SearchOp streams the objects matching filter to handler. A nil filter
// matches everything.
type SearchOp interface {
	Search(ctx context.Context, oc ObjectClass, filter Filter, handler ResultsHandler, opts *OperationOptions) error
}

// AuthenticateOp verifies an account password and returns the account Uid
type AuthenticateOp interface {
	Authenticate(ctx context.Context, oc ObjectClass, username string, password GuardedString, opts *OperationOptions) (Uid, error)
}

// ResultsHandler receives search results; returning false stops the search
type ResultsHandler func(obj *ConnectorObject) bool

// OperationOptions carries optional per-call settings
type OperationOptions struct {
	// AttributesToGet restricts returned attributes; empty means the
	// attributes returned by default
	AttributesToGet []string `json:"attributes_to_get,omitempty"`
	// PageSize bounds the number of results; 0 means unbounded
	PageSize int `json:"page_size,omitempty"`
	// RunAsUser names the requester. It is attached to operation logs and
	// spans; connectors do not impersonate
	RunAsUser string `json:"run_as_user,omitempty"`
}

// Wants reports whether attribute name was explicitly requested
func (o *OperationOptions) Wants(name string) bool {
	if o == nil {
		return false
	}
	for _, n := range o.AttributesToGet {
		if equalFold(n, name) {
			return true
		}
	}
	return false
}

// HealthStatus represents the health status of a connector
type HealthStatus struct {
	Status    string                 `json:"status"` // "healthy", "unhealthy", "degraded"
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details"`
	Error     error                  `json:"-"`
}

// Operation names used for metrics, tracing and capability listing
const (
	OpCreate       = "create"
	OpUpdate       = "update"
	OpDelete       = "delete"
	OpSearch       = "search"
	OpAuthenticate = "authenticate"
	OpSchema       = "schema"
	OpTest         = "test"
)

// Operations lists the SPI operations c implements
func Operations(c Connector) []string {
	var ops []string
	if _, ok := c.(SchemaOp); ok {
		ops = append(ops, OpSchema)
	}
	if _, ok := c.(TestOp); ok {
		ops = append(ops, OpTest)
	}
	if _, ok := c.(CreateOp); ok {
		ops = append(ops, OpCreate)
	}
	if _, ok := c.(UpdateOp); ok {
		ops = append(ops, OpUpdate)
	}
	if _, ok := c.(DeleteOp); ok {
		ops = append(ops, OpDelete)
	}
	if _, ok := c.(SearchOp); ok {
		ops = append(ops, OpSearch)
	}
	if _, ok := c.(AuthenticateOp); ok {
		ops = append(ops, OpAuthenticate)
	}
	return ops
}

// GetObject fetches a single object by Uid. It returns nil, nil when no
// object matches.
func GetObject(ctx context.Context, s SearchOp, oc ObjectClass, uid Uid, opts *OperationOptions) (*ConnectorObject, error) {
	var found *ConnectorObject
	err := s.Search(ctx, oc, Equals(AttrUid, string(uid)), func(obj *ConnectorObject) bool {
		found = obj
		return false
	}, opts)
	if err != nil {
		return nil, err
	}
	return found, nil
}
