// Package registry maps connector type names to factories. Connector
// packages register themselves from init, so importing a connector package
// for side effects makes it available to the CLI.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/idbridge/pkg/config"
	"github.com/ajitpratap0/idbridge/pkg/connector/core"
	"github.com/ajitpratap0/idbridge/pkg/errors"
	"github.com/ajitpratap0/idbridge/pkg/logger"
)

// ConfigFactory returns a typed configuration with defaults applied
type ConfigFactory func(name string) config.Provider

// ConnectorFactory creates a connector from its typed configuration. The
// connector is not initialized.
type ConnectorFactory func(cfg config.Provider) (core.Connector, error)

// ConnectorInfo provides information about a connector
type ConnectorInfo struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Version       string   `json:"version"`
	ObjectClasses []string `json:"object_classes"`
	Capabilities  []string `json:"capabilities"`
}

// Registration describes one connector type
type Registration struct {
	Info      ConnectorInfo
	NewConfig ConfigFactory
	New       ConnectorFactory
}

// Registry manages connector registration and instantiation
type Registry struct {
	connectors map[string]Registration
	mu         sync.RWMutex
	logger     *zap.Logger
}

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates a new connector registry
func NewRegistry() *Registry {
	return &Registry{
		connectors: make(map[string]Registration),
		logger:     logger.Get().With(zap.String("component", "connector_registry")),
	}
}

// Register adds a connector type
func (r *Registry) Register(reg Registration) error {
	if reg.Info.Name == "" || reg.New == nil || reg.NewConfig == nil {
		return errors.New(errors.ErrorTypeConfig, "registration needs a name, a config factory and a connector factory")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.connectors[reg.Info.Name]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("connector %s already registered", reg.Info.Name))
	}

	r.connectors[reg.Info.Name] = reg
	r.logger.Debug("connector registered", zap.String("name", reg.Info.Name))
	return nil
}

func (r *Registry) lookup(connectorType string) (Registration, error) {
	r.mu.RLock()
	reg, exists := r.connectors[connectorType]
	r.mu.RUnlock()

	if !exists {
		return Registration{}, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("connector %s not found", connectorType))
	}
	return reg, nil
}

// NewConfig returns a defaulted configuration for connectorType
func (r *Registry) NewConfig(connectorType, name string) (config.Provider, error) {
	reg, err := r.lookup(connectorType)
	if err != nil {
		return nil, err
	}
	return reg.NewConfig(name), nil
}

// Create validates cfg and creates a connector of connectorType
func (r *Registry) Create(connectorType string, cfg config.Provider) (core.Connector, error) {
	reg, err := r.lookup(connectorType)
	if err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("invalid %s configuration", connectorType))
	}

	c, err := reg.New(cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create connector %s", connectorType))
	}
	return c, nil
}

// CreateFromMap decodes settings into the connector's configuration type
// and creates the connector. The connector type is read from settings["type"].
func (r *Registry) CreateFromMap(settings map[string]interface{}) (core.Connector, error) {
	connectorType, _ := settings["type"].(string)
	if connectorType == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "type is required")
	}
	name, _ := settings["name"].(string)

	cfg, err := r.NewConfig(connectorType, name)
	if err != nil {
		return nil, err
	}
	if err := config.Decode(settings, cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to decode connector configuration")
	}
	return r.Create(connectorType, cfg)
}

// Info returns the metadata of a connector type
func (r *Registry) Info(connectorType string) (ConnectorInfo, error) {
	reg, err := r.lookup(connectorType)
	if err != nil {
		return ConnectorInfo{}, err
	}
	return reg.Info, nil
}

// List returns the metadata of every registered connector sorted by name
func (r *Registry) List() []ConnectorInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ConnectorInfo, 0, len(r.connectors))
	for _, reg := range r.connectors {
		infos = append(infos, reg.Info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Has checks if a connector type is registered
func (r *Registry) Has(connectorType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.connectors[connectorType]
	return exists
}

// Clear removes all registered connectors (mainly for testing)
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors = make(map[string]Registration)
}

// Global registry functions

// Register registers a connector in the global registry
func Register(reg Registration) error {
	return globalRegistry.Register(reg)
}

// MustRegister registers a connector in the global registry and panics on
// failure. Connector packages call it from init.
func MustRegister(reg Registration) {
	if err := globalRegistry.Register(reg); err != nil {
		panic(err)
	}
}

// NewConfig returns a defaulted configuration from the global registry
func NewConfig(connectorType, name string) (config.Provider, error) {
	return globalRegistry.NewConfig(connectorType, name)
}

// Create creates a connector from the global registry
func Create(connectorType string, cfg config.Provider) (core.Connector, error) {
	return globalRegistry.Create(connectorType, cfg)
}

// CreateFromMap creates a connector from a settings map using the global registry
func CreateFromMap(settings map[string]interface{}) (core.Connector, error) {
	return globalRegistry.CreateFromMap(settings)
}

// Info returns connector metadata from the global registry
func Info(connectorType string) (ConnectorInfo, error) {
	return globalRegistry.Info(connectorType)
}

// List returns registered connectors from the global registry
func List() []ConnectorInfo {
	return globalRegistry.List()
}

// Has checks if a connector is registered in the global registry
func Has(connectorType string) bool {
	return globalRegistry.Has(connectorType)
}

// GetRegistry returns the global registry instance
func GetRegistry() *Registry {
	return globalRegistry
}
