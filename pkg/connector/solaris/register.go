package solaris

import (
	"github.com/ajitpratap0/idbridge/pkg/config"
	"github.com/ajitpratap0/idbridge/pkg/connector/core"
	"github.com/ajitpratap0/idbridge/pkg/connector/registry"
	"github.com/ajitpratap0/idbridge/pkg/errors"
)

func init() {
	registry.MustRegister(registry.Registration{
		Info: registry.ConnectorInfo{
			Name:          connectorType,
			Description:   "Solaris local and NIS accounts and groups over an SSH shell",
			Version:       version,
			ObjectClasses: []string{string(core.ObjectClassAccount), string(core.ObjectClassGroup)},
			Capabilities: []string{
				core.OpSchema, core.OpTest, core.OpCreate, core.OpUpdate,
				core.OpDelete, core.OpSearch, core.OpAuthenticate,
			},
		},
		NewConfig: func(name string) config.Provider {
			return config.NewSolarisConfig(name)
		},
		New: func(cfg config.Provider) (core.Connector, error) {
			sc, ok := cfg.(*config.SolarisConfig)
			if !ok {
				return nil, errors.Newf(errors.ErrorTypeConfig, "expected *config.SolarisConfig, got %T", cfg)
			}
			return New(sc), nil
		},
	})
}
