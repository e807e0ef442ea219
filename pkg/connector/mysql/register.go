package mysql

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
			Description:   "MySQL user accounts with grants copied from a user model",
			Version:       version,
			ObjectClasses: []string{string(core.ObjectClassAccount)},
			Capabilities: []string{
				core.OpSchema, core.OpTest, core.OpCreate, core.OpUpdate,
				core.OpDelete, core.OpSearch, core.OpAuthenticate,
			},
		},
		NewConfig: func(name string) config.Provider {
			return config.NewMySQLConfig(name)
		},
		New: func(cfg config.Provider) (core.Connector, error) {
			mc, ok := cfg.(*config.MySQLConfig)
			if !ok {
				return nil, errors.Newf(errors.ErrorTypeConfig, "expected *config.MySQLConfig, got %T", cfg)
			}
			return New(mc), nil
		},
	})
}
