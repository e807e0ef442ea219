package oracleerp

import (
	"github.com/ajitpratap0/idbridge/pkg/config"
	"github.com/ajitpratap0/idbridge/pkg/connector/core"
	"github.com/ajitpratap0/idbridge/pkg/connector/registry"
	"github.com/ajitpratap0/idbridge/pkg/errors"
)

func init() {
	registry.MustRegister(registry.Registration{
		Info: registry.ConnectorInfo{
			Name:        connectorType,
			Description: "Oracle E-Business Suite accounts and responsibilities through fnd_user_pkg",
			Version:     version,
			ObjectClasses: []string{
				string(core.ObjectClassAccount),
				string(ObjectClassResponsibilityNames),
				string(ObjectClassApplications),
			},
			Capabilities: []string{
				core.OpSchema, core.OpTest, core.OpCreate, core.OpUpdate,
				core.OpDelete, core.OpSearch, core.OpAuthenticate,
			},
		},
		NewConfig: func(name string) config.Provider {
			return config.NewOracleERPConfig(name)
		},
		New: func(cfg config.Provider) (core.Connector, error) {
			oc, ok := cfg.(*config.OracleERPConfig)
			if !ok {
				return nil, errors.Newf(errors.ErrorTypeConfig, "expected *config.OracleERPConfig, got %T", cfg)
			}
			return New(oc), nil
		},
	})
}
