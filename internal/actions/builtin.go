package actions

import (
	"log/slog"

	"github.com/helion-data/scanflow/internal/expressions"
	"github.com/helion-data/scanflow/internal/validation"
)

// RegisterBuiltins registers all built-in handlers in the given registry.
func RegisterBuiltins(reg *Registry, validator *validation.JSONSchemaValidator, logger *slog.Logger, httpCfg HTTPConfig) error {
	all := []Handler{
		NewValidationHandler(validator),
		NewTransformationHandler(expressions.NewGoJQEngine(), expressions.NewExprEngine()),
		NewNotificationHandler(logger),
		NewIntegrationHandler(httpCfg),
		NewDefaultHandler(),
	}

	for _, h := range all {
		if err := reg.Register(h); err != nil {
			return err
		}
	}
	return nil
}
