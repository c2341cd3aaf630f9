package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/devops"
	"github.com/dyike/QuantLens/config"
	"github.com/rs/zerolog"
)

// InitDebug starts the Eino visual debug server when it is enabled in cfg.
func InitDebug(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	if !cfg.EinoDebugEnabled {
		return nil
	}
	if err := devops.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize Eino debug plugin: %w", err)
	}
	logger.Info().Msg("eino debug server initialized")
	return nil
}
