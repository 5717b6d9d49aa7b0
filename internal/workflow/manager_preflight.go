package workflow

import (
	"context"
	"fmt"
	"strings"

	"plaques2gallery/internal/logging"
	"plaques2gallery/internal/services"
)

// Preflight runs every stage health check. It returns a configuration error
// describing all failures, or nil when every stage is ready.
func (m *Manager) Preflight(ctx context.Context) error {
	stages := m.stageList()
	if len(stages) == 0 {
		return services.Wrap(services.ErrConfiguration, "workflow", "preflight", "no stages configured", nil)
	}

	var failures []string
	for _, stg := range stages {
		health := stg.handler.HealthCheck(ctx)
		if health.Ready {
			m.logger.Info("preflight check passed",
				logging.String("check", stg.name),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
			continue
		}
		logging.ErrorWithContext(m.logger, "preflight check failed", "preflight_failed",
			logging.String("check", stg.name),
			logging.String("detail", health.Detail),
			logging.String(logging.FieldErrorHint, "fix the reported issue and rerun"),
		)
		failures = append(failures, fmt.Sprintf("%s: %s", stg.name, health.Detail))
	}
	if len(failures) > 0 {
		return services.Wrap(services.ErrConfiguration, "workflow", "preflight", strings.Join(failures, "; "), nil)
	}
	return nil
}
