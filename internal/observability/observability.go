package observability

import (
	"context"
	"errors"
	"fmt"

	"github.com/riskibarqy/fantasy-draft/internal/config"
	"github.com/riskibarqy/fantasy-draft/internal/platform/logging"
)

type stopFunc func(context.Context) error

type component struct {
	name  string
	start func(config.Config, *logging.Logger) (stopFunc, error)
}

var components = []component{
	{name: "uptrace", start: startUptrace},
	{name: "pyroscope", start: startPyroscope},
	{name: "pprof", start: startPprof},
}

type running struct {
	name string
	stop stopFunc
}

// Telemetry is the set of exporters and profilers a binary started.
type Telemetry struct {
	logger  *logging.Logger
	running []running
}

// Start brings up every enabled component. When one fails the ones already
// running are stopped before the error is returned.
func Start(cfg config.Config, logger *logging.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = logging.Default()
	}

	t := &Telemetry{logger: logger}
	for _, c := range components {
		stop, err := c.start(cfg, logger)
		if err != nil {
			_ = t.Shutdown(context.Background())
			return nil, fmt.Errorf("start %s: %w", c.name, err)
		}
		if stop == nil {
			continue
		}
		t.running = append(t.running, running{name: c.name, stop: stop})
	}
	return t, nil
}

// Components lists the started components in start order.
func (t *Telemetry) Components() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.running))
	for _, r := range t.running {
		names = append(names, r.name)
	}
	return names
}

// Shutdown stops components in reverse start order and joins their errors.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}

	var errs []error
	for i := len(t.running) - 1; i >= 0; i-- {
		r := t.running[i]
		if err := r.stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", r.name, err))
			continue
		}
		t.logger.Info("telemetry component stopped", "component", r.name)
	}
	t.running = nil
	return errors.Join(errs...)
}
