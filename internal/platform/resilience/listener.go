package resilience

import "github.com/riskibarqy/fantasy-draft/internal/platform/logging"

// LogTransitions logs every state change. Opening logs at warn.
func LogTransitions(logger *logging.Logger) StateListener {
	if logger == nil {
		logger = logging.Default()
	}
	return func(name string, from, to CircuitState) {
		if to == CircuitStateOpen {
			logger.Warn("circuit breaker opened", "dependency", name, "from", string(from))
			return
		}
		logger.Info("circuit breaker state changed", "dependency", name, "from", string(from), "to", string(to))
	}
}
