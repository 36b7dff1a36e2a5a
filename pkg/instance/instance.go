package instance

import (
	"os"

	"github.com/angelmondragon/tradeflow-backend/pkg/env"
)

// ID identifies the running process in logs: WORKER_ID, then the platform
// dyno name, then the hostname.
func ID(fallback string) string {
	if id, ok := env.First("WORKER_ID", "DYNO"); ok {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallback
}
