// Package events defines the application's domain events and re-exports the
// platform bus so modules import a single events package.
package events

import (
	platformevents "leadcrm_backend/platform/events"
	"leadcrm_backend/platform/logger"
)

// InMemoryBus aliases the platform bus implementation.
type InMemoryBus = platformevents.InMemoryBus

// NewInMemoryBus creates the in-process event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
