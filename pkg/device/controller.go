package device

import (
	"context"

	"github.com/urmzd/smarttel/pkg/seestar"
)

// Controller is the view of a telescope consumed by the API and MCP
// surfaces. *seestar.Client implements it.
type Controller interface {
	// Execute sends a command and waits for its response
	Execute(ctx context.Context, cmd *seestar.Command) (*seestar.CommandResponse, error)

	// Status returns a snapshot of the aggregated device status
	Status() seestar.Status

	// RecentEvents returns the bounded event history, oldest first
	RecentEvents() []seestar.Event

	// IsConnected returns true if the telescope link is up
	IsConnected() bool

	// Addr returns the telescope host:port
	Addr() string

	// Close disconnects the controller
	Close()
}

// EventSubscriber streams telescope events as they arrive
type EventSubscriber interface {
	// Subscribe returns a channel that receives events
	Subscribe() chan seestar.Event

	// Unsubscribe removes a subscription
	Unsubscribe(ch chan seestar.Event)
}

var (
	_ Controller      = (*seestar.Client)(nil)
	_ EventSubscriber = (*seestar.Client)(nil)
)
