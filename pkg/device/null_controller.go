package device

import (
	"context"

	"github.com/urmzd/smarttel/pkg/seestar"
)

// NullController is a no-op controller used when no telescope is reachable.
// It allows the API to run in limited mode, e.g. to run discovery.
type NullController struct{}

// NewNullController creates a new NullController.
func NewNullController() *NullController {
	return &NullController{}
}

func (c *NullController) Execute(ctx context.Context, cmd *seestar.Command) (*seestar.CommandResponse, error) {
	return nil, seestar.ErrNotConnected
}

func (c *NullController) Status() seestar.Status {
	return seestar.Status{}
}

func (c *NullController) RecentEvents() []seestar.Event {
	return []seestar.Event{}
}

func (c *NullController) IsConnected() bool {
	return false
}

func (c *NullController) Addr() string {
	return ""
}

func (c *NullController) Close() {}

// NullEventSubscriber is a no-op event subscriber used when no telescope is reachable.
type NullEventSubscriber struct{}

// NewNullEventSubscriber creates a new NullEventSubscriber.
func NewNullEventSubscriber() *NullEventSubscriber {
	return &NullEventSubscriber{}
}

func (s *NullEventSubscriber) Subscribe() chan seestar.Event {
	// Never sent to; callers should check IsConnected() on the controller
	return make(chan seestar.Event)
}

func (s *NullEventSubscriber) Unsubscribe(ch chan seestar.Event) {
	close(ch)
}
