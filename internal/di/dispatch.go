package di

import (
	"fmt"
	"sync"

	command "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"

	sitecmd "github.com/goliatone/go-sitecms/internal/commands/site"
)

type subscription interface {
	Unsubscribe()
}

// dispatchRegistry subscribes site command handlers on the go-command
// dispatcher so callers can send messages with dispatcher.Dispatch.
type dispatchRegistry struct {
	retries int

	mu   sync.Mutex
	subs []subscription
}

var _ sitecmd.CommandRegistry = (*dispatchRegistry)(nil)

func newDispatchRegistry(retries int) *dispatchRegistry {
	if retries < 0 {
		retries = 0
	}
	return &dispatchRegistry{retries: retries}
}

func (r *dispatchRegistry) RegisterCommand(handler any) error {
	retry := runner.WithMaxRetries(r.retries)

	var sub subscription
	switch h := handler.(type) {
	case command.Commander[sitecmd.RevalidatePathsCommand]:
		sub = dispatcher.SubscribeCommand[sitecmd.RevalidatePathsCommand](h, retry)
	case command.Commander[sitecmd.PublishScheduledCommand]:
		sub = dispatcher.SubscribeCommand[sitecmd.PublishScheduledCommand](h, retry)
	case command.Commander[sitecmd.KeepWarmCommand]:
		sub = dispatcher.SubscribeCommand[sitecmd.KeepWarmCommand](h, retry)
	case command.Commander[sitecmd.ImportMarkdownCommand]:
		sub = dispatcher.SubscribeCommand[sitecmd.ImportMarkdownCommand](h, retry)
	default:
		return fmt.Errorf("dispatch registry: unsupported handler %T", handler)
	}

	r.mu.Lock()
	r.subs = append(r.subs, sub)
	r.mu.Unlock()
	return nil
}

// Close unsubscribes every handler registered through r.
func (r *dispatchRegistry) Close() {
	r.mu.Lock()
	subs := r.subs
	r.subs = nil
	r.mu.Unlock()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}
