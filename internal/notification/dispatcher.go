package notification

import (
	"context"
	"log/slog"
	"strings"

	"github.com/farhad-a/openclaw-mission-control/internal/agent"
	"github.com/farhad-a/openclaw-mission-control/internal/board"
	"github.com/farhad-a/openclaw-mission-control/internal/eventbus"
	"github.com/farhad-a/openclaw-mission-control/internal/gateway"
)

// GatewaySender is the slice of the gateway client the dispatcher needs.
// Tests inject a recording double here instead of patching at runtime.
type GatewaySender interface {
	SendMessage(ctx context.Context, cfg *gateway.Config, sessionKey, content string) error
}

// Dispatcher delivers notifications computed by the transition engine. It
// consumes notification.requested events from the bus, so delivery happens
// strictly after the task state commit and never feeds back into it: every
// failure here is logged and swallowed.
type Dispatcher struct {
	eventBus   *eventbus.Bus
	agentRepo  agent.Repository
	boardRepo  board.Repository
	dispatch   *gateway.DispatchService
	sender     GatewaySender
	pushSender *PushSender
}

func NewDispatcher(
	eventBus *eventbus.Bus,
	agentRepo agent.Repository,
	boardRepo board.Repository,
	dispatch *gateway.DispatchService,
	sender GatewaySender,
	pushSender *PushSender,
) *Dispatcher {
	return &Dispatcher{
		eventBus:   eventBus,
		agentRepo:  agentRepo,
		boardRepo:  boardRepo,
		dispatch:   dispatch,
		sender:     sender,
		pushSender: pushSender,
	}
}

// Run blocks until ctx is cancelled. It is intended to be started on its own
// goroutine, wrapped in panicerr.SafeContext.
func (d *Dispatcher) Run(ctx context.Context) error {
	subID, ch := d.eventBus.Subscribe(256)
	defer d.eventBus.Unsubscribe(subID)

	slog.Info("notification dispatcher started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("notification dispatcher stopped")
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			if event.Type == eventbus.TypeNotificationRequested {
				d.deliver(ctx, event)
			}
		}
	}
}

// deliver resolves the target agent's external session and sends the composed
// message. A missing agent, session, or gateway config is not an error; the
// notification is simply dropped.
func (d *Dispatcher) deliver(ctx context.Context, event *eventbus.Event) {
	agentID := event.Metadata["agent_id"]
	if agentID == "" {
		return
	}

	a, err := d.agentRepo.Get(ctx, agentID)
	if err != nil {
		slog.Error("dispatcher: failed to load agent", "agent_id", agentID, "error", err)
		return
	}
	if a.OpenClawSessionID == "" {
		slog.Debug("dispatcher: agent has no session, skipping", "agent_id", agentID)
		return
	}

	b, err := d.boardRepo.Get(ctx, a.BoardID)
	if err != nil {
		slog.Error("dispatcher: failed to load board", "board_id", a.BoardID, "error", err)
		return
	}
	cfg := d.dispatch.OptionalConfigForBoard(b)
	if cfg == nil {
		slog.Debug("dispatcher: board has no gateway, skipping", "board_id", b.ID)
		return
	}

	if err := d.sender.SendMessage(ctx, cfg, a.OpenClawSessionID, event.Payload); err != nil {
		slog.Error("dispatcher: failed to send gateway message",
			"agent_id", agentID, "session_key", a.OpenClawSessionID, "error", err)
	} else {
		slog.Info("dispatcher: sent task notification", "agent_id", agentID, "agent_name", a.Name, "task_id", event.ResourceID)
	}

	if d.pushSender != nil {
		d.pushSender.SendToAll(ctx, &PushPayload{
			Title: pushTitle(event),
			Body:  firstLine(event.Payload),
			URL:   "/boards/" + b.ID + "/tasks/" + event.ResourceID,
			Tag:   event.ResourceID,
		})
	}
}

func pushTitle(event *eventbus.Event) string {
	if title := event.Metadata["title"]; title != "" {
		return title
	}
	return "Mission Control"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
