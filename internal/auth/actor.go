package auth

import (
	"context"

	"github.com/farhad-a/openclaw-mission-control/internal/agent"
)

type ActorType string

const (
	// ActorOperator is a privileged administrative caller (API key auth).
	ActorOperator ActorType = "operator"
	// ActorAgent is a board agent acting on its own behalf.
	ActorAgent ActorType = "agent"
)

// Actor is the resolved identity of the caller, threaded explicitly through
// every operation instead of living in ambient request state.
type Actor struct {
	Type  ActorType
	Agent *agent.Agent // set when Type == ActorAgent
}

func Operator() Actor {
	return Actor{Type: ActorOperator}
}

func AgentActor(a *agent.Agent) Actor {
	return Actor{Type: ActorAgent, Agent: a}
}

func (a Actor) IsOperator() bool {
	return a.Type == ActorOperator
}

// AgentID returns the acting agent's id, or "" for operators.
func (a Actor) AgentID() string {
	if a.Type == ActorAgent && a.Agent != nil {
		return a.Agent.ID
	}
	return ""
}

type actorKey struct{}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
