package task

import (
	"fmt"

	"github.com/farhad-a/openclaw-mission-control/internal/agent"
	"github.com/farhad-a/openclaw-mission-control/internal/auth"
	"github.com/farhad-a/openclaw-mission-control/internal/board"
	"github.com/farhad-a/openclaw-mission-control/pkg/cerr"
)

// Denial reason codes, surfaced verbatim to the caller.
const (
	ReasonFieldForbidden   = "task_update_field_forbidden"
	ReasonAssigneeMismatch = "task_assignee_mismatch"
	ReasonBoardMismatch    = "task_board_mismatch"
)

// Authorize decides whether the actor may apply the requested change set to
// the task. Pure: no side effects, evaluated before any state is touched.
//
// Operators pass unconditionally. Non-lead agents may only touch status and
// comment. Agents may only change status on tasks assigned to them, except
// that anyone on the board may claim an unassigned task via a status change.
func Authorize(actor auth.Actor, b *board.Board, t *Task, req *UpdateRequest) error {
	if actor.IsOperator() {
		return nil
	}

	// Agents only exist on their own board; everything below assumes the
	// actor belongs to the task's board.
	if actor.Agent == nil || actor.Agent.BoardID != b.ID {
		return cerr.NewReasonError(
			cerr.PermissionDenied,
			ReasonBoardMismatch,
			"Agents can only act on tasks on their own board.",
		)
	}

	if agent.RoleOf(actor.Agent, b) != agent.RoleLead {
		if field, ok := firstLeadOnlyField(req); ok {
			return cerr.NewReasonError(
				cerr.PermissionDenied,
				ReasonFieldForbidden,
				fmt.Sprintf("Agents cannot update field %q.", field),
			)
		}
	}

	if req.Status.Valid {
		if t.AssignedAgentID != "" && t.AssignedAgentID != actor.AgentID() {
			return cerr.NewReasonError(
				cerr.PermissionDenied,
				ReasonAssigneeMismatch,
				"Agents can only change status on tasks assigned to them.",
			)
		}
		// Unassigned tasks are claimable by any agent on the board regardless
		// of OnlyLeadCanChangeStatus; the flag is kept as board data but the
		// assignee rule above dominates.
	}

	return nil
}

// firstLeadOnlyField returns the first requested field outside the
// status/comment surface allowed to non-lead agents.
func firstLeadOnlyField(req *UpdateRequest) (string, bool) {
	switch {
	case req.Title.Valid:
		return "title", true
	case req.Description.Valid:
		return "description", true
	case req.AssignedAgentID.Valid:
		return "assigned_agent_id", true
	}
	return "", false
}
