package task

import (
	"fmt"
	"time"

	"github.com/farhad-a/openclaw-mission-control/internal/activity"
	"github.com/farhad-a/openclaw-mission-control/internal/agent"
	"github.com/farhad-a/openclaw-mission-control/internal/auth"
	"github.com/farhad-a/openclaw-mission-control/pkg/cerr"
)

// Notification is a message computed during a transition and delivered
// best-effort after the task state commits.
type Notification struct {
	AgentID string
	Message string
}

// transitions lists the reachable statuses per current status. Review is only
// reachable from in_progress so every review entry carries a handoff comment.
var transitions = map[Status][]Status{
	StatusInbox:      {StatusInProgress, StatusDone},
	StatusInProgress: {StatusInbox, StatusReview, StatusDone},
	StatusReview:     {StatusInbox, StatusInProgress, StatusDone},
	StatusDone:       {StatusInbox, StatusInProgress},
}

func transitionAllowed(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ApplyTransition applies the requested change set to the in-memory task and
// returns the pending notification, if the transition requires one. It must
// only be called after Authorize has allowed the change set. The task is not
// persisted here; the caller commits it.
//
// lead is the board's lead agent (nil when the board has none) and
// latestComment is the task's most recent comment activity event (nil when
// none exists).
func ApplyTransition(t *Task, req *UpdateRequest, actor auth.Actor, lead *agent.Agent, latestComment *activity.Event, now time.Time) (*Notification, error) {
	applyFieldChanges(t, req)

	if !req.Status.Valid {
		// Comment-only updates never move the task or touch assignment.
		return nil, nil
	}

	next := req.Status.Value
	if !next.Valid() {
		return nil, cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("invalid status %q", next), nil)
	}
	if next == t.Status {
		// Re-submitting the current status is a no-op beyond the field
		// changes applied above.
		return nil, nil
	}
	if !transitionAllowed(t.Status, next) {
		return nil, cerr.NewError(
			cerr.FailedPrecondition,
			fmt.Sprintf("transition from %q to %q is not allowed", t.Status, next),
			nil,
		)
	}

	if next == StatusReview && !reviewHandoffRecorded(t, req, latestComment) {
		return nil, cerr.NewError(cerr.Unprocessable, "Comment is required.", nil)
	}

	leavingInProgress := t.Status == StatusInProgress

	prev := t.Status
	t.Status = next

	if leavingInProgress {
		// Archive the working interval and remember who held the task so a
		// review rejection can hand it back.
		t.PreviousInProgressAt = t.InProgressAt
		t.InProgressAt = nil
		t.PreviousAssigneeID = t.AssignedAgentID
	}

	var notification *Notification
	switch next {
	case StatusInProgress:
		if t.AssignedAgentID == "" && actor.AgentID() != "" {
			t.AssignedAgentID = actor.AgentID()
		}
		t.InProgressAt = &now

	case StatusReview:
		if lead != nil {
			t.AssignedAgentID = lead.ID
			notification = &Notification{
				AgentID: lead.ID,
				Message: reviewRequestMessage(t),
			}
		}

	case StatusInbox:
		if prev == StatusReview && t.PreviousAssigneeID != "" {
			t.AssignedAgentID = t.PreviousAssigneeID
			notification = &Notification{
				AgentID: t.AssignedAgentID,
				Message: changesRequestedMessage(t, reviewComment(req, latestComment)),
			}
		}
	}

	return notification, nil
}

func applyFieldChanges(t *Task, req *UpdateRequest) {
	if req.Title.Valid {
		t.Title = req.Title.Value
	}
	if req.Description.Valid {
		t.Description = req.Description.Value
	}
	if req.AssignedAgentID.Valid {
		t.AssignedAgentID = req.AssignedAgentID.Value
	}
}

// reviewHandoffRecorded reports whether the move to review carries a handoff
// record: a comment in the request itself, or a comment activity event newer
// than the current working interval.
func reviewHandoffRecorded(t *Task, req *UpdateRequest, latestComment *activity.Event) bool {
	if req.HasComment() {
		return true
	}
	if latestComment == nil {
		return false
	}
	if t.InProgressAt == nil {
		return true
	}
	return latestComment.CreatedAt.After(*t.InProgressAt)
}

// reviewComment picks the comment text embedded in the rework notification:
// the request's own comment when present, otherwise the latest recorded one.
func reviewComment(req *UpdateRequest, latestComment *activity.Event) string {
	if req.HasComment() {
		return req.Comment.Value
	}
	if latestComment != nil {
		return latestComment.Message
	}
	return ""
}

func reviewRequestMessage(t *Task) string {
	msg := fmt.Sprintf("TASK READY FOR LEAD REVIEW\n\nTask: %s", t.Title)
	if t.Description != "" {
		msg += "\n" + t.Description
	}
	msg += "\n\nPlease review the deliverables and either mark the task done or send it back to inbox with your feedback."
	return msg
}

func changesRequestedMessage(t *Task, comment string) string {
	msg := fmt.Sprintf("CHANGES REQUESTED\n\nTask: %s", t.Title)
	if comment != "" {
		msg += "\n\n" + comment
	}
	msg += "\n\nPlease address the feedback and move the task back to review when ready."
	return msg
}
