package lifecycle

import (
	"rma-engine-be/internal/entity"
	"rma-engine-be/pkg/apperror"
)

// Event names a lifecycle step.
type Event string

const (
	EventApprove            Event = "approve"
	EventReject             Event = "reject"
	EventLabel              Event = "label"
	EventShip               Event = "ship"
	EventReceive            Event = "receive"
	EventStartInspection    Event = "start_inspection"
	EventCompleteInspection Event = "complete_inspection"
	EventProcess            Event = "process"
	EventComplete           Event = "complete"
	EventRollback           Event = "rollback"
	EventCancel             Event = "cancel"
	EventExpire             Event = "expire"
)

type edge struct {
	from  entity.RMAStatus
	event Event
}

var transitions = buildTransitions()

func buildTransitions() map[edge]entity.RMAStatus {
	t := map[edge]entity.RMAStatus{
		{entity.RMAStatusRequested, EventApprove}:             entity.RMAStatusApproved,
		{entity.RMAStatusRequested, EventReject}:              entity.RMAStatusRejected,
		{entity.RMAStatusApproved, EventLabel}:                entity.RMAStatusLabelSent,
		{entity.RMAStatusLabelSent, EventShip}:                entity.RMAStatusInTransit,
		{entity.RMAStatusLabelSent, EventReceive}:             entity.RMAStatusReceived,
		{entity.RMAStatusInTransit, EventReceive}:             entity.RMAStatusReceived,
		{entity.RMAStatusReceived, EventStartInspection}:      entity.RMAStatusInspecting,
		{entity.RMAStatusInspecting, EventCompleteInspection}: entity.RMAStatusInspectionComplete,
		{entity.RMAStatusInspectionComplete, EventProcess}:    entity.RMAStatusProcessingRefund,
		{entity.RMAStatusProcessingRefund, EventComplete}:     entity.RMAStatusCompleted,
		{entity.RMAStatusProcessingRefund, EventRollback}:     entity.RMAStatusInspectionComplete,
	}
	for _, s := range entity.AllRMAStatuses {
		if s.IsTerminal() {
			continue
		}
		t[edge{s, EventCancel}] = entity.RMAStatusCancelled
		t[edge{s, EventExpire}] = entity.RMAStatusExpired
	}
	return t
}

// Next returns the state event leads to from from, or INVALID_STATE.
func Next(from entity.RMAStatus, event Event) (entity.RMAStatus, error) {
	to, ok := transitions[edge{from, event}]
	if !ok {
		return "", apperror.InvalidState("cannot %s an RMA in status %s", event, from)
	}
	return to, nil
}

// EventFor finds the event that moves from to to.
func EventFor(from, to entity.RMAStatus) (Event, error) {
	for e, target := range transitions {
		if e.from == from && target == to {
			return e.event, nil
		}
	}
	return "", apperror.InvalidState("no transition from %s to %s", from, to)
}

// manualEvents may be driven through UpdateStatus. The rest have their own
// operation because they carry side effects.
var manualEvents = map[Event]bool{
	EventShip:            true,
	EventReceive:         true,
	EventStartInspection: true,
	EventComplete:        true,
	EventCancel:          true,
}
