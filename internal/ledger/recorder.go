package ledger

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/example/medirx/internal/apperr"
)

// ActivityEvent describes a rewardable action performed by a user.
// Handlers publish events instead of touching reward repositories directly,
// so reward logic stays out of unrelated use cases.
type ActivityEvent struct {
	UserID         uuid.UUID
	ActivityCode   string
	PrescriptionID *uuid.UUID
	Description    string
}

// Recorder receives activity events and feeds them to the ledger.
type Recorder struct {
	ledger *Service
}

// NewRecorder constructs a Recorder over the ledger.
func NewRecorder(svc *Service) *Recorder {
	return &Recorder{ledger: svc}
}

// Publish records the event. A missing or inactive reward rule means the
// action is simply not rewarded; other ledger failures are logged but never
// fail the triggering request.
func (r *Recorder) Publish(ctx context.Context, ev ActivityEvent) {
	_, err := r.ledger.RecordActivity(ctx, ev.UserID, ev.ActivityCode, Reference{
		PrescriptionID: ev.PrescriptionID,
		Description:    ev.Description,
	})
	if err == nil {
		return
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Status() == 404 {
		return
	}
	log.Printf("[Reward] recording %s for user %s failed: %v", ev.ActivityCode, ev.UserID, err)
}
