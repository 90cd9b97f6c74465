package gate

import "github.com/svdberg/tapwacht/internal/model"

// TransitionKind names an enrollment-state flip.
type TransitionKind string

const (
	EnrollmentOpened TransitionKind = "enrollment_opened"
	EnrollmentClosed TransitionKind = "enrollment_closed"
)

// Intent is a notification the caller should dispatch to the notifier
// collaborator. Dispatch is fire-and-forget and never blocks the state
// change that produced it.
type Intent struct {
	EventID int64
	Kind    TransitionKind
}

// DetectTransition compares the persisted event against the incoming
// write and returns the notification intents the flip produces: at most
// one per save, never any for a no-op write. A nil old event means
// creation, which counts as opening enrollment when the event is created
// open.
func DetectTransition(old *model.Event, updated model.Event) []Intent {
	if old == nil {
		if !updated.IsClosed {
			return []Intent{{EventID: updated.ID, Kind: EnrollmentOpened}}
		}
		return nil
	}

	switch {
	case old.IsClosed && !updated.IsClosed:
		return []Intent{{EventID: updated.ID, Kind: EnrollmentOpened}}
	case !old.IsClosed && updated.IsClosed:
		return []Intent{{EventID: updated.ID, Kind: EnrollmentClosed}}
	}
	return nil
}
