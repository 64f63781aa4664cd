package saving

// Store persists the saved flag for (user, request) pairs.
// *store.DB satisfies it.
type Store interface {
	IsSaved(userID, requestID string) (bool, error)
	SetSaved(userID, requestID string, saved bool) error
}

// Coordinator toggles the saved flag behind an optimistic UI update: the
// caller flips its local view first, then persists through ToggleSaved and
// reverts the view if persistence fails.
type Coordinator struct {
	store Store
}

// NewCoordinator creates a save/unsave coordinator over the given store.
func NewCoordinator(st Store) *Coordinator {
	return &Coordinator{store: st}
}

// ToggleSaved flips the persisted saved state and returns the attempted new
// state. When err is non-nil the attempted state was NOT persisted and an
// optimistic caller must revert exactly that flip (see View.Revert).
// Nothing is retried automatically; the user may re-attempt the toggle.
func (c *Coordinator) ToggleSaved(userID, requestID string) (bool, error) {
	saved, err := c.store.IsSaved(userID, requestID)
	if err != nil {
		// The current state is unknown, so no flip was attempted.
		return saved, err
	}

	attempted := !saved
	if err := c.store.SetSaved(userID, requestID, attempted); err != nil {
		return attempted, err
	}
	return attempted, nil
}

// View is the caller-side optimistic state for a piece of content: the
// local saved flag plus the saved-count statistic shown in the UI.
type View struct {
	Saved      bool
	SavedCount int
}

// ApplyToggle flips the view before persistence resolves, so the change
// shows with zero latency. It returns the pre-toggle state to restore if
// persistence fails.
func (v *View) ApplyToggle() View {
	prev := *v
	if v.Saved {
		v.Saved = false
		v.SavedCount--
	} else {
		v.Saved = true
		v.SavedCount++
	}
	return prev
}

// Revert restores the pre-toggle state after a persistence failure.
func (v *View) Revert(prev View) {
	*v = prev
}
