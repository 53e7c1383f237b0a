package relocate

// Listener receives engine notifications. Callbacks are invoked
// synchronously, in the order the underlying transitions occurred, on
// whichever context performed the triggering mutation. Implementations that
// need to do real work should hand off to their own goroutine.
type Listener interface {
	// MappingStateChanged fires on every mapping state transition.
	MappingStateChanged(state MappingState)
	// AnchorPlaced fires once per committed placement.
	AnchorPlaced(anchor PlacedAnchor)
	// PlacementError fires once per unrecoverable record.
	PlacementError(recordID string, err error)
	// LoadingChanged toggles around remote-fetch operations.
	LoadingChanged(loading bool)
}

// ListenerFuncs adapts plain functions to the Listener interface. Nil
// fields are skipped.
type ListenerFuncs struct {
	OnMappingState   func(MappingState)
	OnAnchorPlaced   func(PlacedAnchor)
	OnPlacementError func(string, error)
	OnLoading        func(bool)
}

// MappingStateChanged implements Listener.
func (l ListenerFuncs) MappingStateChanged(state MappingState) {
	if l.OnMappingState != nil {
		l.OnMappingState(state)
	}
}

// AnchorPlaced implements Listener.
func (l ListenerFuncs) AnchorPlaced(anchor PlacedAnchor) {
	if l.OnAnchorPlaced != nil {
		l.OnAnchorPlaced(anchor)
	}
}

// PlacementError implements Listener.
func (l ListenerFuncs) PlacementError(recordID string, err error) {
	if l.OnPlacementError != nil {
		l.OnPlacementError(recordID, err)
	}
}

// LoadingChanged implements Listener.
func (l ListenerFuncs) LoadingChanged(loading bool) {
	if l.OnLoading != nil {
		l.OnLoading(loading)
	}
}
