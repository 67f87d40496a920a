package domain

// ProtectionState controls whether navigation interception is active.
type ProtectionState struct {
	IsProtected bool `json:"isProtected"`
	AlwaysOn    bool `json:"alwaysOn"`
}

// ProtectionUpdate is a full or partial ProtectionState snapshot.
// Nil fields are left untouched.
type ProtectionUpdate struct {
	IsProtected *bool `json:"isProtected,omitempty"`
	AlwaysOn    *bool `json:"alwaysOn,omitempty"`
}

// Empty reports whether the update carries no fields.
func (u ProtectionUpdate) Empty() bool {
	return u.IsProtected == nil && u.AlwaysOn == nil
}

// ApplyTo returns state with the update's fields written over it.
func (u ProtectionUpdate) ApplyTo(state ProtectionState) ProtectionState {
	if u.IsProtected != nil {
		state.IsProtected = *u.IsProtected
	}
	if u.AlwaysOn != nil {
		state.AlwaysOn = *u.AlwaysOn
	}
	return state
}

