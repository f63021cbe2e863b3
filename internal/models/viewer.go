package models

// Viewer is the identity performing an operation. A nil *Viewer means the
// caller is anonymous. Capability checks (sysadmin, org admin) are resolved
// by the service layer's Authorizer, not stored here.
type Viewer struct {
	ID       uint
	Username string
	Sysadmin bool
}

// IsAnonymous reports whether the viewer carries no identity.
func (v *Viewer) IsAnonymous() bool {
	return v == nil || v.ID == 0
}
