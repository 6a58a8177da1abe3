package domain

// Actor is the authenticated principal performing an operation.
// It is resolved once per request and never read from request bodies.
type Actor struct {
	UserID      UserID
	IsSuperuser bool
}

func (a Actor) IsZero() bool { return a.UserID.IsNil() }
