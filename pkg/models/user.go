package models

// AnonymousUserID is the identity bucket unauthenticated requests resolve
// against.
const AnonymousUserID = "anonymous"

// User is all the identity the core requires. Session and token handling
// live outside this module.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Anonymous returns the shared anonymous identity.
func Anonymous() User {
	return User{ID: AnonymousUserID, Username: AnonymousUserID}
}

// ResolutionID returns the id used in cache keys and per-user value lookups.
func (u User) ResolutionID() string {
	if u.ID == "" {
		return AnonymousUserID
	}

	return u.ID
}
