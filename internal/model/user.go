package model

// User is the authenticated account using the client.
type User struct {
	UserID    string
	FirstName string
	LastName  string
	Email     string
	Summary   string
	PfpURL    string
}

// UserWire is the user shape on the wire.
type UserWire struct {
	UserID    string `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Summary   string `json:"summary"`
	PfpURL    string `json:"pfp_url"`
}

// UserFromWire maps a wire user to the client shape.
func UserFromWire(w UserWire) User {
	return User(w)
}
