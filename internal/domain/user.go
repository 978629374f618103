package domain

type User struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"isAdmin"`
}

// AuthResponse is what the backend returns on login and registration:
// the user fields plus a bearer token, flattened into one object.
type AuthResponse struct {
	User
	Token string `json:"token"`
}
