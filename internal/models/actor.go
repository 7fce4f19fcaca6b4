package models

type Role string

const (
	RoleSender   Role = "sender"
	RoleTraveler Role = "traveler"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleSender || r == RoleTraveler || r == RoleAdmin
}

// Actor is the verified identity behind a request.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
