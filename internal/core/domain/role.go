package domain

const (
	RoleRegular = "regular"
	RoleAdmin   = "admin"
)

const (
	RoleRegularID = "1"
	RoleAdminID   = "2"
)

// Role is a named authorization tier. The set of roles is seeded once at
// bootstrap and is immutable afterwards.
type Role struct {
	ID   string `json:"id" bson:"_id"`
	Name string `json:"name" bson:"name"`
}

// EntityID satisfies the repository entity contract.
func (r Role) EntityID() string { return r.ID }
