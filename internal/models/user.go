package models

// Position is a selectable job position offered by the users API
type Position struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// User is the user object returned by the users API after a sign-up
type User struct {
	ID                    int    `json:"id"`
	Name                  string `json:"name"`
	Email                 string `json:"email"`
	Phone                 string `json:"phone"`
	Position              string `json:"position,omitempty"`
	PositionID            int    `json:"position_id"`
	RegistrationTimestamp int64  `json:"registration_timestamp,omitempty"`
	Photo                 string `json:"photo"`
}

// IsComplete reports whether every field the form relies on came back populated
func (u *User) IsComplete() bool {
	return u != nil &&
		u.ID != 0 &&
		u.Name != "" &&
		u.Email != "" &&
		u.Phone != "" &&
		u.PositionID != 0 &&
		u.Photo != ""
}
