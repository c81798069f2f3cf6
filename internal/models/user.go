package models

// User is the authenticated identity as returned by the moments backend.
// A User is only meaningful when ID is set, see Valid.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username,omitempty"`
	RealName     string `json:"real_name,omitempty"`
	IsAdmin      bool   `json:"is_admin"`
	IsTeacher    bool   `json:"is_teacher"`
	IsFirstLogin bool   `json:"is_first_login"`
	CanPost      bool   `json:"can_post"`
	IsActive     bool   `json:"is_active,omitempty"`
	Grade        int    `json:"grade,omitempty"`
	ClassName    int    `json:"class_name,omitempty"`
}

// Valid reports whether u represents a session. A nil user or one without an
// ID is treated as no session at all, regardless of the other fields.
func (u *User) Valid() bool {
	return u != nil && u.ID != 0
}

// Clone returns a copy of u, or nil if u is nil.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
