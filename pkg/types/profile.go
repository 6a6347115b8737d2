package types

import "time"

type Role string

const (
	RoleResident  Role = "resident"
	RoleCooperado Role = "cooperado"
	RoleOperator  Role = "operator"
)

func (r Role) Valid() bool {
	switch r {
	case RoleResident, RoleCooperado, RoleOperator:
		return true
	}
	return false
}

// User is the identity half of a session, as issued by the identity provider.
type User struct {
	ID    string
	Email string
}

type Profile struct {
	ID             string    `db:"id" yaml:"id"`
	DisplayName    *string   `db:"display_name" yaml:"display_name"`
	Role           Role      `db:"role" yaml:"role"`
	NeighborhoodID *string   `db:"neighborhood_id" yaml:"neighborhood_id"`
	AddressLine    *string   `db:"address_line" yaml:"address_line"`
	AddressExt     *string   `db:"address_ext" yaml:"address_ext"`
	CreatedAt      time.Time `db:"created_at" yaml:"-"`
	UpdatedAt      time.Time `db:"updated_at" yaml:"-"`
}

func (p *Profile) HasNeighborhood() bool {
	return p != nil && p.NeighborhoodID != nil && *p.NeighborhoodID != ""
}

type ProfileAddress struct {
	AddressLine string `form:"address_line"`
	AddressExt  string `form:"address_ext"`
}

// Session is what every request sees once the auth provider resolved the bearer.
type Session struct {
	Token   string
	User    *User
	Profile *Profile
}

func (s *Session) UserID() string {
	if s == nil || s.User == nil {
		return ""
	}
	return s.User.ID
}
