package identity

import (
	"time"

	"github.com/google/uuid"
)

// User types stored in users.user_type.
const (
	UserTypePatient = "patient"
	UserTypeDoctor  = "doctor"
	UserTypeAdmin   = "admin"
)

// User maps to the users table. PasswordHash is nil for accounts created
// through an external identity provider; those users complete their profile
// (city, phone, date of birth) after first login.
type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Email        string     `db:"email" json:"email"`
	Phone        *string    `db:"phone" json:"phone,omitempty"`
	DOB          *time.Time `db:"dob" json:"dob,omitempty"`
	PasswordHash *string    `db:"password_hash" json:"-"`
	City         *string    `db:"city" json:"city,omitempty"`
	UserType     string     `db:"user_type" json:"user_type"`
	OAuthID      *string    `db:"oauth_id" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// ProfileComplete reports whether the account carries the contact fields a
// booking needs. Accounts from an external identity provider start without
// them.
func (u *User) ProfileComplete() bool {
	return u.City != nil && *u.City != "" && u.Phone != nil && *u.Phone != "" && u.DOB != nil
}

// Doctor maps to the doctors table: the professional profile attached to a
// user with user_type doctor.
type Doctor struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	Specialty   string    `db:"specialty" json:"specialty"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// DoctorListing is a Doctor joined with its user row, the shape the doctor
// browse endpoints return.
type DoctorListing struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	City        *string   `json:"city,omitempty"`
	Specialty   string    `json:"specialty"`
	Description string    `json:"description"`
}
