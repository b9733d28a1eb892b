package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbook/medbook/internal/platform/auth"
	"github.com/medbook/medbook/internal/platform/db"
	"github.com/medbook/medbook/internal/platform/notification"
)

var (
	// ErrEmailTaken is returned when registering with an email that
	// already has an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned on login failure. It deliberately
	// does not distinguish unknown email from wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type Service struct {
	users    UserRepository
	doctors  DoctorRepository
	tokens   *auth.TokenIssuer
	notifier *notification.Notifier

	// tx runs fn inside a transaction. Swapped out in tests.
	tx func(ctx context.Context, fn func(context.Context) error) error
}

func NewService(users UserRepository, doctors DoctorRepository, tokens *auth.TokenIssuer, notifier *notification.Notifier, pool *pgxpool.Pool) *Service {
	return &Service{
		users:    users,
		doctors:  doctors,
		tokens:   tokens,
		notifier: notifier,
		tx: func(ctx context.Context, fn func(context.Context) error) error {
			return db.WithSerializableTx(ctx, pool, fn)
		},
	}
}

// RegisterInput carries a new account request.
type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	Phone       string
	DOB         *time.Time
	City        string
	UserType    string
	Specialty   string
	Description string
}

// Register creates a user account and, for doctors, the attached
// professional profile. Both rows are written in one transaction. A welcome
// email goes out best-effort.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, string, error) {
	switch in.UserType {
	case UserTypePatient, UserTypeDoctor, UserTypeAdmin:
	case "":
		in.UserType = UserTypePatient
	default:
		return nil, "", fmt.Errorf("invalid user type: %s", in.UserType)
	}
	if in.UserType == UserTypeDoctor && in.Specialty == "" {
		return nil, "", fmt.Errorf("specialty is required for doctor accounts")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, "", err
	}

	u := &User{
		ID:           uuid.New(),
		Name:         in.Name,
		Email:        in.Email,
		UserType:     in.UserType,
		PasswordHash: &hash,
	}
	if in.Phone != "" {
		u.Phone = &in.Phone
	}
	if in.City != "" {
		u.City = &in.City
	}
	u.DOB = in.DOB

	err = s.tx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, u); err != nil {
			return err
		}
		if in.UserType == UserTypeDoctor {
			return s.doctors.Create(ctx, &Doctor{
				UserID:      u.ID,
				Specialty:   in.Specialty,
				Description: in.Description,
			})
		}
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, "users_email_key") {
			return nil, "", ErrEmailTaken
		}
		return nil, "", fmt.Errorf("register user: %w", err)
	}

	token, err := s.tokens.Issue(u.ID.String(), u.Email, u.UserType)
	if err != nil {
		return nil, "", err
	}

	s.notifier.Welcome(ctx, u.Email, u.Name)

	return u, token, nil
}

// Login verifies credentials and returns the user with a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	if u.PasswordHash == nil || !auth.CheckPassword(*u.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID.String(), u.Email, u.UserType)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Profile returns the user and, for doctors, the professional profile.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*User, *Doctor, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	if u.UserType != UserTypeDoctor {
		return u, nil, nil
	}

	d, err := s.doctors.GetByUserID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return u, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return u, d, nil
}

// CompleteProfileInput carries the contact fields an externally created
// account fills in after first login.
type CompleteProfileInput struct {
	City  string
	Phone string
	DOB   time.Time
}

// CompleteProfile fills in city, phone and date of birth on the user row.
func (s *Service) CompleteProfile(ctx context.Context, userID uuid.UUID, in CompleteProfileInput) (*User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	u.City = &in.City
	u.Phone = &in.Phone
	dob := in.DOB
	u.DOB = &dob

	if err := s.users.UpdateProfile(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*DoctorListing, int, error) {
	return s.doctors.List(ctx, limit, offset)
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*DoctorListing, error) {
	return s.doctors.GetListing(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.ListByType(ctx, UserTypePatient, limit, offset)
}

// DoctorIDForUser resolves the doctor profile id for an acting user. The
// scheduling service uses it to authorize schedule and status changes.
func (s *Service) DoctorIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	d, err := s.doctors.GetByUserID(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}
	return d.ID, nil
}

// UserContact returns the display name and email for a user.
func (s *Service) UserContact(ctx context.Context, userID uuid.UUID) (name, email string, err error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", "", err
	}
	return u.Name, u.Email, nil
}

// DoctorDisplayName returns the doctor's user-facing name.
func (s *Service) DoctorDisplayName(ctx context.Context, doctorID uuid.UUID) (string, error) {
	l, err := s.doctors.GetListing(ctx, doctorID)
	if err != nil {
		return "", err
	}
	return l.Name, nil
}
