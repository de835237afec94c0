package identity

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/careconnect/careconnect/internal/platform/auth"
	"github.com/careconnect/careconnect/internal/platform/cache"
	"github.com/careconnect/careconnect/internal/platform/db"
	"github.com/careconnect/careconnect/internal/platform/errs"
	"github.com/careconnect/careconnect/internal/platform/mail"
)

// ErrInvalidCredentials is returned by Login for a wrong email or password.
// Handlers map it to 401, not 400, so the response does not reveal which
// part was wrong.
var ErrInvalidCredentials = errors.New("invalid email or password")

const (
	doctorListCacheKey = "doctors:all"
	doctorListCacheTTL = 5 * time.Minute
)

type Service struct {
	users   UserRepository
	doctors DoctorRepository
	tx      db.Runner
	mailer  mail.Sender
	cache   cache.Cache
	jwt     auth.JWTConfig
	log     zerolog.Logger
}

func NewService(users UserRepository, doctors DoctorRepository, tx db.Runner, mailer mail.Sender, c cache.Cache, jwt auth.JWTConfig, log zerolog.Logger) *Service {
	return &Service{users: users, doctors: doctors, tx: tx, mailer: mailer, cache: c, jwt: jwt, log: log}
}

// Register creates an account and, for doctor accounts, the doctor row in the
// same transaction. A verification code is emailed after commit; mail
// failures are logged, never fatal.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if strings.TrimSpace(req.FirstName) == "" {
		return nil, errs.Invalidf("first_name is required")
	}
	if strings.TrimSpace(req.LastName) == "" {
		return nil, errs.Invalidf("last_name is required")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, errs.Invalidf("a valid email is required")
	}
	if len(req.Password) < 8 {
		return nil, errs.Invalidf("password must be at least 8 characters")
	}

	role := req.Role
	if role == "" {
		role = auth.RoleUser
	}
	switch role {
	case auth.RoleUser:
	case auth.RoleDoctor:
		if strings.TrimSpace(req.Specialization) == "" {
			return nil, errs.Invalidf("specialization is required for doctor accounts")
		}
		if len(req.AvailableDays) == 0 {
			return nil, errs.Invalidf("available_days is required for doctor accounts")
		}
	case auth.RoleAdmin:
		return nil, errs.Forbiddenf("admin accounts cannot self-register")
	default:
		return nil, errs.Invalidf("unknown role %q", role)
	}

	var days []string
	if role == auth.RoleDoctor {
		var bad string
		days, bad = NormalizeDays(req.AvailableDays)
		if bad != "" {
			return nil, errs.Invalidf("%q is not a weekday name", bad)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	code := generateVerificationCode()
	user := &User{
		ID:               uuid.New(),
		FirstName:        strings.TrimSpace(req.FirstName),
		LastName:         strings.TrimSpace(req.LastName),
		Email:            email,
		PasswordHash:     string(hash),
		ContactPhone:     req.ContactPhone,
		Address:          req.Address,
		Role:             role,
		ImageURL:         defaultImageURL,
		VerificationCode: &code,
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, errs.ErrConflict) {
				return errs.Conflictf("email %s is already registered", email)
			}
			return err
		}
		if role == auth.RoleDoctor {
			return s.doctors.Upsert(ctx, &Doctor{
				UserID:         user.ID,
				Specialization: strings.TrimSpace(req.Specialization),
				AvailableDays:  days,
				Experience:     req.Experience,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if role == auth.RoleDoctor {
		s.invalidateDoctorCache(ctx)
	}

	subject, body := mail.VerificationEmail(user.FirstName, code)
	if err := s.mailer.Send(ctx, user.Email, user.FirstName, subject, body); err != nil {
		s.log.Warn().Err(err).Str("email", user.Email).Msg("verification email failed")
	}

	return user, nil
}

// Login validates credentials and issues a signed token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (string, *User, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := auth.IssueToken(s.jwt, auth.Principal{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		Verified:  user.IsVerified,
	})
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// VerifyEmail marks the account verified when the submitted code matches.
func (s *Service) VerifyEmail(ctx context.Context, req VerifyRequest) error {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		return err
	}
	if user.IsVerified {
		return nil
	}
	if user.VerificationCode == nil || req.Code == "" || *user.VerificationCode != req.Code {
		return errs.Invalidf("verification code does not match")
	}
	if err := s.users.SetVerified(ctx, user.ID); err != nil {
		return err
	}

	subject, body := mail.WelcomeEmail(user.FirstName)
	if err := s.mailer.Send(ctx, user.Email, user.FirstName, subject, body); err != nil {
		s.log.Warn().Err(err).Str("email", user.Email).Msg("welcome email failed")
	}
	return nil
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, limit, offset)
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateUser applies profile changes. Role transitions keep the doctor row in
// lockstep: promoting to doctor creates it, demoting removes it.
func (s *Service) UpdateUser(ctx context.Context, actor auth.Principal, id uuid.UUID, req UpdateUserRequest) (*User, error) {
	if actor.ID != id && !actor.IsAdmin() {
		return nil, errs.Forbiddenf("cannot modify another account")
	}
	if req.Role != nil && !actor.IsAdmin() {
		return nil, errs.Forbiddenf("only admins can change roles")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.ContactPhone != nil {
		user.ContactPhone = req.ContactPhone
	}
	if req.Address != nil {
		user.Address = req.Address
	}
	if req.ImageURL != nil {
		user.ImageURL = *req.ImageURL
	}

	wasDoctor := user.Role == auth.RoleDoctor
	if req.Role != nil {
		switch *req.Role {
		case auth.RoleUser, auth.RoleDoctor, auth.RoleAdmin:
			user.Role = *req.Role
		default:
			return nil, errs.Invalidf("unknown role %q", *req.Role)
		}
	}
	isDoctor := user.Role == auth.RoleDoctor

	var days []string
	if isDoctor && len(req.AvailableDays) > 0 {
		var bad string
		days, bad = NormalizeDays(req.AvailableDays)
		if bad != "" {
			return nil, errs.Invalidf("%q is not a weekday name", bad)
		}
	}
	if isDoctor && !wasDoctor {
		if req.Specialization == nil || strings.TrimSpace(*req.Specialization) == "" {
			return nil, errs.Invalidf("specialization is required when promoting to doctor")
		}
		if len(days) == 0 {
			return nil, errs.Invalidf("available_days is required when promoting to doctor")
		}
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.users.Update(ctx, user); err != nil {
			return err
		}
		switch {
		case isDoctor:
			doc := &Doctor{UserID: user.ID, Experience: req.Experience}
			if req.Specialization != nil {
				doc.Specialization = strings.TrimSpace(*req.Specialization)
			}
			doc.AvailableDays = days
			if wasDoctor && (doc.Specialization == "" || len(doc.AvailableDays) == 0) {
				existing, err := s.doctors.Get(ctx, user.ID)
				if err != nil {
					return err
				}
				if doc.Specialization == "" {
					doc.Specialization = existing.Specialization
				}
				if len(doc.AvailableDays) == 0 {
					doc.AvailableDays = existing.AvailableDays
				}
			}
			return s.doctors.Upsert(ctx, doc)
		case wasDoctor:
			return s.doctors.Delete(ctx, user.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if wasDoctor || isDoctor {
		s.invalidateDoctorCache(ctx)
	}
	return user, nil
}

func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	if user.Role == auth.RoleDoctor {
		s.invalidateDoctorCache(ctx)
	}
	return nil
}

// ListDoctors serves the public doctor directory through a read-through
// cache. Only the unfiltered first page is cached; it is by far the hottest
// query.
func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*DoctorProfile, int, error) {
	cacheable := offset == 0 && limit == 20

	if cacheable {
		if raw, ok, err := s.cache.Get(ctx, doctorListCacheKey); err == nil && ok {
			var cached struct {
				Profiles []*DoctorProfile `json:"profiles"`
				Total    int              `json:"total"`
			}
			if json.Unmarshal(raw, &cached) == nil {
				return cached.Profiles, cached.Total, nil
			}
		}
	}

	profiles, total, err := s.doctors.ListProfiles(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	if cacheable {
		raw, err := json.Marshal(struct {
			Profiles []*DoctorProfile `json:"profiles"`
			Total    int              `json:"total"`
		}{profiles, total})
		if err == nil {
			if err := s.cache.Set(ctx, doctorListCacheKey, raw, doctorListCacheTTL); err != nil {
				s.log.Warn().Err(err).Msg("doctor list cache write failed")
			}
		}
	}
	return profiles, total, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*DoctorProfile, error) {
	return s.doctors.GetProfile(ctx, id)
}

func (s *Service) ListDoctorsBySpecialization(ctx context.Context, specialization string, limit, offset int) ([]*DoctorProfile, int, error) {
	if strings.TrimSpace(specialization) == "" {
		return nil, 0, errs.Invalidf("specialization is required")
	}
	return s.doctors.ListProfilesBySpecialization(ctx, specialization, limit, offset)
}

func (s *Service) invalidateDoctorCache(ctx context.Context) {
	if err := s.cache.Delete(ctx, doctorListCacheKey); err != nil {
		s.log.Warn().Err(err).Msg("doctor list cache invalidation failed")
	}
}

// generateVerificationCode produces a six digit numeric code.
func generateVerificationCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		// crypto/rand only fails when the platform entropy source is broken
		panic(fmt.Sprintf("read random: %v", err))
	}
	return fmt.Sprintf("%06d", n.Int64())
}
