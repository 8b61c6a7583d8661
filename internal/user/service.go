package user

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"nutrilens/internal/auth"
	"nutrilens/internal/storage"
)

// Store is the persistence the Service needs.
type Store interface {
	Create(ctx context.Context, p *Profile) error
	GetByHandle(ctx context.Context, handle string) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	FindByName(ctx context.Context, fragment string) (*Profile, error)
	Update(ctx context.Context, p *Profile) error
	SetPasswordHash(ctx context.Context, handle, hash string) error
	SetProfileImageID(ctx context.Context, handle, blobID string) error
	NextHandle(ctx context.Context) (string, error)
}

// Service implements the account use cases.
type Service struct {
	store Store
	blobs storage.BlobStore
	now   func() time.Time
}

// NewService creates a Service.
func NewService(store Store, blobs storage.BlobStore) *Service {
	return &Service{store: store, blobs: blobs, now: time.Now}
}

// Register validates req and creates the account. Nothing is written when
// validation fails. A profile image that cannot be stored is logged and
// skipped; the account is still created.
func (s *Service) Register(ctx context.Context, req RegistrationRequest) (*Profile, error) {
	p, err := s.validateRegistration(ctx, req)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	p.PasswordHash = hash

	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	log.Printf("Registered %s (%s), daily target %d kcal", p.Handle, p.Email, p.DailyCalorieTarget)

	if len(req.ProfileImage) > 0 {
		if err := s.storeImage(ctx, p, req.ProfileImage); err != nil {
			log.Printf("Failed to store profile image for %s: %v", p.Handle, err)
		}
	}
	return p, nil
}

func (s *Service) validateRegistration(ctx context.Context, req RegistrationRequest) (*Profile, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	if name == "" || email == "" || req.Password == "" || req.ConfirmPassword == "" {
		return nil, fmt.Errorf("%w: name, email, password and confirmation are required", ErrValidation)
	}
	if req.Password != req.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email %q", ErrValidation, email)
	}
	if req.Age <= 0 || req.HeightCm <= 0 || req.WeightKg <= 0 {
		return nil, fmt.Errorf("%w: age, height and weight must be positive", ErrValidation)
	}

	gender, err := ParseGender(req.Gender)
	if err != nil {
		return nil, err
	}
	diet, err := ParseDietaryPreference(req.DietaryPreference)
	if err != nil {
		return nil, err
	}
	goal, err := ParseGoal(req.Goal)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	p := &Profile{
		Name:              name,
		Email:             email,
		Age:               req.Age,
		Gender:            gender,
		HeightCm:          req.HeightCm,
		WeightKg:          req.WeightKg,
		DietaryPreference: diet,
		Goal:              goal,
		ActivityLevel:     strings.TrimSpace(req.ActivityLevel),
		Allergies:         ParseAllergies(req.Allergies),
		RegisteredAt:      s.now().UTC(),
	}
	p.RecomputeTarget()
	return p, nil
}

// Authenticate checks a handle and password.
func (s *Service) Authenticate(ctx context.Context, handle, password string) (*Profile, error) {
	p, err := s.store.GetByHandle(ctx, strings.TrimSpace(handle))
	if err != nil {
		return nil, err
	}
	if p == nil || !auth.CheckPassword(p.PasswordHash, password) {
		return nil, auth.ErrInvalidCredentials
	}
	return p, nil
}

// Get returns the profile or ErrNotFound.
func (s *Service) Get(ctx context.Context, handle string) (*Profile, error) {
	p, err := s.store.GetByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, handle)
	}
	return p, nil
}

// UpdateProfile applies the non-nil fields of u and recomputes the daily
// calorie target.
func (s *Service) UpdateProfile(ctx context.Context, handle string, u ProfileUpdate) (*Profile, error) {
	p, err := s.Get(ctx, handle)
	if err != nil {
		return nil, err
	}

	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		p.Name = name
	}
	if u.Age != nil {
		if *u.Age <= 0 {
			return nil, fmt.Errorf("%w: age must be positive", ErrValidation)
		}
		p.Age = *u.Age
	}
	if u.HeightCm != nil {
		if *u.HeightCm <= 0 {
			return nil, fmt.Errorf("%w: height must be positive", ErrValidation)
		}
		p.HeightCm = *u.HeightCm
	}
	if u.WeightKg != nil {
		if *u.WeightKg <= 0 {
			return nil, fmt.Errorf("%w: weight must be positive", ErrValidation)
		}
		p.WeightKg = *u.WeightKg
	}
	if u.DietaryPreference != nil {
		if p.DietaryPreference, err = ParseDietaryPreference(*u.DietaryPreference); err != nil {
			return nil, err
		}
	}
	if u.Goal != nil {
		if p.Goal, err = ParseGoal(*u.Goal); err != nil {
			return nil, err
		}
	}
	if u.ActivityLevel != nil {
		p.ActivityLevel = strings.TrimSpace(*u.ActivityLevel)
	}
	if u.Allergies != nil {
		p.Allergies = ParseAllergies(*u.Allergies)
	}

	p.RecomputeTarget()
	if err := s.store.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// SetProfileImage replaces the user's profile image.
func (s *Service) SetProfileImage(ctx context.Context, handle string, data []byte) (*Profile, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrValidation)
	}
	p, err := s.Get(ctx, handle)
	if err != nil {
		return nil, err
	}
	if err := s.storeImage(ctx, p, data); err != nil {
		return nil, err
	}
	return p, nil
}

// ProfileImage returns the stored image bytes, or nil when the user has none.
func (s *Service) ProfileImage(ctx context.Context, handle string) ([]byte, error) {
	p, err := s.Get(ctx, handle)
	if err != nil {
		return nil, err
	}
	if p.ProfileImageID == "" {
		return nil, nil
	}
	return s.blobs.Get(ctx, p.ProfileImageID)
}

// storeImage deletes the previous image, stores the new one under
// "<handle>_profile" and records its id on p.
func (s *Service) storeImage(ctx context.Context, p *Profile, data []byte) error {
	if p.ProfileImageID != "" {
		if _, err := s.blobs.Delete(ctx, p.ProfileImageID); err != nil {
			log.Printf("Failed to delete previous profile image %s: %v", p.ProfileImageID, err)
		}
	}

	id, err := s.blobs.Put(ctx, p.Handle+"_profile", data)
	if err != nil {
		return fmt.Errorf("failed to store profile image: %w", err)
	}
	if err := s.store.SetProfileImageID(ctx, p.Handle, id); err != nil {
		return err
	}
	p.ProfileImageID = id
	return nil
}

// NextHandle previews the user id the next registration will receive. Another
// registration may take it first.
func (s *Service) NextHandle(ctx context.Context) (string, error) {
	return s.store.NextHandle(ctx)
}

// ResetPassword sets a new password for handle. The caller must also supply
// the email the account was registered with; an unknown handle and a wrong
// email both report auth.ErrInvalidCredentials.
func (s *Service) ResetPassword(ctx context.Context, handle, email, newPassword, confirm string) error {
	handle = strings.TrimSpace(handle)
	email = strings.TrimSpace(email)
	if handle == "" || email == "" || newPassword == "" || confirm == "" {
		return fmt.Errorf("%w: user id, email, new password and confirmation are required", ErrValidation)
	}
	if newPassword != confirm {
		return ErrPasswordMismatch
	}

	p, err := s.store.GetByHandle(ctx, handle)
	if err != nil {
		return err
	}
	if p == nil || !strings.EqualFold(p.Email, email) {
		log.Printf("Rejected password reset for %s", handle)
		return auth.ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.store.SetPasswordHash(ctx, p.Handle, hash)
}

// RecoverHandle finds a forgotten handle by exact email, or by a
// case-insensitive fragment of the full name when the query has no "@".
func (s *Service) RecoverHandle(ctx context.Context, emailOrName string) (string, error) {
	q := strings.TrimSpace(emailOrName)
	if q == "" {
		return "", fmt.Errorf("%w: email or name is required", ErrValidation)
	}

	var (
		p   *Profile
		err error
	)
	if strings.Contains(q, "@") {
		p, err = s.store.GetByEmail(ctx, q)
	} else {
		p, err = s.store.FindByName(ctx, q)
	}
	if err != nil {
		return "", err
	}
	if p == nil {
		return "", ErrNotFound
	}
	return p.Handle, nil
}

