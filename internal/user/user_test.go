package user

import (
	"context"
	"errors"
	"testing"

	"nutrilens/internal/auth"
	"nutrilens/internal/database"
	"nutrilens/internal/storage"
)

func setupService(t *testing.T) (*Service, *Repository, *storage.FileStore) {
	t.Helper()
	db, err := database.OpenInMemory()
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	blobs, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create blob store: %v", err)
	}
	repo := NewRepository(db.SQL)
	return NewService(repo, blobs), repo, blobs
}

func validRequest(email string) RegistrationRequest {
	return RegistrationRequest{
		Name:              "Asha Rao",
		Email:             email,
		Password:          "pw123456",
		ConfirmPassword:   "pw123456",
		Age:               25,
		Gender:            "Male",
		HeightCm:          170,
		WeightKg:          70,
		DietaryPreference: "Veg",
		Goal:              "maintenance",
		ActivityLevel:     "Sedentary : Little or no exercise, mostly sitting.",
		Allergies:         " Peanuts, MILK , ,gluten",
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("AssignsSequentialHandles", func(t *testing.T) {
		svc, repo, _ := setupService(t)

		next, err := repo.NextHandle(ctx)
		if err != nil || next != "user1" {
			t.Fatalf("Expected next handle user1, got %s (%v)", next, err)
		}

		first, err := svc.Register(ctx, validRequest("a@example.com"))
		if err != nil {
			t.Fatalf("Failed to register: %v", err)
		}
		second, err := svc.Register(ctx, validRequest("b@example.com"))
		if err != nil {
			t.Fatalf("Failed to register: %v", err)
		}
		if first.Handle != "user1" || second.Handle != "user2" {
			t.Errorf("Expected user1 and user2, got %s and %s", first.Handle, second.Handle)
		}
	})

	t.Run("ComputesTargetAndNormalizes", func(t *testing.T) {
		svc, _, _ := setupService(t)
		p, err := svc.Register(ctx, validRequest("a@example.com"))
		if err != nil {
			t.Fatalf("Failed to register: %v", err)
		}
		if p.DailyCalorieTarget != 1971 {
			t.Errorf("Expected target 1971, got %d", p.DailyCalorieTarget)
		}
		if p.Gender != GenderMale || p.DietaryPreference != DietVeg {
			t.Errorf("Unexpected enums: %s %s", p.Gender, p.DietaryPreference)
		}

		stored, err := svc.Get(ctx, p.Handle)
		if err != nil {
			t.Fatalf("Failed to load: %v", err)
		}
		want := []string{"peanuts", "milk", "gluten"}
		if len(stored.Allergies) != len(want) {
			t.Fatalf("Expected allergies %v, got %v", want, stored.Allergies)
		}
		for i := range want {
			if stored.Allergies[i] != want[i] {
				t.Errorf("Expected allergies %v, got %v", want, stored.Allergies)
			}
		}
		if stored.RegisteredAt.IsZero() {
			t.Error("Expected registration time to be stored")
		}
	})

	t.Run("Validation", func(t *testing.T) {
		svc, repo, _ := setupService(t)

		missing := validRequest("a@example.com")
		missing.Name = "  "
		if _, err := svc.Register(ctx, missing); !errors.Is(err, ErrValidation) {
			t.Errorf("Expected ErrValidation, got %v", err)
		}

		mismatch := validRequest("a@example.com")
		mismatch.ConfirmPassword = "different"
		if _, err := svc.Register(ctx, mismatch); !errors.Is(err, ErrPasswordMismatch) {
			t.Errorf("Expected ErrPasswordMismatch, got %v", err)
		}

		badGoal := validRequest("a@example.com")
		badGoal.Goal = "bulk"
		if _, err := svc.Register(ctx, badGoal); !errors.Is(err, ErrValidation) {
			t.Errorf("Expected ErrValidation for unknown goal, got %v", err)
		}

		// Nothing may have been written.
		if next, _ := repo.NextHandle(ctx); next != "user1" {
			t.Errorf("Expected no user rows after failed validation, next handle is %s", next)
		}
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		svc, _, _ := setupService(t)
		if _, err := svc.Register(ctx, validRequest("a@example.com")); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.Register(ctx, validRequest("a@example.com")); !errors.Is(err, ErrDuplicateEmail) {
			t.Errorf("Expected ErrDuplicateEmail, got %v", err)
		}
	})

	t.Run("WithProfileImage", func(t *testing.T) {
		svc, _, _ := setupService(t)
		req := validRequest("a@example.com")
		req.ProfileImage = []byte("image-bytes")

		p, err := svc.Register(ctx, req)
		if err != nil {
			t.Fatalf("Failed to register: %v", err)
		}
		data, err := svc.ProfileImage(ctx, p.Handle)
		if err != nil || string(data) != "image-bytes" {
			t.Errorf("Unexpected profile image: %q, %v", data, err)
		}
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)
	p, err := svc.Register(ctx, validRequest("a@example.com"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Authenticate(ctx, p.Handle, "pw123456"); err != nil {
		t.Errorf("Expected login to succeed: %v", err)
	}
	if _, err := svc.Authenticate(ctx, p.Handle, "nope"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "user99", "pw123456"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)
	p, err := svc.Register(ctx, validRequest("a@example.com"))
	if err != nil {
		t.Fatal(err)
	}

	weight := 80.0
	goal := "Weight Loss"
	activity := "Moderately Active : Moderate exercise 3-5 days/week."
	age := 30
	height := 180.0
	updated, err := svc.UpdateProfile(ctx, p.Handle, ProfileUpdate{
		WeightKg: &weight, Goal: &goal, ActivityLevel: &activity, Age: &age, HeightCm: &height,
	})
	if err != nil {
		t.Fatalf("Failed to update: %v", err)
	}
	if updated.DailyCalorieTarget != 2259 {
		t.Errorf("Expected recomputed target 2259, got %d", updated.DailyCalorieTarget)
	}
	if updated.Gender != GenderMale {
		t.Errorf("Expected gender to be unchanged, got %s", updated.Gender)
	}

	reloaded, _ := svc.Get(ctx, p.Handle)
	if reloaded.DailyCalorieTarget != 2259 || reloaded.Goal != GoalWeightLoss {
		t.Errorf("Update not persisted: %+v", reloaded)
	}

	bad := -5
	if _, err := svc.UpdateProfile(ctx, p.Handle, ProfileUpdate{Age: &bad}); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
	if _, err := svc.UpdateProfile(ctx, "user404", ProfileUpdate{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSetProfileImage(t *testing.T) {
	ctx := context.Background()
	svc, _, blobs := setupService(t)
	p, err := svc.Register(ctx, validRequest("a@example.com"))
	if err != nil {
		t.Fatal(err)
	}

	if data, err := svc.ProfileImage(ctx, p.Handle); err != nil || data != nil {
		t.Errorf("Expected no image yet, got %q, %v", data, err)
	}

	first, err := svc.SetProfileImage(ctx, p.Handle, []byte("v1"))
	if err != nil {
		t.Fatalf("Failed to set image: %v", err)
	}
	oldID := first.ProfileImageID

	second, err := svc.SetProfileImage(ctx, p.Handle, []byte("v2"))
	if err != nil {
		t.Fatalf("Failed to replace image: %v", err)
	}
	if second.ProfileImageID == oldID {
		t.Error("Expected a new blob id")
	}
	if old, _ := blobs.Get(ctx, oldID); old != nil {
		t.Error("Expected the previous image to be deleted")
	}
	if data, _ := svc.ProfileImage(ctx, p.Handle); string(data) != "v2" {
		t.Errorf("Expected v2, got %q", data)
	}
}

func TestResetPasswordAndRecover(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)
	p, err := svc.Register(ctx, validRequest("asha@example.com"))
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.ResetPassword(ctx, p.Handle, "asha@example.com", "new-pass", "other"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("Expected ErrPasswordMismatch, got %v", err)
	}
	if err := svc.ResetPassword(ctx, p.Handle, "", "new-pass", "new-pass"); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation without an email, got %v", err)
	}
	if err := svc.ResetPassword(ctx, p.Handle, "someone@else.com", "new-pass", "new-pass"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for a wrong email, got %v", err)
	}
	if err := svc.ResetPassword(ctx, "user77", "asha@example.com", "new-pass", "new-pass"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for an unknown user, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, p.Handle, validRequest("").Password); err != nil {
		t.Errorf("Expected rejected resets to keep the old password: %v", err)
	}

	if err := svc.ResetPassword(ctx, p.Handle, " Asha@Example.com ", "new-pass", "new-pass"); err != nil {
		t.Fatalf("Failed to reset: %v", err)
	}
	if _, err := svc.Authenticate(ctx, p.Handle, "new-pass"); err != nil {
		t.Errorf("Expected new password to work: %v", err)
	}

	cases := map[string]string{
		"asha@example.com": p.Handle,
		"asha":             p.Handle,
		"RAO":              p.Handle,
	}
	for q, want := range cases {
		got, err := svc.RecoverHandle(ctx, q)
		if err != nil || got != want {
			t.Errorf("RecoverHandle(%q): expected %s, got %s (%v)", q, want, got, err)
		}
	}
	if _, err := svc.RecoverHandle(ctx, "ASHA@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected exact email match only, got %v", err)
	}
	if _, err := svc.RecoverHandle(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestParsers(t *testing.T) {
	if d, err := ParseDietaryPreference("Non-Veg"); err != nil || d != DietNonVeg {
		t.Errorf("Expected non-veg, got %s (%v)", d, err)
	}
	if d, err := ParseDietaryPreference("non_veg"); err != nil || d != DietNonVeg {
		t.Errorf("Expected non-veg, got %s (%v)", d, err)
	}
	if g, err := ParseGoal("weight-gain"); err != nil || g != GoalWeightGain {
		t.Errorf("Expected weight_gain, got %s (%v)", g, err)
	}
	if _, err := ParseGender("robot"); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
	if got := ParseAllergies(""); got == nil || len(got) != 0 {
		t.Errorf("Expected empty allergy list, got %#v", got)
	}
}
