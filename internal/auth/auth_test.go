package auth

import (
	"testing"

	"github.com/google/uuid"

	"github.com/orato-labs/speechcoach/internal/models"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("Sp3ak-clearly!")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if !CheckPassword(hash, "Sp3ak-clearly!") {
		t.Fatal("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatal("wrong password accepted")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	user := &models.User{ID: uuid.New(), Role: models.RoleAdmin}
	token, err := GenerateToken("test-secret", user)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	gotID, gotRole, err := ValidateToken("test-secret", token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if gotID != user.ID || gotRole != models.RoleAdmin {
		t.Fatalf("claims mismatch: %v %v", gotID, gotRole)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	user := &models.User{ID: uuid.New(), Role: models.RoleUser}
	token, err := GenerateToken("secret-a", user)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if _, _, err := ValidateToken("secret-b", token); err == nil {
		t.Fatal("token validated under the wrong secret")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("short", 8); err == nil {
		t.Fatal("short password accepted")
	}
	if err := ValidatePassword("alllowercase", 8); err == nil {
		t.Fatal("low-complexity password accepted")
	}
	if err := ValidatePassword("G00d-enough", 8); err != nil {
		t.Fatalf("strong password rejected: %v", err)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  User@Example.COM "); got != "user@example.com" {
		t.Fatalf("unexpected normalization: %q", got)
	}
}
