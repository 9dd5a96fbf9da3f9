// Package password implements credential hashing and the account password
// policy.
package password

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Hash returns the bcrypt hash stored for an account credential.
func Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify checks a password against a stored hash. Records imported from the
// previous system hold an unsalted SHA-256 hex digest; those still verify,
// and needsRehash tells the caller to replace the stored value with a bcrypt
// hash while the plaintext is at hand.
func Verify(password, stored string) (ok bool, needsRehash bool) {
	if isBcryptHash(stored) {
		ok = bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
		return ok, false
	}
	sum := sha256.Sum256([]byte(password))
	digest := hex.EncodeToString(sum[:])
	ok = subtle.ConstantTimeCompare([]byte(digest), []byte(stored)) == 1
	return ok, ok
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2")
}

// MinLength is the minimum accepted password length.
const MinLength = 10

const specialChars = "!@#$%^&*()_+-=[]{};':\",.<>/?\\|`~"

// ValidatePolicy returns the policy violations for a candidate password,
// ready to show on the form. Empty result means the password is acceptable.
func ValidatePolicy(password, username, email string) []string {
	var problems []string

	if len(password) < MinLength {
		problems = append(problems, fmt.Sprintf("Senha deve ter pelo menos %d caracteres.", MinLength))
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
		if strings.ContainsRune(specialChars, r) {
			hasSpecial = true
		}
	}
	if !hasUpper {
		problems = append(problems, "Senha deve conter pelo menos 1 letra maiúscula.")
	}
	if !hasLower {
		problems = append(problems, "Senha deve conter pelo menos 1 letra minúscula.")
	}
	if !hasDigit {
		problems = append(problems, "Senha deve conter pelo menos 1 número.")
	}
	if !hasSpecial {
		problems = append(problems, "Senha deve conter pelo menos 1 caractere especial.")
	}

	lowered := strings.ToLower(password)
	if uname := strings.ToLower(strings.TrimSpace(username)); uname != "" && strings.Contains(lowered, uname) {
		problems = append(problems, "Senha não pode conter o seu usuário.")
	}
	local, _, _ := strings.Cut(email, "@")
	if local = strings.ToLower(strings.TrimSpace(local)); local != "" && strings.Contains(lowered, local) {
		problems = append(problems, "Senha não pode conter a parte local do seu e-mail.")
	}

	return problems
}
