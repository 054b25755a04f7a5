package crypto

import "golang.org/x/crypto/bcrypt"

// PasswordCost is the bcrypt work factor applied to every stored password.
const PasswordCost = 10

// HashPassword hashes plaintext using bcrypt.
func HashPassword(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), PasswordCost)
}

// ComparePassword compares plaintext to hashed secret. An empty hash never
// matches, which is the case for accounts provisioned through OAuth.
func ComparePassword(hash []byte, plain string) error {
	if len(hash) == 0 {
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(plain))
}
