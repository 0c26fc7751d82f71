package accounts

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
)

// mfaCodeRange draws codes uniformly from [100000, 999999] so every code
// is six digits.
var mfaCodeRange = big.NewInt(900000)

func generateMFACode() (string, error) {
	n, err := rand.Int(rand.Reader, mfaCodeRange)
	if err != nil {
		return "", fmt.Errorf("generate mfa code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// codeMatches compares a submitted code against the stored one in
// constant time.
func codeMatches(submitted, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(stored)) == 1
}
