/* pkg/crypto/password.go */

package crypto

import (
	"crypto/rand"
	"math/big"

	cerr "github.com/cockroachdb/errors"
)

// Character classes for generated passwords. Visually ambiguous
// characters are excluded: no O/0, no l/1.
const (
	LowerChars  = "abcdefghijkmnopqrstuvwxyz"
	UpperChars  = "ABCDEFGHIJKLMNPQRSTUVWXYZ"
	DigitChars  = "23456789"
	SymbolChars = "!@#$%&*?" // shell-safe
)

// AllChars is the union alphabet used to fill positions beyond the
// guaranteed one-per-class characters.
const AllChars = LowerChars + UpperChars + DigitChars + SymbolChars

// GeneratePassword creates a strong random password with at least one
// character from each class. Selection uses crypto/rand via rand.Int,
// which is uniform over the alphabet; ordering is randomized with a
// Fisher-Yates shuffle also driven by crypto/rand, so final character
// positions carry no class information.
func GeneratePassword(length int) (string, error) {
	if length < 4 {
		return "", cerr.Newf("password length must be at least 4, got %d", length)
	}

	pw := make([]byte, 0, length)

	// Guarantee one character from each class.
	for _, group := range []string{LowerChars, UpperChars, DigitChars, SymbolChars} {
		c, err := randomChar(group)
		if err != nil {
			return "", err
		}
		pw = append(pw, c)
	}

	// Fill the rest from the union alphabet.
	for i := len(pw); i < length; i++ {
		c, err := randomChar(AllChars)
		if err != nil {
			return "", err
		}
		pw = append(pw, c)
	}

	if err := shuffle(pw); err != nil {
		return "", err
	}

	return string(pw), nil
}

func randomChar(charset string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
	if err != nil {
		return 0, cerr.Wrap(err, "entropy source exhausted")
	}
	return charset[n.Int64()], nil
}

func shuffle(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		jBig, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return cerr.Wrap(err, "entropy source exhausted")
		}
		j := int(jBig.Int64())
		b[i], b[j] = b[j], b[i]
	}
	return nil
}
