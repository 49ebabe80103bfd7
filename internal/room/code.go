package room

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/go-playground/validator/v10"
)

// CodeLength is the number of characters in a room code.
const CodeLength = 8

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var (
	validate = validator.New()
	codeRule = fmt.Sprintf("len=%d,alphanum,uppercase", CodeLength)
)

// ValidCode reports whether code has the lexical shape of an issued room code:
// CodeLength characters from A-Z0-9.
func ValidCode(code string) bool {
	return validate.Var(code, codeRule) == nil
}

// GenerateCode returns a random room code drawn from A-Z0-9.
func GenerateCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, CodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("room: generate code: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
