package utils

import (
	"crypto/rand"
	"math/big"
)

// TeamCodeAlphabet leaves out 0/O and 1/I/L so codes survive being read aloud.
const TeamCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// GenerateCode returns length random characters drawn from alphabet.
func GenerateCode(alphabet string, length int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = alphabet[n.Int64()]
	}
	return string(code), nil
}
