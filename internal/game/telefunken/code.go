package telefunken

import "math/rand"

const (
	sessionCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	sessionCodeLength   = 6
)

// GenerateSessionCode returns a random six character join code.
func GenerateSessionCode(intn Intn) string {
	if intn == nil {
		intn = rand.Intn
	}
	b := make([]byte, sessionCodeLength)
	for i := range b {
		b[i] = sessionCodeAlphabet[intn(len(sessionCodeAlphabet))]
	}
	return string(b)
}
