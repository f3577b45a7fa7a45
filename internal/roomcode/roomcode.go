// Package roomcode generates and validates the short join codes players
// type to enter a session.
package roomcode

import (
	"math/rand"
	"regexp"
)

// Length is the fixed room code length.
const Length = 6

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var codeRe = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// New returns a random 6-character uppercase alphanumeric code.
func New() string {
	b := make([]byte, Length)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}

// Valid reports whether code is a well-formed room code.
func Valid(code string) bool {
	return codeRe.MatchString(code)
}
