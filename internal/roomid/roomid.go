// Package roomid generates the short opaque identifiers rooms are
// addressed by.
package roomid

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Crockford's base32 alphabet: unambiguous and URL-safe.
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Length of a room id in characters (50 bits of entropy).
const Length = 10

// RandSource is injected by tests that need deterministic ids.
type RandSource interface {
	Intn(n int) int
}

// Generator produces room ids with configurable randomness.
type Generator struct {
	randSource RandSource
}

func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// New returns a fresh room id from crypto/rand.
func New() string {
	return NewGenerator(nil).New()
}

func (g *Generator) New() string {
	var out [Length]byte
	if g.randSource != nil {
		for i := range out {
			out[i] = alphabet[g.randSource.Intn(len(alphabet))]
		}
		return string(out[:])
	}
	var buf [Length]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("roomid: crypto rand: " + err.Error())
	}
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out[:])
}

// Validate checks length and alphabet membership.
func Validate(id string) error {
	if len(id) != Length {
		return fmt.Errorf("room id must be %d characters, got %d", Length, len(id))
	}
	for i, ch := range id {
		if !strings.ContainsRune(alphabet, ch) {
			return fmt.Errorf("invalid character %q at position %d", ch, i)
		}
	}
	return nil
}
