// Package random suggests throwaway inbox names.
package random

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
)

// Supported kinds. Anything else yields a user name.
const (
	KindMD5         = "md5"
	KindSHA256      = "sha256"
	KindNumber      = "number"
	KindIPv4        = "ipv4"
	KindDroid       = "droid"
	KindPlanet      = "planet"
	KindPhilosopher = "philosopher"
	KindUsername    = "username"
)

var droids = []string{
	"2-1B", "4-LOM", "BB-8", "BD-1", "C-3PO", "Chopper", "IG-11", "IG-88",
	"K-2SO", "L3-37", "R2-D2", "R4-P17", "R5-D4", "WED-15",
}

var planets = []string{
	"Betelgeuse V", "Brontitall", "Damogran", "Earth", "Han Wavel", "Jaglan Beta",
	"Kakrafoon", "Krikkit", "Lamuella", "Magrathea", "Santraginus V", "Traal",
	"Ursa Minor Beta", "Vogsphere",
}

var philosophers = []string{
	"Anaxagoras", "Anaximander", "Aristotle", "Democritus", "Diogenes", "Empedocles",
	"Epicurus", "Heraclitus", "Parmenides", "Plato", "Protagoras", "Pythagoras",
	"Socrates", "Thales", "Zeno of Citium",
}

// Generator produces inbox names. It is safe for concurrent use.
type Generator struct {
	faker *gofakeit.Faker
}

// New creates a generator; seed 0 picks a random seed
func New(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// Kinds lists the named kinds for the home page
func Kinds() []string {
	return []string{KindUsername, KindNumber, KindIPv4, KindMD5, KindSHA256, KindDroid, KindPlanet, KindPhilosopher}
}

// Name returns a mailbox name of the given kind
func (g *Generator) Name(kind string) string {
	var s string
	switch kind {
	case KindMD5:
		sum := md5.Sum([]byte(g.faker.UUID()))
		s = hex.EncodeToString(sum[:])
	case KindSHA256:
		sum := sha256.Sum256([]byte(g.faker.UUID()))
		s = hex.EncodeToString(sum[:])
	case KindNumber:
		s = g.faker.DigitN(10)
	case KindIPv4:
		s = g.faker.IPv4Address()
	case KindDroid:
		s = g.faker.RandomString(droids)
	case KindPlanet:
		s = g.faker.RandomString(planets)
	case KindPhilosopher:
		s = g.faker.RandomString(philosophers)
	default:
		s = g.faker.Username()
	}
	return clean(s)
}

// clean drops spaces and anything else a mailbox local part cannot hold
func clean(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '_', r == '+', r == '-', r == '.':
			return r
		default:
			return -1
		}
	}, s)
}
