// Package passcode generates one-time codes and encodes the challenge state
// carried in the identity's custom attribute.
package passcode

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	// Digits is the length of a generated code.
	Digits = 6

	// TTL bounds how long an issued challenge stays answerable.
	TTL = 30 * time.Minute
)

// Generator produces one-time codes.
type Generator interface {
	Generate() (string, error)
}

// RandomGenerator draws each digit independently and uniformly over [0,9].
type RandomGenerator struct {
	reader io.Reader
}

// NewRandomGenerator returns a generator backed by crypto/rand.
func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{reader: rand.Reader}
}

// NewRandomGeneratorFrom uses r as the entropy source.
func NewRandomGeneratorFrom(r io.Reader) *RandomGenerator {
	return &RandomGenerator{reader: r}
}

func (g *RandomGenerator) Generate() (string, error) {
	var b strings.Builder
	b.Grow(Digits)

	ten := big.NewInt(10)
	for i := 0; i < Digits; i++ {
		n, err := rand.Int(g.reader, ten)
		if err != nil {
			return "", fmt.Errorf("draw digit: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// Challenge is the state written into the identity before a custom auth flow.
type Challenge struct {
	Code     string
	IssuedAt time.Time
}

// Encode renders c as "<code>,<unix-seconds>".
func Encode(c Challenge) string {
	return c.Code + "," + strconv.FormatInt(c.IssuedAt.Unix(), 10)
}

// Parse is the inverse of Encode.
func Parse(raw string) (Challenge, error) {
	code, issued, ok := strings.Cut(raw, ",")
	if !ok || code == "" {
		return Challenge{}, fmt.Errorf("malformed challenge %q", raw)
	}
	secs, err := strconv.ParseInt(issued, 10, 64)
	if err != nil {
		return Challenge{}, fmt.Errorf("malformed challenge timestamp: %w", err)
	}
	return Challenge{Code: code, IssuedAt: time.Unix(secs, 0)}, nil
}

// Fresh reports whether c was issued strictly within TTL of now.
func Fresh(c Challenge, now time.Time) bool {
	return c.IssuedAt.Unix() > now.Unix()-int64(TTL/time.Second)
}

// Verify reports whether answer matches the code of a fresh challenge.
func Verify(c Challenge, answer string, now time.Time) bool {
	match := subtle.ConstantTimeCompare([]byte(answer), []byte(c.Code)) == 1
	return match && Fresh(c, now)
}
