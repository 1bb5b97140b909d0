package passcode

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomGenerator_Shape(t *testing.T) {
	g := NewRandomGenerator()
	for i := 0; i < 200; i++ {
		code, err := g.Generate()
		require.NoError(t, err)
		require.Len(t, code, Digits)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', "unexpected rune %q in %q", r, code)
		}
	}
}

func TestRandomGenerator_DigitsAreIndependentDraws(t *testing.T) {
	// rand.Int(reader, 10) consumes one byte per draw and rejects values >= 10
	// after masking to 4 bits, so each byte below maps to exactly one digit.
	src := bytes.NewReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x09})
	code, err := NewRandomGeneratorFrom(src).Generate()
	require.NoError(t, err)
	assert.Equal(t, "123459", code)
}

func TestRandomGenerator_Distribution(t *testing.T) {
	const samples = 5000
	var counts [Digits][10]int
	g := NewRandomGenerator()
	for i := 0; i < samples; i++ {
		code, err := g.Generate()
		require.NoError(t, err)
		for pos, r := range code {
			counts[pos][r-'0']++
		}
	}
	// Each cell expects 500; a uniform source stays well inside this band.
	for pos := range counts {
		for digit, n := range counts[pos] {
			assert.InDelta(t, samples/10, n, 150, "position %d digit %d", pos, digit)
		}
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestRandomGenerator_SourceError(t *testing.T) {
	_, err := NewRandomGeneratorFrom(failingReader{}).Generate()
	assert.Error(t, err)
}

func TestEncodeParse(t *testing.T) {
	issued := time.Unix(1700000000, 0)
	raw := Encode(Challenge{Code: "042917", IssuedAt: issued})
	assert.Equal(t, "042917,1700000000", raw)

	c, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "042917", c.Code)
	assert.True(t, c.IssuedAt.Equal(issued))
}

func TestParse_Malformed(t *testing.T) {
	for _, raw := range []string{"", "123456", ",1700000000", "123456,", "123456,abc"} {
		_, err := Parse(raw)
		assert.Error(t, err, "input %q", raw)
	}
}

func TestVerify(t *testing.T) {
	now := time.Unix(1700000000, 0)
	window := int64(TTL / time.Second)

	tests := []struct {
		name   string
		issued int64
		answer string
		want   bool
	}{
		{name: "matching and fresh", issued: now.Unix() - 10, answer: "123456", want: true},
		{name: "matching at window edge minus one", issued: now.Unix() - window + 1, answer: "123456", want: true},
		{name: "matching but exactly at window", issued: now.Unix() - window, answer: "123456", want: false},
		{name: "matching but stale", issued: now.Unix() - window - 60, answer: "123456", want: false},
		{name: "wrong and fresh", issued: now.Unix() - 10, answer: "654321", want: false},
		{name: "wrong and stale", issued: now.Unix() - window - 60, answer: "654321", want: false},
		{name: "empty answer", issued: now.Unix(), answer: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Challenge{Code: "123456", IssuedAt: time.Unix(tt.issued, 0)}
			assert.Equal(t, tt.want, Verify(c, tt.answer, now))
		})
	}
}
