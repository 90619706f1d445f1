package totp

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSeed = "JBSWY3DPEHPK3PXP"

func TestNormalizeSeed(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already clean", "JBSWY3DPEHPK3PXP", "JBSWY3DPEHPK3PXP"},
		{"lowercase with spaces", "jbsw y3dp ehpk 3pxp", "JBSWY3DPEHPK3PXP"},
		{"hyphenated", "JBSW-Y3DP-EHPK-3PXP", "JBSWY3DPEHPK3PXP"},
		{"needs padding", "JBSWY3DPEHPK3PXPJBSW", "JBSWY3DPEHPK3PXPJBSW===="},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSeed(tt.in))
		})
	}
}

func TestGenerateAtIsSixDigits(t *testing.T) {
	code, err := GenerateAt(testSeed, time.Unix(1700000000, 0))
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)
}

func TestGenerateStableWithinWindow(t *testing.T) {
	base := time.Unix(1700000010, 0) // mid-window
	a, err := GenerateAt(testSeed, base)
	require.NoError(t, err)
	b, err := GenerateAt(testSeed, base.Add(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, a, b, "codes within one 30s window must match")

	c, err := GenerateAt(testSeed, base.Add(60*time.Second))
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "codes two windows apart should differ")
}

func TestGenerateAcceptsMessySeed(t *testing.T) {
	clean, err := GenerateAt(testSeed, time.Unix(1700000000, 0))
	require.NoError(t, err)
	messy, err := GenerateAt("jbsw y3dp-ehpk 3pxp", time.Unix(1700000000, 0))
	require.NoError(t, err)
	assert.Equal(t, clean, messy)
}

func TestGenerateInvalidSeed(t *testing.T) {
	_, err := GenerateAt("notbase32!!", time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSeed))

	_, err = GenerateAt("", time.Now())
	assert.True(t, errors.Is(err, ErrInvalidSeed))
}
