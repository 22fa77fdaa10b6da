package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	require.Equal(t, int64(0), Checksum(""))
	require.Equal(t, int64('A'), Checksum("A"))
	require.Equal(t, int64(2781), Checksum(validCovered))
	// Code points, not bytes: "→" is U+2192.
	require.Equal(t, int64(0x2192), Checksum("→"))
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		covered string
		token   string
		want    bool
	}{
		{"match", validCovered, "2781", true},
		{"off by one", validCovered, "2782", false},
		{"leading zero", validCovered, "02781", false},
		{"whitespace", validCovered, " 2781", false},
		{"plus sign", validCovered, "+2781", false},
		{"empty token", validCovered, "", false},
		{"non numeric", validCovered, "abc", false},
		{"empty covered", "", "0", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Verify(tt.covered, tt.token))
		})
	}
}

func TestVerifyIsDeterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		require.True(t, Verify(validCovered, "2781"))
	}
}

func TestVerifyDetectsSingleCharacterMutation(t *testing.T) {
	for i := range validCovered {
		mutated := []byte(validCovered)
		mutated[i]++
		require.False(t, Verify(string(mutated), "2781"), "mutation at %d went undetected", i)
	}
}
