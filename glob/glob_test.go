package glob

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPatterns(t *testing.T) {
	require.True(t, IsPattern("section:*"))
	require.True(t, IsPattern("{general,security}"))
	require.False(t, IsPattern("general"))
}

func TestMatchWithSeparator(t *testing.T) {
	ok, err := Match("*.fields.*.name", "checkin.fields.0.name", '.')
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Match("*.name", "checkin.fields.0.name", '.')
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = Match("**.name", "checkin.fields.0.name", '.')
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCompileAlternatives(t *testing.T) {
	g := MustCompile("{general,security}")
	require.True(t, g.Match("security"))
	require.False(t, g.Match("forms"))
	require.Equal(t, "{general,security}", g.Pattern())
}
