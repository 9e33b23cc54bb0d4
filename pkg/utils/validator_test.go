package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeNickname(t *testing.T) {
	nickname, normalized := NormalizeNickname("  Kim_Dokja ")
	require.Equal(t, "Kim_Dokja", nickname)
	require.Equal(t, "kim_dokja", normalized)

	nickname, normalized = NormalizeNickname(" \t")
	require.Empty(t, nickname)
	require.Empty(t, normalized)
}

func TestValidateNickname(t *testing.T) {
	require.NoError(t, ValidateNickname("alice"))
	require.NoError(t, ValidateNickname("독자"))
	require.NoError(t, ValidateNickname("a.b"))

	for _, bad := range []string{"", "a/b", ".", "..", "__init__", strings.Repeat("x", 1501)} {
		require.Error(t, ValidateNickname(bad), bad)
	}
}

func TestNormalizeCommentText(t *testing.T) {
	text, err := NormalizeCommentText("  great episode \n")
	require.NoError(t, err)
	require.Equal(t, "great episode", text)

	_, err = NormalizeCommentText("   ")
	require.Error(t, err)
}
