package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNameKeyFoldsCase(t *testing.T) {
	require.Equal(t, NameKey("Size"), NameKey("  SIZE "))
	require.NotEqual(t, NameKey("Size"), NameKey("Sizes"))
}

func TestAllNamesDifferent(t *testing.T) {
	require.True(t, AllNamesDifferent([]string{"S", "M", "L"}))
	require.False(t, AllNamesDifferent([]string{"Red", "Blue", "red"}))
	require.True(t, AllNamesDifferent(nil))
}
