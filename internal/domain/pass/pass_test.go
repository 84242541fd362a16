package pass

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestPassNames verifies the descriptor comes first followed by assets in order.
func TestPassNames(t *testing.T) {
	t.Parallel()

	p := &Pass{
		Descriptor: []byte("{}"),
		Assets: []Asset{
			{Name: "icon.png", Content: []byte("i")},
			{Name: "logo.png", Content: []byte("l")},
		},
	}

	require.Equal(t, []string{"pass.json", "icon.png", "logo.png"}, p.Names())
}

// TestPassClone ensures Clone produces an independent deep copy.
func TestPassClone(t *testing.T) {
	t.Parallel()

	original := &Pass{
		Descriptor: []byte("{}"),
		Assets:     []Asset{{Name: "icon.png", Content: []byte("icon")}},
	}

	cloned := original.Clone()
	require.Equal(t, original, cloned)

	cloned.Descriptor[0] = '['
	cloned.Assets[0].Content[0] = 'X'

	require.Equal(t, []byte("{}"), original.Descriptor)
	require.Equal(t, []byte("icon"), original.Assets[0].Content)
}

// TestIsReservedName checks generated entry names are reserved.
func TestIsReservedName(t *testing.T) {
	t.Parallel()

	require.True(t, IsReservedName("pass.json"))
	require.True(t, IsReservedName("manifest.json"))
	require.True(t, IsReservedName("signature"))
	require.False(t, IsReservedName("Pass.json"))
	require.False(t, IsReservedName("icon.png"))
}

// TestStageError verifies stage tagging keeps the sentinel reachable.
func TestStageError(t *testing.T) {
	t.Parallel()

	require.NoError(t, AtStage(StageSign, nil))

	err := AtStage(StageSign, fmt.Errorf("decode bundle: %w", ErrBadCredentials))
	require.ErrorIs(t, err, ErrBadCredentials)
	require.EqualError(t, err, "sign: decode bundle: bad signing credentials")

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	require.Equal(t, StageSign, stageErr.Stage)
}
