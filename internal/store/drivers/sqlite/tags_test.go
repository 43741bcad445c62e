package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetOrCreateTagConverges(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.Tags().GetOrCreateTag(ctx, "maths", "hsl(120, 70%, 50%)")
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	require.Equal(t, "maths", first.Name)

	// Second caller with a different colour gets the original row back.
	second, err := s.Tags().GetOrCreateTag(ctx, "maths", "hsl(10, 70%, 50%)")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.Colour, second.Colour)
}
