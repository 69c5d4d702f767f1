package checkpoint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/agiloop/agimsg"
)

func TestSaveAndLoadStepsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, DialectSQLite, ":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveStep(ctx, "thread-1", agimsg.NewThoughtStep(1, "first")))
	require.NoError(t, store.SaveStep(ctx, "thread-1", agimsg.NewThoughtStep(2, "second")))

	steps, err := store.LoadSteps(ctx, "thread-1")
	require.NoError(t, err)
	require.Len(t, steps, 2)
	require.Equal(t, "first", steps[0].Thought)
	require.Equal(t, "second", steps[1].Thought)
}
