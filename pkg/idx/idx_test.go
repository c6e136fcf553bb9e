package idx_test

import (
	"testing"
	"time"

	"github.com/kommerce/tradegate/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestNewProducesValidULID(t *testing.T) {
	id := idx.New()
	require.False(t, id.IsZero())

	parsed, err := idx.Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestNewIsMonotonicWithinSameMillisecond(t *testing.T) {
	at := time.Now().UTC()

	a := idx.NewAt(at)
	b := idx.NewAt(at)
	require.Less(t, a.String(), b.String())
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "   ", "not-a-ulid", "0000"} {
		_, err := idx.Parse(s)
		require.ErrorIs(t, err, idx.ErrInvalid)
	}
}
