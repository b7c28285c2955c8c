package longpoll

import (
	"context"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/require"
)

func TestSource(t *testing.T) {
	defer leaktest.Check(t)()

	var (
		ctx, cancel = context.WithCancel(context.Background())
		mb          = NewMailbox()
		src         = NewSource(mb, Letters(), 10*time.Millisecond)
		done        = make(chan error)
	)

	go func() { done <- src.Start(ctx) }()

	require.Eventually(t, func() bool {
		return mb.Stats().Writes >= 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	item, ok := mb.TryRead()
	require.True(t, ok)
	require.Contains(t, letters, item.Data)
}

func TestSourceTimestampsAtProduction(t *testing.T) {
	var (
		mb  = NewMailbox()
		src = NewSource(mb, RandomFloat(), time.Hour)
		at  = time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	)

	src.now = func() time.Time { return at }

	produced := src.Produce()

	got, ok := mb.TryRead()
	require.True(t, ok)
	require.Equal(t, produced, got)
	require.Equal(t, at, got.Timestamp)
	require.IsType(t, float64(0), got.Data)
}

func TestItemJSON(t *testing.T) {
	at := time.Date(2020, 1, 2, 3, 4, 5, 6000000, time.UTC)

	b, err := NewItem("X", at).MarshalJSON()
	require.NoError(t, err)
	require.JSONEq(t, `{"timestamp": "2020-01-02T03:04:05.006Z", "data": "X"}`, string(b))

	parsed, err := ParseTimestamp("2020-01-02T03:04:05.006Z")
	require.NoError(t, err)
	require.True(t, at.Equal(parsed))
}
