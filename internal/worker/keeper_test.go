package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/wechat-article-search/library/log"
)

type stubHealer struct {
	calls  int32
	healed bool
	err    error
}

func (s *stubHealer) Heal(context.Context) (bool, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.healed, s.err
}

func (s *stubHealer) Calls() int {
	return int(atomic.LoadInt32(&s.calls))
}

func TestNewKeeperValidates(t *testing.T) {
	_, err := NewKeeper(nil, "@every 5m", log.Logger)
	require.Error(t, err)

	_, err = NewKeeper(&stubHealer{}, "@every 5m", nil)
	require.Error(t, err)

	_, err = NewKeeper(&stubHealer{}, "every five minutes", log.Logger)
	require.Error(t, err)

	_, err = NewKeeper(&stubHealer{}, "*/5 * * * *", log.Logger)
	require.NoError(t, err)
}

func TestKeeperCheck(t *testing.T) {
	tests := []struct {
		name   string
		healer *stubHealer
		want   bool
	}{
		{name: "healthy", healer: &stubHealer{}, want: false},
		{name: "relaunched", healer: &stubHealer{healed: true}, want: true},
		{name: "relaunch failed", healer: &stubHealer{healed: true, err: errors.New("launch")}, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			k, err := NewKeeper(tc.healer, "@every 1m", log.Logger)
			require.NoError(t, err)

			require.Equal(t, tc.want, k.Check(context.Background()))
			require.Equal(t, 1, tc.healer.Calls())
		})
	}
}

func TestKeeperCheckSkipsAfterCancel(t *testing.T) {
	healer := &stubHealer{}
	k, err := NewKeeper(healer, "@every 1m", log.Logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.False(t, k.Check(ctx))
	require.Zero(t, healer.Calls())
}

func TestKeeperRunSchedulesChecks(t *testing.T) {
	healer := &stubHealer{}
	k, err := NewKeeper(healer, "@every 1s", log.Logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- k.Run(ctx) }()

	require.Eventually(t, func() bool { return healer.Calls() >= 1 }, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("keeper did not stop")
	}
}
