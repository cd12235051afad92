package fetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID int
}

func staticIdentity(key string) Identity {
	return func() (string, bool) { return key, key != "" }
}

func TestLifecycleKeepsDataOnFailedRefetch(t *testing.T) {
	calls := 0
	resource := New(Options[[]record]{
		Name:     "evaluations",
		Identity: staticIdentity("user_1_ada"),
		Fetch: func(ctx context.Context, key string) ([]record, error) {
			calls++
			if calls == 1 {
				return []record{{ID: 1}, {ID: 2}}, nil
			}
			return nil, errors.New("backend unavailable")
		},
		ErrorMessage: func(err error) string { return "Failed to fetch evaluations" },
		Logger:       zerolog.Nop(),
	})

	initial := resource.State()
	require.True(t, initial.Loading())
	require.Empty(t, initial.Data)
	require.False(t, initial.HasData)

	state, err := resource.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, state.Status)
	require.False(t, state.Loading())
	require.Equal(t, []record{{ID: 1}, {ID: 2}}, state.Data)
	require.Empty(t, state.Error)

	state, err = resource.Refetch(context.Background())
	require.Error(t, err)
	require.Equal(t, StatusError, state.Status)
	require.False(t, state.Loading())
	require.Equal(t, []record{{ID: 1}, {ID: 2}}, state.Data)
	require.Equal(t, "Failed to fetch evaluations", state.Error)
}

func TestNoIdentityStaysIdle(t *testing.T) {
	fetched := false
	resource := New(Options[[]record]{
		Identity: staticIdentity(""),
		Fetch: func(ctx context.Context, key string) ([]record, error) {
			fetched = true
			return nil, nil
		},
		Logger: zerolog.Nop(),
	})

	require.Equal(t, StatusIdle, resource.State().Status)

	state, err := resource.Load(context.Background())
	require.ErrorIs(t, err, ErrNoIdentity)
	require.Equal(t, StatusIdle, state.Status)
	require.False(t, fetched)
}

func TestLatestIssuedFetchWins(t *testing.T) {
	var (
		mu      sync.Mutex
		calls   int
		gates   = []chan struct{}{make(chan struct{}), make(chan struct{})}
		started = make(chan struct{}, 2)
	)

	resource := New(Options[[]record]{
		Identity: staticIdentity("user_1_ada"),
		Fetch: func(ctx context.Context, key string) ([]record, error) {
			mu.Lock()
			n := calls
			calls++
			mu.Unlock()

			started <- struct{}{}
			<-gates[n]
			return []record{{ID: n + 1}}, nil
		},
		Logger: zerolog.Nop(),
	})

	firstErr := make(chan error, 1)
	go func() {
		_, err := resource.Load(context.Background())
		firstErr <- err
	}()
	<-started

	type result struct {
		state State[[]record]
		err   error
	}
	secondDone := make(chan result, 1)
	go func() {
		state, err := resource.Refetch(context.Background())
		secondDone <- result{state: state, err: err}
	}()
	<-started

	close(gates[1])
	second := <-secondDone
	require.NoError(t, second.err)
	require.Equal(t, []record{{ID: 2}}, second.state.Data)

	close(gates[0])
	select {
	case err := <-firstErr:
		require.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(time.Second):
		t.Fatal("superseded fetch did not return")
	}

	require.Equal(t, []record{{ID: 2}}, resource.State().Data)
	require.Equal(t, StatusSuccess, resource.State().Status)
}

func TestIdentityChangeDropsPreviousOwnersData(t *testing.T) {
	key := "user_1_ada"
	fail := false
	resource := New(Options[[]record]{
		Identity: func() (string, bool) { return key, true },
		Fetch: func(ctx context.Context, k string) ([]record, error) {
			if fail {
				return nil, errors.New("down")
			}
			return []record{{ID: 1}}, nil
		},
		Logger: zerolog.Nop(),
	})

	_, err := resource.Load(context.Background())
	require.NoError(t, err)

	key = "user_2_grace"
	fail = true
	state, err := resource.Load(context.Background())
	require.Error(t, err)
	require.False(t, state.HasData)
	require.Empty(t, state.Data)
}

func TestSeedMarksStaleUntilFreshData(t *testing.T) {
	resource := New(Options[[]record]{
		Identity: staticIdentity("user_1_ada"),
		Fetch: func(ctx context.Context, key string) ([]record, error) {
			return []record{{ID: 9}}, nil
		},
		Logger: zerolog.Nop(),
	})

	require.True(t, resource.Seed([]record{{ID: 1}}))
	require.True(t, resource.State().Stale)
	require.False(t, resource.Seed([]record{{ID: 2}}))

	state, err := resource.Load(context.Background())
	require.NoError(t, err)
	require.False(t, state.Stale)
	require.Equal(t, []record{{ID: 9}}, state.Data)
}

func TestSubscribeReceivesTransitions(t *testing.T) {
	var successKey string
	resource := New(Options[[]record]{
		Identity: staticIdentity("user_1_ada"),
		Fetch: func(ctx context.Context, key string) ([]record, error) {
			return []record{{ID: 1}}, nil
		},
		OnSuccess: func(ctx context.Context, key string, data []record) { successKey = key },
		Logger:    zerolog.Nop(),
	})

	updates, cancel := resource.Subscribe()
	defer cancel()

	require.Equal(t, StatusLoading, (<-updates).Status)

	_, err := resource.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "user_1_ada", successKey)

	require.Equal(t, StatusLoading, (<-updates).Status)
	final := <-updates
	require.Equal(t, StatusSuccess, final.Status)
	require.Equal(t, []record{{ID: 1}}, final.Data)
}

func TestCloseEndsSubscriptions(t *testing.T) {
	resource := New(Options[[]record]{
		Identity: staticIdentity("user_1_ada"),
		Fetch: func(ctx context.Context, key string) ([]record, error) {
			return nil, nil
		},
		Logger: zerolog.Nop(),
	})

	updates, cancel := resource.Subscribe()
	<-updates
	resource.Close()

	_, open := <-updates
	require.False(t, open)
	cancel()

	_, err := resource.Load(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}
