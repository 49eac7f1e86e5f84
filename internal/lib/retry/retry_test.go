package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

func fastPolicy(attempts int) Policy {
	return Policy{Attempts: attempts, Delay: time.Millisecond}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_Exhausted(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		calls++
		return errFlaky
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	t.Parallel()

	errSoldOut := errors.New("sold out")
	calls := 0
	err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		calls++
		return Permanent(errSoldOut)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, errSoldOut)
	assert.NotErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, calls)
}

func TestDoValue_ReturnsValue(t *testing.T) {
	t.Parallel()

	calls := 0
	v, err := DoValue(context.Background(), fastPolicy(3), func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errFlaky
		}
		return "registered", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "registered", v)
	assert.Equal(t, 2, calls)
}

func TestDo_OnRetryCalledBetweenAttempts(t *testing.T) {
	t.Parallel()

	var notified int
	p := fastPolicy(3)
	p.OnRetry = func(err error, next time.Duration) {
		notified++
		assert.ErrorIs(t, err, errFlaky)
	}

	_ = Do(context.Background(), p, func(ctx context.Context) error {
		return errFlaky
	})

	assert.Equal(t, 2, notified)
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), Policy{}, func(ctx context.Context) error {
		calls++
		return errFlaky
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
