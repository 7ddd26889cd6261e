package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestConnectWithRetryFirstAttemptHasNoDelay(t *testing.T) {
	want := &gorm.DB{}
	start := time.Now()

	got, err := connectWithRetry(func() (*gorm.DB, error) { return want, nil })

	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestConnectWithRetryRecoversAfterFailures(t *testing.T) {
	calls := 0

	got, err := connectWithRetry(func() (*gorm.DB, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection refused")
		}
		return &gorm.DB{}, nil
	})

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Equal(t, 3, calls)
}

func TestConnectWithRetryGivesUpAfterSchedule(t *testing.T) {
	calls := 0

	_, err := connectWithRetry(func() (*gorm.DB, error) {
		calls++
		return nil, errors.New("connection refused")
	})

	assert.Error(t, err)
	assert.Equal(t, len(dbRetryBackoff)+1, calls)
}
