package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestStartup_StartsInDependencyOrderAndStopsInReverse(t *testing.T) {
	var events []string
	dep := func(name string, requires ...string) *Dependency {
		return &Dependency{
			Name:     name,
			Requires: requires,
			StartFunc: func(context.Context) error {
				events = append(events, "start:"+name)
				return nil
			},
			StopFunc: func(context.Context) error {
				events = append(events, "stop:"+name)
				return nil
			},
		}
	}

	s := NewStartup(testLogger(), 1)
	s.AddDependency(dep("http", "migrations", "database"))
	s.AddDependency(dep("migrations", "database"))
	s.AddDependency(dep("database"))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"start:database", "start:migrations", "start:http"}, events)
	assert.Equal(t, StartupStatusStarted, s.Status("http"))

	events = nil
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"stop:http", "stop:migrations", "stop:database"}, events)
	assert.Equal(t, StartupStatusStopped, s.Status("database"))
}

func TestStartup_RetriesUntilDependencyStarts(t *testing.T) {
	calls := 0
	s := NewStartup(testLogger(), 3)
	s.unit = time.Millisecond
	s.AddDependency(&Dependency{
		Name: "kafka",
		StartFunc: func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("broker unavailable")
			}
			return nil
		},
	})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 3, calls)
}

func TestStartup_FailsAfterMaxAttempts(t *testing.T) {
	s := NewStartup(testLogger(), 2)
	s.unit = time.Millisecond
	s.AddDependency(&Dependency{
		Name:      "redis",
		StartFunc: func(context.Context) error { return errors.New("connection refused") },
	})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, StartupStatusFailed, s.Status("redis"))
}

func TestStartup_UnknownDependency(t *testing.T) {
	s := NewStartup(testLogger(), 1)
	s.AddDependency(&Dependency{Name: "http", Requires: []string{"database"}})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown startup dependency 'database'")
}
