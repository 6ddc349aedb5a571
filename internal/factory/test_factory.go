package factory

import (
	"time"

	"github.com/leeschmalz/secret-hitler-role-assigner/internal/config"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/dependencies/mocks"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/storage/memory"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// Dev mode is on so the dev tools can be exercised.
func NewTestApp() *TestApp {
	cfg := config.Default()
	cfg.Env = "development"
	cfg.DevMode = true

	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app, err := newWithDependencies(cfg, memory.New(), mockClock, mockRandom, testutil.NopLogger())
	if err != nil {
		panic(err)
	}

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
