package stats

import "github.com/stretchr/testify/mock"

var (
	_ StatsProvider = (*MockStatsUpdater)(nil)
	_ StatsProvider = NopStats{}
)

type MockStatsUpdater struct {
	mock.Mock
}

// ExpectAny accepts any number of updates to every listing metric, for tests
// that do not care about counts.
func (m *MockStatsUpdater) ExpectAny() *MockStatsUpdater {
	m.On("Incr", mock.Anything).Return().Maybe()
	m.On("Decr", mock.Anything).Return().Maybe()
	return m
}

func (m *MockStatsUpdater) Incr(name string) {
	m.Called(name)
}

func (m *MockStatsUpdater) Decr(name string) {
	m.Called(name)
}

func (m *MockStatsUpdater) RegisterMetric(name string) {
	m.Called(name)
}

func (m *MockStatsUpdater) Run() {
	m.Called()
}

// NopStats discards every update. Commands that run a single operation use it
// in place of a StatsUpdater.
type NopStats struct{}

func (NopStats) Incr(string)           {}
func (NopStats) Decr(string)           {}
func (NopStats) RegisterMetric(string) {}
func (NopStats) Run()                  {}
