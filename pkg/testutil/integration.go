package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// IntegrationTestSuite provides base functionality for tests that talk to a
// real backend. The suite is skipped unless every variable in RequiredEnv
// is set.
type IntegrationTestSuite struct {
	suite.Suite
	RequiredEnv []string

	ctx       context.Context
	cancel    context.CancelFunc
	env       map[string]string
	startTime time.Time
}

// SetupSuite runs before all tests in the suite
func (s *IntegrationTestSuite) SetupSuite() {
	if testing.Short() {
		s.T().Skip("skipping integration test in short mode")
	}

	s.env = make(map[string]string, len(s.RequiredEnv))
	for _, name := range s.RequiredEnv {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			s.T().Skipf("skipping integration test: %s is not set", name)
		}
		s.env[name] = v
	}

	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Minute)
	s.startTime = time.Now()
}

// TearDownSuite runs after all tests in the suite
func (s *IntegrationTestSuite) TearDownSuite() {
	if s.cancel != nil {
		s.cancel()
	}
	if !s.startTime.IsZero() {
		s.T().Logf("integration suite completed in %v", time.Since(s.startTime))
	}
}

// Context returns the suite context
func (s *IntegrationTestSuite) Context() context.Context {
	return s.ctx
}

// Env returns the value of a required environment variable
func (s *IntegrationTestSuite) Env(name string) string {
	return s.env[name]
}
