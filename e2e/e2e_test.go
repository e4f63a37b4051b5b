//go:build e2e

package e2e

import (
	"context"
	"os"
	"testing"

	"github.com/cucumber/godog"
)

// TestFeatures needs a running server:
//
//	CLAIMDESK_E2E_URL=http://localhost:8080 go test -tags e2e ./...
//
// The server's bootstrap admin must match E2E_ADMIN_USERNAME and E2E_ADMIN_PASSWORD.
func TestFeatures(t *testing.T) {
	baseURL := os.Getenv("CLAIMDESK_E2E_URL")
	if baseURL == "" {
		t.Skip("CLAIMDESK_E2E_URL not set")
	}
	tc := NewTestContext(baseURL, envOr("E2E_ADMIN_USERNAME", "root"), envOr("E2E_ADMIN_PASSWORD", "correct horse battery"))

	suite := godog.TestSuite{
		Name: "claimdesk",
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
				tc.Reset()
				return ctx, nil
			})
			RegisterSteps(sc, tc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Tags:     os.Getenv("E2E_TAGS"),
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("e2e scenarios failed")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
