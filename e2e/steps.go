package e2e

import (
	"github.com/cucumber/godog"

	"claimdesk/e2e/steps/auth"
	"claimdesk/e2e/steps/claims"
	"claimdesk/e2e/steps/common"
)

// RegisterSteps wires every step package into a scenario.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	auth.RegisterSteps(ctx, tc)
	claims.RegisterSteps(ctx, tc)
}
