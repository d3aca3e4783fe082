package e2e

import (
	"github.com/cucumber/godog"

	"clubdomains/e2e/steps/club"
	"clubdomains/e2e/steps/common"
	"clubdomains/e2e/steps/registry"
)

// RegisterSteps registers all step definitions from modular packages.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	registry.RegisterSteps(ctx, tc)
	club.RegisterSteps(ctx, tc)
}
