package common

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the suite context these steps need.
type TestContext interface {
	Request(method, path string, body any, actor string) error
	Status() int
	Body() string
	Field(path string) (any, error)
}

// RegisterSteps registers generic request and assertion steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the server is healthy$`, steps.serverIsHealthy)
	ctx.Step(`^I wait (\d+) seconds?$`, steps.wait)
	ctx.Step(`^an anonymous client sends (GET|POST|DELETE) "([^"]*)"$`, steps.anonymousRequest)

	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.fieldShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be (true|false)$`, steps.fieldShouldBeBool)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) serverIsHealthy(ctx context.Context) error {
	if err := s.tc.Request("GET", "/health", nil, ""); err != nil {
		return err
	}
	return s.statusShouldBe(ctx, 200)
}

func (s *commonSteps) wait(ctx context.Context, seconds int) error {
	select {
	case <-time.After(time.Duration(seconds) * time.Second):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *commonSteps) anonymousRequest(ctx context.Context, method, path string) error {
	return s.tc.Request(method, path, nil, "")
}

func (s *commonSteps) statusShouldBe(ctx context.Context, want int) error {
	if got := s.tc.Status(); got != want {
		return fmt.Errorf("expected status %d, got %d: %s", want, got, s.tc.Body())
	}
	return nil
}

func (s *commonSteps) fieldShouldBe(ctx context.Context, path, want string) error {
	v, err := s.tc.Field(path)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("field %q: expected %q, got %q", path, want, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldBeBool(ctx context.Context, path, want string) error {
	v, err := s.tc.Field(path)
	if err != nil {
		return err
	}
	b, ok := v.(bool)
	if !ok {
		return fmt.Errorf("field %q is not a boolean: %v", path, v)
	}
	if fmt.Sprint(b) != want {
		return fmt.Errorf("field %q: expected %s, got %t", path, want, b)
	}
	return nil
}
