package registry

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/cucumber/godog"
)

const oneEther = "1000000000000000000"

// TestContext is the slice of the suite context these steps need.
type TestContext interface {
	Request(method, path string, body any, actor string) error
	Status() int
	Body() string
	Field(path string) (any, error)
	Address(actor string) (string, error)
	Name(base string) string
}

// RegisterSteps registers commit/reveal and ownership steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &registrySteps{tc: tc}

	ctx.Step(`^"(\w+)" commits to "(\w+)" with secret "([^"]*)"$`, steps.commit)
	ctx.Step(`^"(\w+)" reveals "(\w+)" with secret "([^"]*)"$`, steps.reveal)
	ctx.Step(`^"(\w+)" has registered "(\w+)"$`, steps.hasRegistered)
	ctx.Step(`^"(\w+)" transfers the domain "(\w+)" to "(\w+)"$`, steps.transfer)
	ctx.Step(`^I look up the domain "(\w+)"$`, steps.lookup)
	ctx.Step(`^the domain "(\w+)" should be owned by "(\w+)"$`, steps.ownedBy)
}

type registrySteps struct {
	tc TestContext
}

func secretHex(secret string) string {
	return "0x" + hex.EncodeToString([]byte(secret))
}

func (s *registrySteps) commit(ctx context.Context, actor, name, secret string) error {
	owner, err := s.tc.Address(actor)
	if err != nil {
		return err
	}
	if err := s.tc.Request("POST", "/registry/commitments/compute", map[string]string{
		"name":   s.tc.Name(name),
		"owner":  owner,
		"secret": secretHex(secret),
	}, ""); err != nil {
		return err
	}
	hash, err := s.tc.Field("commitment")
	if err != nil {
		return err
	}
	return s.tc.Request("POST", "/registry/commitments", map[string]any{"commitment": hash}, actor)
}

func (s *registrySteps) reveal(ctx context.Context, actor, name, secret string) error {
	owner, err := s.tc.Address(actor)
	if err != nil {
		return err
	}
	return s.tc.Request("POST", "/registry/domains", map[string]any{
		"name":    s.tc.Name(name),
		"owner":   owner,
		"secret":  secretHex(secret),
		"years":   1,
		"payment": oneEther,
	}, actor)
}

// hasRegistered runs the full commit, wait, reveal sequence.
func (s *registrySteps) hasRegistered(ctx context.Context, actor, name string) error {
	secret := "setup-" + name
	if err := s.commit(ctx, actor, name, secret); err != nil {
		return err
	}
	if s.tc.Status() != 202 {
		return fmt.Errorf("commit %s: status %d: %s", name, s.tc.Status(), s.tc.Body())
	}
	if err := waitCommitmentAge(ctx); err != nil {
		return err
	}
	if err := s.reveal(ctx, actor, name, secret); err != nil {
		return err
	}
	if s.tc.Status() != 201 {
		return fmt.Errorf("register %s: status %d: %s", name, s.tc.Status(), s.tc.Body())
	}
	return nil
}

func (s *registrySteps) transfer(ctx context.Context, actor, name, to string) error {
	addr, err := s.tc.Address(to)
	if err != nil {
		return err
	}
	return s.tc.Request("POST", "/registry/domains/"+s.tc.Name(name)+"/transfer", map[string]string{"to": addr}, actor)
}

func (s *registrySteps) lookup(ctx context.Context, name string) error {
	return s.tc.Request("GET", "/registry/domains/"+s.tc.Name(name), nil, "")
}

func (s *registrySteps) ownedBy(ctx context.Context, name, actor string) error {
	if err := s.lookup(ctx, name); err != nil {
		return err
	}
	want, err := s.tc.Address(actor)
	if err != nil {
		return err
	}
	got, err := s.tc.Field("owner")
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("domain %s: expected owner %s, got %v", name, want, got)
	}
	return nil
}
