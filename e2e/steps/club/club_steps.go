package club

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the suite context these steps need.
type TestContext interface {
	Request(method, path string, body any, actor string) error
	Status() int
	Body() string
	Field(path string) (any, error)
	Address(actor string) (string, error)
	Name(base string) string
}

// RegisterSteps registers club lifecycle and membership steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &clubSteps{tc: tc}

	ctx.Step(`^"(\w+)" creates the club "(\w+)"$`, steps.createClub)
	ctx.Step(`^"(\w+)" adds "(\w+)" to the roster of "(\w+)"$`, steps.addMember)
	ctx.Step(`^"(\w+)" removes "(\w+)" from the roster of "(\w+)"$`, steps.removeMember)
	ctx.Step(`^"(\w+)" sets the pass price of "(\w+)" to "(\d+)"$`, steps.setPassPrice)
	ctx.Step(`^"(\w+)" buys a pass for "(\w+)" paying "(\d+)"$`, steps.buyPass)
	ctx.Step(`^"(\w+)" confirms the inheritance of "(\w+)"$`, steps.confirmInheritance)
	ctx.Step(`^I look up the club "(\w+)"$`, steps.lookup)

	ctx.Step(`^"(\w+)" should be on the roster of "(\w+)"$`, steps.shouldBeOnRoster)
	ctx.Step(`^"(\w+)" should have a "(\w+)" membership in "(\w+)"$`, steps.shouldHaveMembership)
	ctx.Step(`^the club "(\w+)" should be administered by "(\w+)"$`, steps.administeredBy)
}

type clubSteps struct {
	tc TestContext
}

func (s *clubSteps) createClub(ctx context.Context, actor, name string) error {
	return s.tc.Request("POST", "/clubs", map[string]any{
		"name":     s.tc.Name(name),
		"metadata": map[string]string{"name": name, "symbol": "CLUB"},
	}, actor)
}

func (s *clubSteps) addMember(ctx context.Context, actor, member, name string) error {
	addr, err := s.tc.Address(member)
	if err != nil {
		return err
	}
	return s.tc.Request("POST", "/clubs/"+s.tc.Name(name)+"/roster", map[string]string{"member": addr}, actor)
}

func (s *clubSteps) removeMember(ctx context.Context, actor, member, name string) error {
	addr, err := s.tc.Address(member)
	if err != nil {
		return err
	}
	return s.tc.Request("DELETE", "/clubs/"+s.tc.Name(name)+"/roster/"+addr, nil, actor)
}

func (s *clubSteps) setPassPrice(ctx context.Context, actor, name, price string) error {
	return s.tc.Request("PUT", "/clubs/"+s.tc.Name(name)+"/passes/price", map[string]string{"price": price}, actor)
}

func (s *clubSteps) buyPass(ctx context.Context, actor, name, payment string) error {
	return s.tc.Request("POST", "/clubs/"+s.tc.Name(name)+"/passes", map[string]string{"payment": payment}, actor)
}

func (s *clubSteps) confirmInheritance(ctx context.Context, actor, name string) error {
	return s.tc.Request("POST", "/clubs/"+s.tc.Name(name)+"/inheritance/confirm", nil, actor)
}

func (s *clubSteps) lookup(ctx context.Context, name string) error {
	return s.tc.Request("GET", "/clubs/"+s.tc.Name(name), nil, "")
}

func (s *clubSteps) shouldBeOnRoster(ctx context.Context, member, name string) error {
	addr, err := s.tc.Address(member)
	if err != nil {
		return err
	}
	if err := s.tc.Request("GET", "/clubs/"+s.tc.Name(name)+"/roster/"+addr, nil, ""); err != nil {
		return err
	}
	v, err := s.tc.Field("member")
	if err != nil {
		return err
	}
	if v != true {
		return fmt.Errorf("%s is not on the roster of %s: %s", member, name, s.tc.Body())
	}
	return nil
}

func (s *clubSteps) shouldHaveMembership(ctx context.Context, member, kind, name string) error {
	addr, err := s.tc.Address(member)
	if err != nil {
		return err
	}
	if err := s.tc.Request("GET", "/clubs/"+s.tc.Name(name)+"/members/"+addr, nil, ""); err != nil {
		return err
	}
	v, err := s.tc.Field("classification.type")
	if err != nil {
		return err
	}
	if v != kind {
		return fmt.Errorf("%s in %s: expected %q membership, got %v", member, name, kind, v)
	}
	return nil
}

func (s *clubSteps) administeredBy(ctx context.Context, name, actor string) error {
	if err := s.lookup(ctx, name); err != nil {
		return err
	}
	want, err := s.tc.Address(actor)
	if err != nil {
		return err
	}
	got, err := s.tc.Field("admin")
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("club %s: expected admin %s, got %v", name, want, got)
	}
	return nil
}
