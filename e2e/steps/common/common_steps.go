// Package common holds assertions shared by every feature.
package common

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the e2e context these steps need.
type TestContext interface {
	Do(ctx context.Context, alias, method, path string, body any) error
	Status() int
	Body() string
	Field(name string) (any, error)
	Username(alias string) string
	AdminPassword() string
	SetToken(alias, token string)
}

const adminAlias = "administrator"

func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	s := &commonSteps{tc: tc}
	ctx.Step(`^the administrator is logged in$`, s.adminLoggedIn)
	ctx.Step(`^the response status should be (\d+)$`, s.statusShouldBe)
	ctx.Step(`^the error code should be "([^"]*)"$`, s.errorCodeShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, s.fieldShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be the username of "([^"]*)"$`, s.fieldShouldBeUsername)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) adminLoggedIn(ctx context.Context) error {
	err := s.tc.Do(ctx, "", "POST", "/auth/login", map[string]string{
		"username": s.tc.Username(adminAlias),
		"password": s.tc.AdminPassword(),
	})
	if err != nil {
		return err
	}
	if s.tc.Status() != 200 {
		return fmt.Errorf("admin login failed with %d: %s", s.tc.Status(), s.tc.Body())
	}
	token, err := s.tc.Field("token")
	if err != nil {
		return err
	}
	s.tc.SetToken(adminAlias, fmt.Sprint(token))
	return nil
}

func (s *commonSteps) statusShouldBe(_ context.Context, want int) error {
	if got := s.tc.Status(); got != want {
		return fmt.Errorf("expected status %d, got %d: %s", want, got, s.tc.Body())
	}
	return nil
}

func (s *commonSteps) errorCodeShouldBe(ctx context.Context, want string) error {
	return s.fieldShouldBe(ctx, "error", want)
}

func (s *commonSteps) fieldShouldBe(_ context.Context, name, want string) error {
	v, err := s.tc.Field(name)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("expected %s %q, got %q", name, want, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldBeUsername(ctx context.Context, name, alias string) error {
	return s.fieldShouldBe(ctx, name, s.tc.Username(alias))
}
