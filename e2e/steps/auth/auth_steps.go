// Package auth drives registration, login, logout and role changes.
package auth

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

type TestContext interface {
	Do(ctx context.Context, alias, method, path string, body any) error
	Status() int
	Body() string
	Field(name string) (any, error)
	IDField(name string) (int64, error)
	Username(alias string) string
	SetToken(alias, token string)
	SetUserID(alias string, id int64)
	UserID(alias string) (int64, error)
}

const (
	password   = "correct horse battery"
	adminAlias = "administrator"
)

func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	s := &authSteps{tc: tc}
	ctx.Step(`^a registered user "([^"]*)"$`, s.registeredUser)
	ctx.Step(`^a registered user "([^"]*)" with role "([^"]*)"$`, s.registeredUserWithRole)
	ctx.Step(`^someone registers "([^"]*)" again$`, s.registerAgain)
	ctx.Step(`^"([^"]*)" logs in with the right password$`, s.logIn)
	ctx.Step(`^"([^"]*)" fails to log in (\d+) times$`, s.failLogins)
	ctx.Step(`^"([^"]*)" requests the current profile$`, s.me)
	ctx.Step(`^"([^"]*)" logs out$`, s.logOut)
}

type authSteps struct {
	tc TestContext
}

func (s *authSteps) register(ctx context.Context, alias string) error {
	username := s.tc.Username(alias)
	return s.tc.Do(ctx, "", "POST", "/auth/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": password,
	})
}

// registeredUser registers alias and logs in so later steps can act as it.
func (s *authSteps) registeredUser(ctx context.Context, alias string) error {
	if err := s.register(ctx, alias); err != nil {
		return err
	}
	if s.tc.Status() != 201 {
		return fmt.Errorf("register %s: status %d: %s", alias, s.tc.Status(), s.tc.Body())
	}
	id, err := s.tc.IDField("userId")
	if err != nil {
		return err
	}
	s.tc.SetUserID(alias, id)

	if err := s.logIn(ctx, alias); err != nil {
		return err
	}
	if s.tc.Status() != 200 {
		return fmt.Errorf("log in %s: status %d: %s", alias, s.tc.Status(), s.tc.Body())
	}
	return nil
}

func (s *authSteps) registeredUserWithRole(ctx context.Context, alias, role string) error {
	if err := s.registeredUser(ctx, alias); err != nil {
		return err
	}
	id, err := s.tc.UserID(alias)
	if err != nil {
		return err
	}
	if err := s.tc.Do(ctx, adminAlias, "POST", fmt.Sprintf("/admin/users/%d/role", id), map[string]string{"role": role}); err != nil {
		return err
	}
	if s.tc.Status() != 200 {
		return fmt.Errorf("promote %s to %s: status %d: %s", alias, role, s.tc.Status(), s.tc.Body())
	}
	return nil
}

func (s *authSteps) registerAgain(ctx context.Context, alias string) error {
	return s.register(ctx, alias)
}

// logIn keeps the token when the login succeeds and leaves the response for assertions.
func (s *authSteps) logIn(ctx context.Context, alias string) error {
	err := s.tc.Do(ctx, "", "POST", "/auth/login", map[string]string{
		"username": s.tc.Username(alias),
		"password": password,
	})
	if err != nil || s.tc.Status() != 200 {
		return err
	}
	token, err := s.tc.Field("token")
	if err != nil {
		return err
	}
	s.tc.SetToken(alias, fmt.Sprint(token))
	return nil
}

func (s *authSteps) failLogins(ctx context.Context, alias string, n int) error {
	for i := range n {
		err := s.tc.Do(ctx, "", "POST", "/auth/login", map[string]string{
			"username": s.tc.Username(alias),
			"password": "not the password",
		})
		if err != nil {
			return err
		}
		if s.tc.Status() != 401 {
			return fmt.Errorf("failed login %d: expected 401, got %d", i+1, s.tc.Status())
		}
	}
	return nil
}

func (s *authSteps) me(ctx context.Context, alias string) error {
	return s.tc.Do(ctx, alias, "GET", "/auth/me", nil)
}

func (s *authSteps) logOut(ctx context.Context, alias string) error {
	return s.tc.Do(ctx, alias, "POST", "/auth/logout", nil)
}
