// Package claims drives policies and the claim lifecycle.
package claims

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

type TestContext interface {
	Do(ctx context.Context, alias, method, path string, body any) error
	Status() int
	Body() string
	IDField(name string) (int64, error)
	UserID(alias string) (int64, error)
	SetClaimID(id int64)
	ClaimID() int64
	SetPolicyID(id int64)
	PolicyID() int64
}

const adminAlias = "administrator"

func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	s := &claimSteps{tc: tc}
	ctx.Step(`^the administrator creates a policy "([^"]*)" with coverage ([0-9.]+)$`, s.createPolicy)
	ctx.Step(`^"([^"]*)" submits a claim "([^"]*)" for ([0-9.]+)$`, s.submit)
	ctx.Step(`^"([^"]*)" moves the claim to "([^"]*)"$`, s.transition)
	ctx.Step(`^"([^"]*)" moves the claim from "([^"]*)" to "([^"]*)"$`, s.transitionFrom)
	ctx.Step(`^"([^"]*)" comments "([^"]*)" on the claim$`, s.comment)
	ctx.Step(`^the claim history should be "([^"]*)"$`, s.historyShouldBe)
}

type claimSteps struct {
	tc TestContext
}

func (s *claimSteps) createPolicy(ctx context.Context, name, coverage string) error {
	err := s.tc.Do(ctx, adminAlias, "POST", "/policy/add", map[string]any{
		"name":     name,
		"premium":  json.Number("100"),
		"coverage": json.Number(coverage),
	})
	if err != nil {
		return err
	}
	if s.tc.Status() != 201 {
		return fmt.Errorf("create policy: status %d: %s", s.tc.Status(), s.tc.Body())
	}
	id, err := s.tc.IDField("policyId")
	if err != nil {
		return err
	}
	s.tc.SetPolicyID(id)
	return nil
}

// submit files on behalf of alias. The claim id is kept only when the claim was created.
func (s *claimSteps) submit(ctx context.Context, alias, description, amount string) error {
	userID, err := s.tc.UserID(alias)
	if err != nil {
		return err
	}
	err = s.tc.Do(ctx, alias, "POST", "/claim/submit", map[string]any{
		"userId":      userID,
		"policyId":    s.tc.PolicyID(),
		"description": description,
		"amount":      json.Number(amount),
	})
	if err != nil || s.tc.Status() != 201 {
		return err
	}
	id, err := s.tc.IDField("claimId")
	if err != nil {
		return err
	}
	s.tc.SetClaimID(id)
	return nil
}

func (s *claimSteps) claimPath(suffix string) (string, error) {
	if s.tc.ClaimID() == 0 {
		return "", fmt.Errorf("no claim has been submitted in this scenario")
	}
	return fmt.Sprintf("/claim/%d%s", s.tc.ClaimID(), suffix), nil
}

func (s *claimSteps) transition(ctx context.Context, alias, status string) error {
	path, err := s.claimPath("/transition")
	if err != nil {
		return err
	}
	return s.tc.Do(ctx, alias, "POST", path, map[string]string{"requestedStatus": status})
}

func (s *claimSteps) transitionFrom(ctx context.Context, alias, expected, status string) error {
	path, err := s.claimPath("/transition")
	if err != nil {
		return err
	}
	return s.tc.Do(ctx, alias, "POST", path, map[string]string{
		"requestedStatus": status,
		"expectedStatus":  expected,
	})
}

func (s *claimSteps) comment(ctx context.Context, alias, body string) error {
	path, err := s.claimPath("/comments")
	if err != nil {
		return err
	}
	return s.tc.Do(ctx, alias, "POST", path, map[string]string{"body": body})
}

// historyShouldBe compares the "to" statuses of the claim history, comma separated.
func (s *claimSteps) historyShouldBe(ctx context.Context, want string) error {
	path, err := s.claimPath("")
	if err != nil {
		return err
	}
	if err := s.tc.Do(ctx, adminAlias, "GET", path, nil); err != nil {
		return err
	}
	var detail struct {
		History []struct {
			To string `json:"to"`
		} `json:"history"`
	}
	if err := json.Unmarshal([]byte(s.tc.Body()), &detail); err != nil {
		return fmt.Errorf("decode claim: %w", err)
	}
	got := make([]string, 0, len(detail.History))
	for _, h := range detail.History {
		got = append(got, h.To)
	}
	if strings.Join(got, ",") != want {
		return fmt.Errorf("expected history %q, got %q", want, strings.Join(got, ","))
	}
	return nil
}
