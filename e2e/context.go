// Package e2e runs the Gherkin features under features/ against a live
// claimdesk server. Scenarios get fresh usernames so a shared database can be
// reused between runs.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// AdminAlias names the bootstrap administrator in steps.
const AdminAlias = "administrator"

// TestContext is the per-run HTTP client plus the state one scenario builds up.
type TestContext struct {
	baseURL       string
	client        *http.Client
	adminUsername string
	adminPassword string

	suffix   string
	tokens   map[string]string
	userIDs  map[string]int64
	claimID  int64
	policyID int64

	status int
	body   []byte
}

func NewTestContext(baseURL, adminUsername, adminPassword string) *TestContext {
	tc := &TestContext{
		baseURL:       strings.TrimRight(baseURL, "/"),
		client:        &http.Client{Timeout: 10 * time.Second},
		adminUsername: adminUsername,
		adminPassword: adminPassword,
	}
	tc.Reset()
	return tc
}

// Reset forgets everything from the previous scenario.
func (tc *TestContext) Reset() {
	tc.suffix = strconv.FormatInt(time.Now().UnixNano(), 36)
	tc.tokens = make(map[string]string)
	tc.userIDs = make(map[string]int64)
	tc.claimID, tc.policyID = 0, 0
	tc.status, tc.body = 0, nil
}

// Username maps a step alias to the account name used on the server.
func (tc *TestContext) Username(alias string) string {
	if alias == AdminAlias {
		return tc.adminUsername
	}
	return alias + "_" + tc.suffix
}

func (tc *TestContext) AdminPassword() string { return tc.adminPassword }

// Do sends body as JSON on behalf of alias. An empty alias sends no token.
func (tc *TestContext) Do(ctx context.Context, alias, method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, tc.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := tc.tokens[alias]; alias != "" && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	tc.body, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s response: %w", method, path, err)
	}
	tc.status = resp.StatusCode
	return nil
}

func (tc *TestContext) Status() int { return tc.status }

func (tc *TestContext) Body() string { return string(tc.body) }

// Field reads a top-level field of the last JSON object response.
func (tc *TestContext) Field(name string) (any, error) {
	var obj map[string]any
	if err := json.Unmarshal(tc.body, &obj); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %s", tc.body)
	}
	v, ok := obj[name]
	if !ok {
		return nil, fmt.Errorf("response has no field %q: %s", name, tc.body)
	}
	return v, nil
}

// IDField reads a numeric id from the last response.
func (tc *TestContext) IDField(name string) (int64, error) {
	v, err := tc.Field(name)
	if err != nil {
		return 0, err
	}
	n, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("field %q is %T, not a number", name, v)
	}
	return int64(n), nil
}

func (tc *TestContext) SetToken(alias, token string) { tc.tokens[alias] = token }

func (tc *TestContext) SetUserID(alias string, id int64) { tc.userIDs[alias] = id }

func (tc *TestContext) UserID(alias string) (int64, error) {
	id, ok := tc.userIDs[alias]
	if !ok {
		return 0, fmt.Errorf("no user registered as %q in this scenario", alias)
	}
	return id, nil
}

func (tc *TestContext) SetClaimID(id int64)  { tc.claimID = id }
func (tc *TestContext) ClaimID() int64       { return tc.claimID }
func (tc *TestContext) SetPolicyID(id int64) { tc.policyID = id }
func (tc *TestContext) PolicyID() int64      { return tc.policyID }
