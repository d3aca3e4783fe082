// Package e2e drives a running clubdomains server through its HTTP API.
// Point E2E_BASE_URL at the server and set E2E_ADMIN_TOKEN to its
// ADMIN_API_TOKEN. The server should run with REGISTRY_MIN_COMMITMENT_AGE=1s.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// actors maps scenario names to fixed addresses.
var actors = map[string]string{
	"alice":   "0x000000000000000000000000000000000000000a",
	"bob":     "0x000000000000000000000000000000000000000b",
	"carol":   "0x000000000000000000000000000000000000000c",
	"mallory": "0x00000000000000000000000000000000000000ff",
}

// TestContext holds per-scenario state: issued tokens and the last response.
type TestContext struct {
	baseURL    string
	adminToken string
	client     *http.Client

	runID      string
	tokens     map[string]string
	lastStatus int
	lastBody   []byte
}

func NewTestContext() *TestContext {
	base := os.Getenv("E2E_BASE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	return &TestContext{
		baseURL:    strings.TrimRight(base, "/"),
		adminToken: os.Getenv("E2E_ADMIN_TOKEN"),
		client:     &http.Client{Timeout: 10 * time.Second},
		runID:      strconv.FormatInt(time.Now().UnixNano()%1e12, 36),
		tokens:     map[string]string{},
	}
}

// Name scopes a scenario name to this run so reruns against the same server
// never collide with earlier registrations.
func (tc *TestContext) Name(base string) string {
	return base + "_" + tc.runID
}

// Reset clears response state between scenarios. Tokens are kept.
func (tc *TestContext) Reset() {
	tc.lastStatus = 0
	tc.lastBody = nil
}

// Address returns the address for a named actor.
func (tc *TestContext) Address(actor string) (string, error) {
	addr, ok := actors[actor]
	if !ok {
		return "", fmt.Errorf("unknown actor %q", actor)
	}
	return addr, nil
}

// Request sends a JSON request as actor. An empty actor sends no credentials.
func (tc *TestContext) Request(method, path string, body any, actor string) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		token, err := tc.token(actor)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return tc.do(req)
}

func (tc *TestContext) do(req *http.Request) error {
	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

// token mints a caller token for actor through the operator API.
func (tc *TestContext) token(actor string) (string, error) {
	if t, ok := tc.tokens[actor]; ok {
		return t, nil
	}
	addr, err := tc.Address(actor)
	if err != nil {
		return "", err
	}
	raw, _ := json.Marshal(map[string]string{"caller": addr})
	req, err := http.NewRequest(http.MethodPost, tc.baseURL+"/admin/tokens", bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Token", tc.adminToken)
	resp, err := tc.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("issue token for %s: status %d", actor, resp.StatusCode)
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	tc.tokens[actor] = out.AccessToken
	return out.AccessToken, nil
}

func (tc *TestContext) Status() int { return tc.lastStatus }

func (tc *TestContext) Body() string { return string(tc.lastBody) }

// Field reads a dotted path ("classification.type") from the last JSON body.
func (tc *TestContext) Field(path string) (any, error) {
	var doc any
	if err := json.Unmarshal(tc.lastBody, &doc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	cur := doc
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", path, part)
		}
		if cur, ok = obj[part]; !ok {
			return nil, fmt.Errorf("field %q not in response: %s", path, tc.lastBody)
		}
	}
	return cur, nil
}
