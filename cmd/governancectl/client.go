package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/authz"
)

const (
	governanceAPIBase = "/api/governance/v1"
	auditAPIBase      = "/api/audit/v1"
)

type governanceClient struct {
	baseURL      string
	user         string
	roles        string
	businessUnit string
	token        string
	http         *http.Client
}

func newClient(opts *options) *governanceClient {
	return &governanceClient{
		baseURL:      opts.serverURL,
		user:         opts.user,
		roles:        opts.roles,
		businessUnit: opts.businessUnit,
		token:        opts.token,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError is a non-2xx response. Code is the server's error code when the
// body carried one.
type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server returned %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (c *governanceClient) getJSON(ctx context.Context, path string, v any) error {
	return c.do(ctx, http.MethodGet, path, nil, v)
}

func (c *governanceClient) postJSON(ctx context.Context, path string, body, v any) error {
	return c.do(ctx, http.MethodPost, path, body, v)
}

func (c *governanceClient) patchJSON(ctx context.Context, path string, body, v any) error {
	return c.do(ctx, http.MethodPatch, path, body, v)
}

func (c *governanceClient) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// do sends a request carrying the caller identity and decodes a 2xx JSON
// response into v when v is non-nil.
func (c *governanceClient) do(ctx context.Context, method, path string, body, v any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal error: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.user != "" {
		req.Header.Set(authz.HeaderUserEmail, c.user)
	}
	if c.roles != "" {
		req.Header.Set(authz.HeaderUserRoles, c.roles)
	}
	if c.businessUnit != "" {
		req.Header.Set(authz.HeaderBusinessUnit, c.businessUnit)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if v == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode error: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	e := &apiError{Status: resp.StatusCode, Message: string(bytes.TrimSpace(data))}
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil {
		e.Code = body.Code
		switch {
		case body.Message != "":
			e.Message = body.Message
		case body.Error != "":
			e.Message = body.Error
		}
	}
	return e
}
