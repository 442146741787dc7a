package audit

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// maxPeekBytes bounds how much of a transition body is read to find the edge.
const maxPeekBytes = 64 << 10

// resourceTypes are the governed collections under the governance API.
var resourceTypes = map[string]bool{
	"use-cases":   true,
	"mcp-servers": true,
}

// pathSegments splits path after the /api/governance/{version} prefix.
// Paths outside the governance API yield nil.
func pathSegments(path string) []string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 || parts[0] != "api" || parts[1] != "governance" {
		return nil
	}
	return parts[3:]
}

// extractResourceType returns "use-cases" or "mcp-servers" for governance
// entity paths, or "" otherwise.
func extractResourceType(path string) string {
	segs := pathSegments(path)
	if len(segs) == 0 || !resourceTypes[segs[0]] {
		return ""
	}
	return segs[0]
}

// extractResourceID returns the entity id from paths like
// /api/governance/v1/use-cases/{id}/transition.
func extractResourceID(path string) string {
	segs := pathSegments(path)
	if len(segs) < 2 || !resourceTypes[segs[0]] {
		return ""
	}
	return segs[1]
}

// extractActionVerb names the mutation. Transitions are named by their edge,
// e.g. "transition:approve".
func extractActionVerb(method, path, edge string) string {
	segs := pathSegments(path)
	if len(segs) >= 3 && segs[2] == "transition" {
		if edge == "" {
			return "transition"
		}
		return "transition:" + strings.ToLower(strings.TrimSpace(edge))
	}

	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut:
		return "update"
	case http.MethodPatch:
		return "patch"
	case http.MethodDelete:
		return "delete"
	default:
		return strings.ToLower(method)
	}
}

// peekEdge reads the "edge" field of a transition request body and restores
// the body for the handler.
func peekEdge(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	b, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
	rest := r.Body
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(b), rest), rest}
	if err != nil {
		return ""
	}
	var body struct {
		Edge string `json:"edge"`
	}
	if json.Unmarshal(b, &body) != nil {
		return ""
	}
	return body.Edge
}

// isAudited reports whether the request is a governance mutation.
// Reads are never audited.
func isAudited(method, path string) bool {
	if isHealthEndpoint(path) || pathSegments(path) == nil {
		return false
	}
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// isHealthEndpoint returns true for health-check paths.
func isHealthEndpoint(path string) bool {
	switch path {
	case "/livez", "/readyz", "/healthz":
		return true
	}
	return false
}
