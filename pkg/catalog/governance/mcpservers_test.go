package governance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createMCPServer(t *testing.T, e *Engine, useCaseID string) *MCPServer {
	t.Helper()
	req := CreateMCPServerRequest{
		Name:        "search-tools",
		EndpointURL: "https://mcp.example.com/search",
		AuthType:    AuthTypeOAuth,
		Tags:        []string{"search"},
	}
	if useCaseID != "" {
		req.BusinessUseCaseID = &useCaseID
	}
	srv, err := e.CreateMCPServer(context.Background(), alice, req)
	require.NoError(t, err)
	return srv
}

// activeMCPServer walks a linked server to active.
func activeMCPServer(t *testing.T, e *Engine) *MCPServer {
	t.Helper()
	ctx := context.Background()
	uc := createUseCase(t, e, alice)
	srv := createMCPServer(t, e, uc.ID)
	_, err := e.TransitionMCPServer(ctx, srv.ID, alice, TransitionRequest{Edge: EdgeSubmit})
	require.NoError(t, err)
	_, err = e.TransitionMCPServer(ctx, srv.ID, gov, TransitionRequest{Edge: EdgeApprove})
	require.NoError(t, err)
	got, err := e.GetMCPServer(ctx, srv.ID)
	require.NoError(t, err)
	return got
}

func TestEngine_CreateMCPServerValidation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateMCPServerRequest
	}{
		{"missing name", CreateMCPServerRequest{EndpointURL: "https://x.example.com"}},
		{"missing endpoint", CreateMCPServerRequest{Name: "x"}},
		{"relative endpoint", CreateMCPServerRequest{Name: "x", EndpointURL: "/mcp"}},
		{"non http endpoint", CreateMCPServerRequest{Name: "x", EndpointURL: "ftp://files.example.com"}},
		{"bad auth type", CreateMCPServerRequest{Name: "x", EndpointURL: "https://x.example.com", AuthType: "kerberos"}},
		{"unknown use case", CreateMCPServerRequest{Name: "x", EndpointURL: "https://x.example.com", BusinessUseCaseID: strp("nope")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.CreateMCPServer(ctx, alice, tt.req)
			requireCode(t, err, CodeValidation)
		})
	}
}

func TestEngine_UpdateMCPServerLink(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	uc := createUseCase(t, e, alice)
	srv := createMCPServer(t, e, uc.ID)
	assert.Equal(t, uc.ID, *srv.BusinessUseCaseID)

	got, err := e.UpdateMCPServer(ctx, srv.ID, alice, UpdateMCPServerRequest{BusinessUseCaseID: strp("")})
	require.NoError(t, err)
	assert.Nil(t, got.BusinessUseCaseID)

	_, err = e.UpdateMCPServer(ctx, srv.ID, alice, UpdateMCPServerRequest{BusinessUseCaseID: strp("missing")})
	requireCode(t, err, CodeValidation)

	got, err = e.UpdateMCPServer(ctx, srv.ID, alice, UpdateMCPServerRequest{BusinessUseCaseID: strp(uc.ID)})
	require.NoError(t, err)
	_, err = e.TransitionMCPServer(ctx, got.ID, alice, TransitionRequest{Edge: EdgeSubmit})
	require.NoError(t, err)

	_, err = e.UpdateMCPServer(ctx, srv.ID, alice, UpdateMCPServerRequest{BusinessUseCaseID: strp("")})
	requireCode(t, err, CodePreconditionFailed)

	got, err = e.UpdateMCPServer(ctx, srv.ID, alice, UpdateMCPServerRequest{EndpointURL: strp("https://mcp.example.com/search/v2")})
	require.NoError(t, err)
	assert.Equal(t, "https://mcp.example.com/search/v2", got.EndpointURL)
	assert.Equal(t, StateInReview, got.State)
}

func TestEngine_UpdateDeprecatedMCPServer(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	srv := activeMCPServer(t, e)
	_, err := e.TransitionMCPServer(ctx, srv.ID, gov, TransitionRequest{Edge: EdgeDeprecate, Reason: "sunset"})
	require.NoError(t, err)

	_, err = e.UpdateMCPServer(ctx, srv.ID, alice, UpdateMCPServerRequest{Tags: &[]string{"legacy"}})
	requireCode(t, err, CodePreconditionFailed)

	_, err = e.UpdateMCPServer(ctx, srv.ID, gov, UpdateMCPServerRequest{Name: strp("renamed")})
	requireCode(t, err, CodePreconditionFailed)

	got, err := e.UpdateMCPServer(ctx, srv.ID, gov, UpdateMCPServerRequest{Tags: &[]string{"legacy", "search"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"legacy", "search"}, got.Tags)
	assert.Equal(t, StateDeprecated, got.State)
	require.NotNil(t, got.DeprecationReason)
	assert.Equal(t, "sunset", *got.DeprecationReason)
}

func TestEngine_DeleteMCPServer(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	uc := createUseCase(t, e, alice)
	srv := createMCPServer(t, e, uc.ID)

	requireCode(t, e.DeleteMCPServer(ctx, srv.ID, alice), CodeUnauthorized)
	require.NoError(t, e.DeleteMCPServer(ctx, srv.ID, erin))
	_, err := e.GetMCPServer(ctx, srv.ID)
	requireCode(t, err, CodeNotFound)

	got, err := e.GetUseCase(ctx, uc.ID)
	require.NoError(t, err)
	assert.Zero(t, got.MCPServerCount)
	require.NoError(t, e.DeleteUseCase(ctx, uc.ID, erin))
}

func TestEngine_ListMCPServersByUseCase(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	uc := createUseCase(t, e, alice)
	createMCPServer(t, e, uc.ID)
	createMCPServer(t, e, uc.ID)
	createMCPServer(t, e, "")

	list, err := e.ListMCPServers(ctx, ListFilter{BusinessUseCaseID: uc.ID}, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 2, list.Size)

	all, err := e.ListMCPServers(ctx, ListFilter{}, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 3, all.Size)

	got, err := e.GetUseCase(ctx, uc.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.MCPServerCount)
}

func TestEngine_PendingApprovals(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	first := createUseCase(t, e, alice)
	transitionUC(t, e, first.ID, alice, EdgeSubmit)

	second := createUseCase(t, e, alice)
	transitionUC(t, e, second.ID, alice, EdgeSubmit)
	transitionUC(t, e, second.ID, bob, EdgeApprove)

	createUseCase(t, e, alice)

	finance, err := e.CreateUseCase(ctx, alice, CreateUseCaseRequest{Title: "Budget", BusinessUnitID: strp("finance")})
	require.NoError(t, err)
	transitionUC(t, e, finance.ID, alice, EdgeSubmit)

	srv := createMCPServer(t, e, first.ID)
	_, err = e.TransitionMCPServer(ctx, srv.ID, alice, TransitionRequest{Edge: EdgeSubmit})
	require.NoError(t, err)

	q, err := e.PendingApprovals(ctx, "product_admin", "")
	require.NoError(t, err)
	assert.Len(t, q.UseCases, 2)
	assert.Empty(t, q.MCPServers)

	q, err = e.PendingApprovals(ctx, "product_admin", "eng")
	require.NoError(t, err)
	require.Len(t, q.UseCases, 1)
	assert.Equal(t, first.ID, q.UseCases[0].ID)
	assert.Equal(t, 1, q.UseCases[0].MCPServerCount)

	q, err = e.PendingApprovals(ctx, "platform_governance", "")
	require.NoError(t, err)
	require.Len(t, q.UseCases, 1)
	assert.Equal(t, second.ID, q.UseCases[0].ID)
	require.Len(t, q.MCPServers, 1)
	assert.Equal(t, srv.ID, q.MCPServers[0].ID)

	q, err = e.PendingApprovals(ctx, "publisher", "")
	require.NoError(t, err)
	assert.Empty(t, q.UseCases)
	assert.Empty(t, q.MCPServers)

	q, err = e.PendingApprovals(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, q.UseCases, 3)
	assert.Len(t, q.MCPServers, 1)
}
