package governance

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/authz"
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/roles"
)

func strp(s string) *string { return &s }

func TestEngine_CreateUseCaseValidation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		caller authz.Caller
		req    CreateUseCaseRequest
		code   Code
	}{
		{"anonymous", callerAs("", roles.Publisher), CreateUseCaseRequest{Title: "x"}, CodeUnauthorized},
		{"no roles", callerAs("alice@example.com"), CreateUseCaseRequest{Title: "x"}, CodeUnauthorized},
		{"blank title", alice, CreateUseCaseRequest{Title: "  "}, CodeValidation},
		{"long title", alice, CreateUseCaseRequest{Title: strings.Repeat("t", maxTitleLength+1)}, CodeValidation},
		{"negative skills", alice, CreateUseCaseRequest{Title: "x", SkillCount: -1}, CodeValidation},
		{"unknown business unit", alice, CreateUseCaseRequest{Title: "x", BusinessUnitID: strp("atlantis")}, CodeValidation},
		{"missing business unit", authz.Caller{Email: "alice@example.com", Roles: roles.NewSet(roles.Publisher)}, CreateUseCaseRequest{Title: "x"}, CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.CreateUseCase(ctx, tt.caller, tt.req)
			requireCode(t, err, tt.code)
		})
	}
}

func TestEngine_CreateUseCaseBusinessUnit(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	uc, err := e.CreateUseCase(ctx, alice, CreateUseCaseRequest{Title: "x", BusinessUnitID: strp("finance")})
	require.NoError(t, err)
	assert.Equal(t, "finance", *uc.BusinessUnitID)

	orgWide := authz.Caller{Email: "gov@example.com", Roles: roles.NewSet(roles.PlatformGovernance)}
	uc, err = e.CreateUseCase(ctx, orgWide, CreateUseCaseRequest{Title: "org wide"})
	require.NoError(t, err)
	assert.Nil(t, uc.BusinessUnitID)
}

func TestEngine_CreateUseCaseNormalizesTags(t *testing.T) {
	e, _ := newTestEngine(t)
	uc, err := e.CreateUseCase(context.Background(), alice, CreateUseCaseRequest{
		Title: " Contract review ",
		Tags:  []string{"legal", " ops", "legal", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "Contract review", uc.Title)
	assert.Equal(t, []string{"legal", "ops"}, uc.Tags)
	assert.Equal(t, "alice@example.com", uc.OwnerEmail)
	assert.Zero(t, uc.MCPServerCount)
}

func TestEngine_UpdateUseCase(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	uc := createUseCase(t, e, alice)

	_, err := e.UpdateUseCase(ctx, uc.ID, mallo, UpdateUseCaseRequest{Title: strp("hijack")})
	requireCode(t, err, CodeUnauthorized)

	_, err = e.UpdateUseCase(ctx, uc.ID, alice, UpdateUseCaseRequest{})
	requireCode(t, err, CodeValidation)

	guard := uc.UpdatedAt
	got, err := e.UpdateUseCase(ctx, uc.ID, alice, UpdateUseCaseRequest{
		Title:             strp("Invoice triage v2"),
		Tags:              &[]string{"finance"},
		ExpectedUpdatedAt: &guard,
	})
	require.NoError(t, err)
	assert.Equal(t, "Invoice triage v2", got.Title)
	assert.Equal(t, []string{"finance"}, got.Tags)
	assert.Equal(t, StateDraft, got.State)
	assert.True(t, got.UpdatedAt.After(guard))

	_, err = e.UpdateUseCase(ctx, uc.ID, alice, UpdateUseCaseRequest{Description: strp("again"), ExpectedUpdatedAt: &guard})
	requireCode(t, err, CodeStaleEntity)

	got, err = e.UpdateUseCase(ctx, uc.ID, carol, UpdateUseCaseRequest{Description: strp("edited by platform")})
	require.NoError(t, err)
	assert.Equal(t, "edited by platform", got.Description)
}

func TestEngine_UpdateTerminalUseCase(t *testing.T) {
	e, _ := newTestEngine(t)
	uc := createUseCase(t, e, alice)
	transitionUC(t, e, uc.ID, alice, EdgeSubmit)
	transitionUC(t, e, uc.ID, bob, EdgeReject)

	_, err := e.UpdateUseCase(context.Background(), uc.ID, alice, UpdateUseCaseRequest{Title: strp("retry")})
	requireCode(t, err, CodePreconditionFailed)
}

func TestEngine_DeleteUseCase(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	draft := createUseCase(t, e, alice)
	requireCode(t, e.DeleteUseCase(ctx, draft.ID, alice), CodeUnauthorized)
	require.NoError(t, e.DeleteUseCase(ctx, draft.ID, bob))
	_, err := e.GetUseCase(ctx, draft.ID)
	requireCode(t, err, CodeNotFound)
	requireCode(t, e.DeleteUseCase(ctx, draft.ID, bob), CodeNotFound)

	reviewed := createUseCase(t, e, alice)
	transitionUC(t, e, reviewed.ID, alice, EdgeSubmit)
	transitionUC(t, e, reviewed.ID, bob, EdgeReject)
	requireCode(t, e.DeleteUseCase(ctx, reviewed.ID, gov), CodePreconditionFailed)

	linked := createUseCase(t, e, alice)
	_, err = e.CreateMCPServer(ctx, alice, CreateMCPServerRequest{
		Name: "srv", EndpointURL: "http://mcp.internal:8080", BusinessUseCaseID: strp(linked.ID),
	})
	require.NoError(t, err)
	requireCode(t, e.DeleteUseCase(ctx, linked.ID, gov), CodePreconditionFailed)

	got, err := e.GetUseCase(ctx, linked.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.MCPServerCount)
}

func TestEngine_ListUseCases(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		createUseCase(t, e, alice)
	}
	submitted := createUseCase(t, e, mallo)
	transitionUC(t, e, submitted.ID, mallo, EdgeSubmit)

	page, err := e.ListUseCases(ctx, ListFilter{}, 4, "")
	require.NoError(t, err)
	assert.Equal(t, 4, page.Size)
	require.NotEmpty(t, page.NextPageToken)

	rest, err := e.ListUseCases(ctx, ListFilter{}, 4, page.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, 2, rest.Size)
	assert.Empty(t, rest.NextPageToken)

	seen := map[string]bool{}
	for _, uc := range append(page.Items, rest.Items...) {
		assert.False(t, seen[uc.ID], "duplicate %s", uc.ID)
		seen[uc.ID] = true
	}

	pending, err := e.ListUseCases(ctx, ListFilter{States: []State{StatePendingProductAdmin}}, 0, "")
	require.NoError(t, err)
	require.Len(t, pending.Items, 1)
	assert.Equal(t, submitted.ID, pending.Items[0].ID)

	mine, err := e.ListUseCases(ctx, ListFilter{OwnerEmail: "alice@example.com"}, 0, "")
	require.NoError(t, err)
	assert.Len(t, mine.Items, 5)
}
