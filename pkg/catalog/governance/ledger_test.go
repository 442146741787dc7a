package governance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/roles"
)

func TestApprovalLedger_AppendAndList(t *testing.T) {
	e, db := newTestEngine(t)
	ctx := context.Background()
	uc := createUseCase(t, e, alice)
	ledger := NewApprovalLedger(db)

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	id1, err := ledger.Append(ctx, &ApprovalRecordRow{
		EntityID: uc.ID, ApproverRole: roles.ProductAdmin, ApproverEmail: "bob@example.com",
		Action: ActionApproved, Comments: "looks good", CreatedAt: base,
	})
	require.NoError(t, err)
	id2, err := ledger.Append(ctx, &ApprovalRecordRow{
		EntityID: uc.ID, ApproverRole: roles.PlatformAdmin, ApproverEmail: "carol@example.com",
		Action: ActionRejected, CreatedAt: base.Add(time.Second),
	})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	recs, err := ledger.ListByEntity(ctx, uc.ID)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, id1, recs[0].ID)
	assert.Equal(t, "looks good", recs[0].Comments)
	assert.True(t, recs[0].CreatedAt.Equal(base))
	assert.Equal(t, id2, recs[1].ID)

	latest, err := ledger.FindLatestByRole(ctx, uc.ID, roles.PlatformAdmin)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, ActionRejected, latest.Action)

	none, err := ledger.FindLatestByRole(ctx, "other", roles.PlatformAdmin)
	require.NoError(t, err)
	assert.Nil(t, none)

	n, err := ledger.CountByEntity(ctx, uc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestApprovalLedger_AppendValidation(t *testing.T) {
	e, db := newTestEngine(t)
	ctx := context.Background()
	uc := createUseCase(t, e, alice)
	ledger := NewApprovalLedger(db)

	tests := []struct {
		name string
		rec  ApprovalRecordRow
	}{
		{"unknown use case", ApprovalRecordRow{EntityID: "missing", ApproverRole: roles.ProductAdmin, ApproverEmail: "bob@example.com", Action: ActionApproved}},
		{"non review role", ApprovalRecordRow{EntityID: uc.ID, ApproverRole: roles.PlatformGovernance, ApproverEmail: "gov@example.com", Action: ActionApproved}},
		{"unknown action", ApprovalRecordRow{EntityID: uc.ID, ApproverRole: roles.ProductAdmin, ApproverEmail: "bob@example.com", Action: "deferred"}},
		{"missing email", ApprovalRecordRow{EntityID: uc.ID, ApproverRole: roles.ProductAdmin, Action: ActionApproved}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.rec
			_, err := ledger.Append(ctx, &rec)
			requireCode(t, err, CodeValidation)
		})
	}

	n, err := ledger.CountByEntity(ctx, uc.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEngine_ApprovalsOutliveUseCase(t *testing.T) {
	e, db := newTestEngine(t)
	ctx := context.Background()
	uc := createUseCase(t, e, alice)
	transitionUC(t, e, uc.ID, alice, EdgeSubmit)
	transitionUC(t, e, uc.ID, bob, EdgeReject)

	require.NoError(t, db.Delete(&UseCaseRecord{}, "id = ?", uc.ID).Error)

	records, err := e.Approvals(ctx, uc.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, ActionRejected, records[0].Action)

	_, err = e.Approvals(ctx, "never-existed")
	requireCode(t, err, CodeNotFound)
}

func TestEngine_ApprovalsEmptyForNewUseCase(t *testing.T) {
	e, _ := newTestEngine(t)
	uc := createUseCase(t, e, alice)

	records, err := e.Approvals(context.Background(), uc.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, records)
}
