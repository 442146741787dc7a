package governance

import (
	"time"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/roles"
)

// EntityKind identifies which lifecycle graph an entity follows.
type EntityKind string

const (
	KindUseCase   EntityKind = "use_case"
	KindMCPServer EntityKind = "mcp_server"
)

// State is a lifecycle state. Each kind uses a subset.
type State string

const (
	StateDraft                State = "draft"
	StatePendingProductAdmin  State = "pending_product_admin"
	StatePendingPlatformAdmin State = "pending_platform_admin"
	StateInReview             State = "in_review"
	StateActive               State = "active"
	StateRejected             State = "rejected"
	StateArchived             State = "archived"
	StateDeprecated           State = "deprecated"
)

// Edge is a named, role-gated transition.
type Edge string

const (
	EdgeSubmit    Edge = "submit"
	EdgeApprove   Edge = "approve"
	EdgeReject    Edge = "reject"
	EdgeDeprecate Edge = "deprecate"
)

// AuthType is how clients authenticate against an MCP server endpoint.
type AuthType string

const (
	AuthTypeNone   AuthType = "none"
	AuthTypeAPIKey AuthType = "api_key"
	AuthTypeOAuth  AuthType = "oauth"
	AuthTypeBasic  AuthType = "basic"
)

// Valid reports whether a is a known auth type.
func (a AuthType) Valid() bool {
	switch a {
	case AuthTypeNone, AuthTypeAPIKey, AuthTypeOAuth, AuthTypeBasic:
		return true
	}
	return false
}

// ApprovalAction is the decision recorded in the ledger.
type ApprovalAction string

const (
	ActionApproved ApprovalAction = "approved"
	ActionRejected ApprovalAction = "rejected"
)

// Entity is the governed-entity snapshot that lifecycle and authorization
// decisions are computed from.
type Entity struct {
	Kind              EntityKind
	ID                string
	State             State
	OwnerEmail        string
	BusinessUnitID    string
	BusinessUseCaseID string
	UpdatedAt         time.Time
}

// UseCase is the API representation of a business use case.
type UseCase struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Tags           []string  `json:"tags"`
	State          State     `json:"state"`
	OwnerEmail     string    `json:"ownerEmail"`
	BusinessUnitID *string   `json:"businessUnitId"`
	SkillCount     int       `json:"skillCount"`
	MCPServerCount int       `json:"mcpServerCount"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// MCPServer is the API representation of an MCP server.
type MCPServer struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	EndpointURL       string    `json:"endpointUrl"`
	AuthType          AuthType  `json:"authType"`
	Tags              []string  `json:"tags"`
	State             State     `json:"state"`
	OwnerEmail        string    `json:"ownerEmail"`
	BusinessUnitID    *string   `json:"businessUnitId"`
	BusinessUseCaseID *string   `json:"businessUseCaseId"`
	DeprecationReason *string   `json:"deprecationReason,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// ApprovalRecord is one immutable ledger entry.
type ApprovalRecord struct {
	ID            string         `json:"id"`
	EntityID      string         `json:"entityId"`
	ApproverRole  roles.Tag      `json:"approverRole"`
	ApproverEmail string         `json:"approverEmail"`
	Action        ApprovalAction `json:"action"`
	Comments      string         `json:"comments,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// TransitionEvent is one entry in the transition trail.
type TransitionEvent struct {
	ID         string     `json:"id"`
	EntityKind EntityKind `json:"entityKind"`
	EntityID   string     `json:"entityId"`
	Edge       Edge       `json:"edge"`
	FromState  State      `json:"fromState"`
	ToState    State      `json:"toState"`
	Actor      string     `json:"actor"`
	ActorRoles []string   `json:"actorRoles"`
	Comments   string     `json:"comments,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// TransitionRequest asks the engine to follow an edge.
type TransitionRequest struct {
	Edge     Edge   `json:"edge"`
	Comments string `json:"comments,omitempty"`
	// Reason is required when deprecating an MCP server.
	Reason string `json:"reason,omitempty"`
	// ExpectedUpdatedAt is the caller's view of updatedAt. When set and
	// different from the stored value the transition fails as stale.
	ExpectedUpdatedAt *time.Time `json:"expectedUpdatedAt,omitempty"`
}

// TransitionResult is returned by a successful transition.
type TransitionResult struct {
	EntityKind  EntityKind       `json:"entityKind"`
	EntityID    string           `json:"entityId"`
	Edge        Edge             `json:"edge"`
	FromState   State            `json:"fromState"`
	State       State            `json:"state"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	LedgerEntry *ApprovalRecord  `json:"ledgerEntry,omitempty"`
	Ledger      []ApprovalRecord `json:"ledger,omitempty"`
}

// CreateUseCaseRequest is the body of POST /use-cases.
type CreateUseCaseRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	BusinessUnitID *string  `json:"businessUnitId,omitempty"`
	SkillCount     int      `json:"skillCount,omitempty"`
}

// UpdateUseCaseRequest is the body of PATCH /use-cases/{id}. Nil fields are left unchanged.
type UpdateUseCaseRequest struct {
	Title             *string    `json:"title,omitempty"`
	Description       *string    `json:"description,omitempty"`
	Tags              *[]string  `json:"tags,omitempty"`
	ExpectedUpdatedAt *time.Time `json:"expectedUpdatedAt,omitempty"`
}

// CreateMCPServerRequest is the body of POST /mcp-servers.
type CreateMCPServerRequest struct {
	Name              string   `json:"name"`
	EndpointURL       string   `json:"endpointUrl"`
	AuthType          AuthType `json:"authType,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	BusinessUnitID    *string  `json:"businessUnitId,omitempty"`
	BusinessUseCaseID *string  `json:"businessUseCaseId,omitempty"`
}

// UpdateMCPServerRequest is the body of PATCH /mcp-servers/{id}. Nil fields are left unchanged.
type UpdateMCPServerRequest struct {
	Name              *string    `json:"name,omitempty"`
	EndpointURL       *string    `json:"endpointUrl,omitempty"`
	AuthType          *AuthType  `json:"authType,omitempty"`
	Tags              *[]string  `json:"tags,omitempty"`
	BusinessUseCaseID *string    `json:"businessUseCaseId,omitempty"`
	ExpectedUpdatedAt *time.Time `json:"expectedUpdatedAt,omitempty"`
}

// Permissions describes what the caller may do with an entity right now.
type Permissions struct {
	CanEdit        bool   `json:"canEdit"`
	CanApprove     bool   `json:"canApprove"`
	CanDelete      bool   `json:"canDelete"`
	AvailableEdges []Edge `json:"availableEdges"`
}

// UseCaseList is a page of use cases.
type UseCaseList struct {
	Items         []UseCase `json:"items"`
	NextPageToken string    `json:"nextPageToken,omitempty"`
	Size          int       `json:"size"`
}

// MCPServerList is a page of MCP servers.
type MCPServerList struct {
	Items         []MCPServer `json:"items"`
	NextPageToken string      `json:"nextPageToken,omitempty"`
	Size          int         `json:"size"`
}

// PendingApprovals is the derived review queue for a role and/or business unit.
type PendingApprovals struct {
	Role           roles.Tag   `json:"role,omitempty"`
	BusinessUnitID string      `json:"businessUnitId,omitempty"`
	UseCases       []UseCase   `json:"useCases"`
	MCPServers     []MCPServer `json:"mcpServers"`
}

// ListFilter narrows entity listings. Zero values match everything.
type ListFilter struct {
	States         []State
	OwnerEmail     string
	BusinessUnitID string
	// BusinessUseCaseID applies to MCP servers only.
	BusinessUseCaseID string
}
