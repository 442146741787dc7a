package governance

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/roles"
)

// StringSet is a set of strings stored as a sorted JSON array.
type StringSet []string

// Scan implements the sql.Scanner interface for StringSet.
func (s *StringSet) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for StringSet: %T", value)
	}
	return json.Unmarshal(bytes, s)
}

// Value implements the driver.Valuer interface for StringSet.
func (s StringSet) Value() (driver.Value, error) {
	b, err := json.Marshal(normalizeTags(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// normalizeTags trims, drops blanks and duplicates, and sorts.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// UseCaseRecord stores a business use case.
type UseCaseRecord struct {
	ID             string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	Title          string    `gorm:"column:title;not null"`
	Description    string    `gorm:"column:description;type:text"`
	Tags           StringSet `gorm:"column:tags;type:text"`
	State          State     `gorm:"column:state;index;not null"`
	OwnerEmail     string    `gorm:"column:owner_email;index;not null"`
	BusinessUnitID *string   `gorm:"column:business_unit_id;index"`
	SkillCount     int       `gorm:"column:skill_count;not null;default:0"`
	Version        int64     `gorm:"column:version;not null;default:1"`
	CreatedAt      time.Time `gorm:"column:created_at;not null"`
	UpdatedAt      time.Time `gorm:"column:updated_at;not null"`
}

func (UseCaseRecord) TableName() string { return "use_cases" }

func (r *UseCaseRecord) entity() Entity {
	return Entity{
		Kind:           KindUseCase,
		ID:             r.ID,
		State:          r.State,
		OwnerEmail:     r.OwnerEmail,
		BusinessUnitID: deref(r.BusinessUnitID),
		UpdatedAt:      r.UpdatedAt,
	}
}

func (r *UseCaseRecord) toAPI(mcpServerCount int) UseCase {
	tags := []string(r.Tags)
	if tags == nil {
		tags = []string{}
	}
	return UseCase{
		ID:             r.ID,
		Title:          r.Title,
		Description:    r.Description,
		Tags:           tags,
		State:          r.State,
		OwnerEmail:     r.OwnerEmail,
		BusinessUnitID: r.BusinessUnitID,
		SkillCount:     r.SkillCount,
		MCPServerCount: mcpServerCount,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// MCPServerRecord stores an MCP server registration.
type MCPServerRecord struct {
	ID                string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	Name              string    `gorm:"column:name;not null"`
	EndpointURL       string    `gorm:"column:endpoint_url;not null"`
	AuthType          AuthType  `gorm:"column:auth_type;not null;default:none"`
	Tags              StringSet `gorm:"column:tags;type:text"`
	State             State     `gorm:"column:state;index;not null"`
	OwnerEmail        string    `gorm:"column:owner_email;index;not null"`
	BusinessUnitID    *string   `gorm:"column:business_unit_id;index"`
	BusinessUseCaseID *string   `gorm:"column:business_use_case_id;index;type:varchar(36)"`
	DeprecationReason *string   `gorm:"column:deprecation_reason;type:text"`
	Version           int64     `gorm:"column:version;not null;default:1"`
	CreatedAt         time.Time `gorm:"column:created_at;not null"`
	UpdatedAt         time.Time `gorm:"column:updated_at;not null"`
}

func (MCPServerRecord) TableName() string { return "mcp_servers" }

func (r *MCPServerRecord) entity() Entity {
	return Entity{
		Kind:              KindMCPServer,
		ID:                r.ID,
		State:             r.State,
		OwnerEmail:        r.OwnerEmail,
		BusinessUnitID:    deref(r.BusinessUnitID),
		BusinessUseCaseID: deref(r.BusinessUseCaseID),
		UpdatedAt:         r.UpdatedAt,
	}
}

func (r *MCPServerRecord) toAPI() MCPServer {
	tags := []string(r.Tags)
	if tags == nil {
		tags = []string{}
	}
	return MCPServer{
		ID:                r.ID,
		Name:              r.Name,
		EndpointURL:       r.EndpointURL,
		AuthType:          r.AuthType,
		Tags:              tags,
		State:             r.State,
		OwnerEmail:        r.OwnerEmail,
		BusinessUnitID:    r.BusinessUnitID,
		BusinessUseCaseID: r.BusinessUseCaseID,
		DeprecationReason: r.DeprecationReason,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// ApprovalRecordRow is an append-only ledger row. It has no foreign key to
// use_cases and outlives its use case.
type ApprovalRecordRow struct {
	ID            string         `gorm:"primaryKey;column:id;type:varchar(36)"`
	EntityID      string         `gorm:"column:entity_id;index:idx_approval_entity,priority:1;not null;type:varchar(36)"`
	ApproverRole  roles.Tag      `gorm:"column:approver_role;not null"`
	ApproverEmail string         `gorm:"column:approver_email;not null"`
	Action        ApprovalAction `gorm:"column:action;not null"`
	Comments      string         `gorm:"column:comments;type:text"`
	CreatedAt     time.Time      `gorm:"column:created_at;index:idx_approval_entity,priority:2;not null"`
}

func (ApprovalRecordRow) TableName() string { return "approval_records" }

func (r *ApprovalRecordRow) toAPI() ApprovalRecord {
	return ApprovalRecord{
		ID:            r.ID,
		EntityID:      r.EntityID,
		ApproverRole:  r.ApproverRole,
		ApproverEmail: r.ApproverEmail,
		Action:        r.Action,
		Comments:      r.Comments,
		CreatedAt:     r.CreatedAt,
	}
}

// TransitionEventRecord is an append-only row written for every transition.
type TransitionEventRecord struct {
	ID         string     `gorm:"primaryKey;column:id;type:varchar(36)"`
	EntityKind EntityKind `gorm:"column:entity_kind;index:idx_event_entity,priority:1;not null"`
	EntityID   string     `gorm:"column:entity_id;index:idx_event_entity,priority:2;not null;type:varchar(36)"`
	Edge       Edge       `gorm:"column:edge;not null"`
	FromState  State      `gorm:"column:from_state;not null"`
	ToState    State      `gorm:"column:to_state;not null"`
	Actor      string     `gorm:"column:actor;index;not null"`
	ActorRoles StringSet  `gorm:"column:actor_roles;type:text"`
	Comments   string     `gorm:"column:comments;type:text"`
	Reason     string     `gorm:"column:reason;type:text"`
	CreatedAt  time.Time  `gorm:"column:created_at;index;not null"`
}

func (TransitionEventRecord) TableName() string { return "transition_events" }

// ToAPI converts the row to its API representation.
func (r *TransitionEventRecord) ToAPI() TransitionEvent {
	actorRoles := []string(r.ActorRoles)
	if actorRoles == nil {
		actorRoles = []string{}
	}
	return TransitionEvent{
		ID:         r.ID,
		EntityKind: r.EntityKind,
		EntityID:   r.EntityID,
		Edge:       r.Edge,
		FromState:  r.FromState,
		ToState:    r.ToState,
		Actor:      r.Actor,
		ActorRoles: actorRoles,
		Comments:   r.Comments,
		Reason:     r.Reason,
		CreatedAt:  r.CreatedAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
