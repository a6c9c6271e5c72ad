package models

import (
	"time"

	"trohub/app/internal/utils"
)

type IncidentStatus string

const (
	IncidentOpen       IncidentStatus = "open"
	IncidentInProgress IncidentStatus = "in_progress"
	IncidentResolved   IncidentStatus = "resolved"
	IncidentCancelled  IncidentStatus = "cancelled"
)

type IncidentPriority string

const (
	PriorityLow    IncidentPriority = "low"
	PriorityMedium IncidentPriority = "medium"
	PriorityHigh   IncidentPriority = "high"
	PriorityUrgent IncidentPriority = "urgent"
)

// Incident (sự cố) is a problem reported for a room.
type Incident struct {
	Base        `bson:",inline"`
	RoomID      utils.SixID      `bson:"room_id" json:"room_id"`
	TenantID    utils.SixID      `bson:"tenant_id,omitempty" json:"tenant_id,omitempty"`
	Title       string           `bson:"title" json:"title"`
	Description string           `bson:"description" json:"description"`
	Category    string           `bson:"category" json:"category"` // electrical, plumbing, ...
	Priority    IncidentPriority `bson:"priority" json:"priority"`
	Status      IncidentStatus   `bson:"status" json:"status"`
	AssigneeID  utils.SixID      `bson:"assignee_id,omitempty" json:"assignee_id,omitempty"`
	Resolution  string           `bson:"resolution,omitempty" json:"resolution,omitempty"`
	ResolvedAt  *time.Time       `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
	ReportedBy  utils.SixID      `bson:"reported_by" json:"reported_by"`
}
