package models

import "time"

// Activity log actions form a closed set. Anything outside it is
// rejected before the entry is written.
const (
	ActionLogin          = "login"
	ActionLogout         = "logout"
	ActionFileUpload     = "file_upload"
	ActionFileDelete     = "file_delete"
	ActionProfileUpdate  = "profile_update"
	ActionPasswordChange = "password_change"
	ActionAdminAction    = "admin_action"
)

var activityActions = map[string]bool{
	ActionLogin:          true,
	ActionLogout:         true,
	ActionFileUpload:     true,
	ActionFileDelete:     true,
	ActionProfileUpdate:  true,
	ActionPasswordChange: true,
	ActionAdminAction:    true,
}

// ValidAction reports whether action belongs to the closed action set.
func ValidAction(action string) bool {
	return activityActions[action]
}

// ActivityLog is one append-only audit trail entry. Entries are never
// mutated after creation and are readable by administrators only.
type ActivityLog struct {
	ID          int            `json:"id"`
	UserID      int            `json:"userId"`
	UserName    string         `json:"userName,omitempty"`
	UserEmail   string         `json:"userEmail,omitempty"`
	Action      string         `json:"action"`
	Description string         `json:"description"`
	IPAddress   string         `json:"ipAddress,omitempty"`
	UserAgent   string         `json:"userAgent,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// ActivityFilter narrows an admin activity-log listing. Zero values
// mean "no constraint". Page is 1-based.
type ActivityFilter struct {
	UserID    int
	Action    string
	StartDate time.Time
	EndDate   time.Time
	Page      int
	Limit     int
}
