package domain

import "time"

// ============================================================
// Leads
// ============================================================

// LeadStatus is the sales pipeline position of a lead.
type LeadStatus string

const (
	LeadNew          LeadStatus = "NEW"
	LeadContacted    LeadStatus = "CONTACTED"
	LeadQualified    LeadStatus = "QUALIFIED"
	LeadProposalSent LeadStatus = "PROPOSAL_SENT"
	LeadConverted    LeadStatus = "CONVERTED"
	LeadLost         LeadStatus = "LOST"
)

// LeadStatuses lists every status in pipeline order.
var LeadStatuses = []LeadStatus{
	LeadNew,
	LeadContacted,
	LeadQualified,
	LeadProposalSent,
	LeadConverted,
	LeadLost,
}

// Valid reports whether s is one of the known pipeline statuses.
func (s LeadStatus) Valid() bool {
	for _, known := range LeadStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Label returns a human readable form of the status.
func (s LeadStatus) Label() string {
	switch s {
	case LeadNew:
		return "New"
	case LeadContacted:
		return "Contacted"
	case LeadQualified:
		return "Qualified"
	case LeadProposalSent:
		return "Proposal Sent"
	case LeadConverted:
		return "Converted"
	case LeadLost:
		return "Lost"
	}
	return string(s)
}

// Lead is a prospective insurance customer.
type Lead struct {
	ID                   int64          `json:"id"`
	Name                 string         `json:"name"`
	Email                string         `json:"email"`
	Phone                string         `json:"phone"`
	Location             string         `json:"location,omitempty"`
	Age                  *int           `json:"age,omitempty"`
	IncomeBand           string         `json:"incomeBand,omitempty"`
	LeadSource           string         `json:"leadSource,omitempty"`
	Status               LeadStatus     `json:"status"`
	AssignedAgentID      *int64         `json:"assignedAgentId,omitempty"`
	AssignedAgentName    string         `json:"assignedAgentName,omitempty"`
	PreferredTimeWindows map[string]any `json:"preferredTimeWindows,omitempty"`
	Timezone             string         `json:"timezone,omitempty"`
	ConsentFlags         map[string]any `json:"consentFlags,omitempty"`
	Notes                string         `json:"notes,omitempty"`
	CreatedAt            string         `json:"createdAt"`
	UpdatedAt            string         `json:"updatedAt"`
}

// CreateLeadRequest is the body for POST /leads.
type CreateLeadRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	LeadSource      string `json:"leadSource,omitempty"`
	Notes           string `json:"notes,omitempty"`
	AssignedAgentID *int64 `json:"assignedAgentId,omitempty"`
	Location        string `json:"location,omitempty"`
	Age             *int   `json:"age,omitempty"`
}

// UpdateLeadRequest is the body for PUT /leads/{id}. The backend leaves
// absent fields unchanged; optional fields are pointers so an empty string
// clears them.
type UpdateLeadRequest struct {
	Name            string     `json:"name,omitempty"`
	Email           string     `json:"email,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	Status          LeadStatus `json:"status,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	AssignedAgentID *int64     `json:"assignedAgentId,omitempty"`
	Location        *string    `json:"location,omitempty"`
	LeadSource      *string    `json:"leadSource,omitempty"`
}

// LeadQuery carries the list filters forwarded to GET /leads.
type LeadQuery struct {
	Page   int
	Size   int
	Status LeadStatus
	Search string
}

// ActivityType classifies a lead timeline entry.
type ActivityType string

const (
	ActivityNote           ActivityType = "NOTE"
	ActivityCall           ActivityType = "CALL"
	ActivityEmail          ActivityType = "EMAIL"
	ActivityStatusChange   ActivityType = "STATUS_CHANGE"
	ActivityProspectusSent ActivityType = "PROSPECTUS_SENT"
)

// LeadActivity is one entry of a lead's activity timeline.
type LeadActivity struct {
	ID        int64          `json:"id"`
	LeadID    int64          `json:"leadId"`
	Type      ActivityType   `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt string         `json:"createdAt"`
}

// CreateLeadActivityRequest is the body for POST /leads/{id}/activities.
type CreateLeadActivityRequest struct {
	Type    ActivityType   `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// ============================================================
// Products & categories
// ============================================================

// Product is an insurance plan in the catalog.
type Product struct {
	ID              int64          `json:"id"`
	Name            string         `json:"name"`
	CategoryID      int64          `json:"categoryId"`
	CategoryName    string         `json:"categoryName,omitempty"`
	Insurer         string         `json:"insurer,omitempty"`
	PlanType        string         `json:"planType,omitempty"`
	DetailsJSON     map[string]any `json:"detailsJson,omitempty"`
	EligibilityJSON map[string]any `json:"eligibilityJson,omitempty"`
	Tags            []string       `json:"tags,omitempty"`
	CreatedAt       string         `json:"createdAt"`
	UpdatedAt       string         `json:"updatedAt"`
}

// ProductRequest is the body for POST /products and PUT /products/{id}.
type ProductRequest struct {
	CategoryID      int64          `json:"categoryId,omitempty"`
	Name            string         `json:"name,omitempty"`
	Insurer         string         `json:"insurer,omitempty"`
	PlanType        string         `json:"planType,omitempty"`
	DetailsJSON     map[string]any `json:"detailsJson,omitempty"`
	EligibilityJSON map[string]any `json:"eligibilityJson,omitempty"`
	Tags            []string       `json:"tags,omitempty"`
}

// ProductQuery carries the filters forwarded to GET /products.
type ProductQuery struct {
	CategoryID int64
	Size       int
}

// Category groups products.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// CategoryRequest is the body for category create/update.
type CategoryRequest struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// ProductDocument is a file attached to a product.
type ProductDocument struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"productId"`
	Filename    string `json:"filename"`
	StoragePath string `json:"storagePath,omitempty"`
	StorageURL  string `json:"storageUrl,omitempty"`
	FileSize    int64  `json:"fileSize,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

// ============================================================
// Voice sessions
// ============================================================

// VoiceSession is a recorded and transcribed AI-assisted call.
type VoiceSession struct {
	ID                  int64          `json:"id"`
	LeadID              int64          `json:"leadId"`
	LeadName            string         `json:"leadName,omitempty"`
	AgentID             int64          `json:"agentId"`
	AgentName           string         `json:"agentName,omitempty"`
	CallTaskID          *int64         `json:"callTaskId,omitempty"`
	SessionID           string         `json:"sessionId,omitempty"`
	StartedAt           string         `json:"startedAt,omitempty"`
	EndedAt             string         `json:"endedAt,omitempty"`
	DurationSeconds     int            `json:"durationSeconds,omitempty"`
	TranscriptText      string         `json:"transcriptText,omitempty"`
	ExtractedNeedsJSON  map[string]any `json:"extractedNeedsJson,omitempty"`
	RecommendationsJSON map[string]any `json:"recommendationsJson,omitempty"`
	Status              string         `json:"status"`
	ErrorMessage        string         `json:"errorMessage,omitempty"`
	CreatedAt           string         `json:"createdAt"`
}

// StartVoiceSessionRequest is the body for POST /voice/sessions/start.
type StartVoiceSessionRequest struct {
	LeadID int64 `json:"leadId"`
}

// ============================================================
// Scheduler
// ============================================================

// CallTaskStatus is the state of a scheduled call.
type CallTaskStatus string

const (
	TaskPending   CallTaskStatus = "PENDING"
	TaskDone      CallTaskStatus = "DONE"
	TaskMissed    CallTaskStatus = "MISSED"
	TaskCancelled CallTaskStatus = "CANCELLED"
)

// CallTask is a scheduled outreach call linked to a lead and an agent.
type CallTask struct {
	ID            int64          `json:"id"`
	LeadID        int64          `json:"leadId"`
	LeadName      string         `json:"leadName,omitempty"`
	LeadPhone     string         `json:"leadPhone,omitempty"`
	AgentID       int64          `json:"agentId"`
	AgentName     string         `json:"agentName,omitempty"`
	ScheduledTime string         `json:"scheduledTime"`
	Status        CallTaskStatus `json:"status"`
	Outcome       string         `json:"outcome,omitempty"`
	Notes         string         `json:"notes,omitempty"`
	CompletedAt   string         `json:"completedAt,omitempty"`
	CreatedAt     string         `json:"createdAt"`
}

// ScheduleCallRequest is the body for POST /scheduler/tasks.
type ScheduleCallRequest struct {
	LeadID                 int64  `json:"leadId"`
	AgentID                int64  `json:"agentId"`
	ScheduledTime          string `json:"scheduledTime"`
	Notes                  string `json:"notes,omitempty"`
	UsePreferredTimeWindow bool   `json:"usePreferredTimeWindow,omitempty"`
}

// UpdateCallTaskRequest is the body for PUT /scheduler/tasks/{id}.
type UpdateCallTaskRequest struct {
	ScheduledTime string         `json:"scheduledTime,omitempty"`
	Status        CallTaskStatus `json:"status,omitempty"`
	Outcome       string         `json:"outcome,omitempty"`
	Notes         string         `json:"notes,omitempty"`
}

// ============================================================
// Prospectus & email
// ============================================================

// Prospectus is a generated proposal document for a lead.
type Prospectus struct {
	ID             int64  `json:"id"`
	LeadID         int64  `json:"leadId"`
	LeadName       string `json:"leadName,omitempty"`
	AgentID        int64  `json:"agentId"`
	AgentName      string `json:"agentName,omitempty"`
	VoiceSessionID *int64 `json:"voiceSessionId,omitempty"`
	Version        int    `json:"version,omitempty"`
	HTMLContent    string `json:"htmlContent,omitempty"`
	PDFPath        string `json:"pdfPath,omitempty"`
	PDFURL         string `json:"pdfUrl,omitempty"`
	CreatedAt      string `json:"createdAt"`
}

// GenerateProspectusRequest is the body for POST /prospectus/generate.
type GenerateProspectusRequest struct {
	LeadID         int64  `json:"leadId"`
	VoiceSessionID *int64 `json:"voiceSessionId,omitempty"`
}

// Download is a binary payload fetched from the backend.
type Download struct {
	ContentType string
	// Disposition is the backend's Content-Disposition, when it sent one.
	Disposition string
	Body        []byte
}

// Upload is a file sent to the backend as multipart/form-data.
type Upload struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ImportLeadsResult is the response of POST /leads/import.
type ImportLeadsResult struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
	Leads   []Lead `json:"leads"`
}

// EmailLog records one email sent to a lead.
type EmailLog struct {
	ID                int64  `json:"id"`
	LeadID            int64  `json:"leadId"`
	LeadName          string `json:"leadName,omitempty"`
	AgentID           int64  `json:"agentId"`
	AgentName         string `json:"agentName,omitempty"`
	ProspectusID      *int64 `json:"prospectusId,omitempty"`
	ToEmail           string `json:"toEmail"`
	Subject           string `json:"subject"`
	Body              string `json:"body"`
	Status            string `json:"status"`
	ProviderMessageID string `json:"providerMessageId,omitempty"`
	ErrorMessage      string `json:"errorMessage,omitempty"`
	SentAt            string `json:"sentAt,omitempty"`
	CreatedAt         string `json:"createdAt"`
}

// SendEmailRequest is the body for POST /email/send.
type SendEmailRequest struct {
	LeadID           int64  `json:"leadId"`
	AgentID          int64  `json:"agentId"`
	ToEmail          string `json:"toEmail"`
	Subject          string `json:"subject"`
	Body             string `json:"body"`
	ProspectusID     *int64 `json:"prospectusId,omitempty"`
	AttachProspectus bool   `json:"attachProspectus,omitempty"`
}

// ============================================================
// Admin
// ============================================================

// AdminSetting is a key/value configuration record.
type AdminSetting struct {
	ID                int64  `json:"id"`
	Key               string `json:"key"`
	Value             string `json:"value"`
	Description       string `json:"description,omitempty"`
	UpdatedByUserID   *int64 `json:"updatedByUserId,omitempty"`
	UpdatedByUserName string `json:"updatedByUserName,omitempty"`
	UpdatedAt         string `json:"updatedAt"`
	CreatedAt         string `json:"createdAt"`
}

// UpdateAdminSettingRequest is the body for PUT /admin/settings/{key}.
type UpdateAdminSettingRequest struct {
	Value string `json:"value"`
}

// AuditLog is one audited back-office action.
type AuditLog struct {
	ID         int64          `json:"id"`
	ActorID    *int64         `json:"actorId,omitempty"`
	ActorName  string         `json:"actorName,omitempty"`
	Action     string         `json:"action"`
	Entity     string         `json:"entity,omitempty"`
	EntityID   *int64         `json:"entityId,omitempty"`
	BeforeJSON map[string]any `json:"beforeJson,omitempty"`
	AfterJSON  map[string]any `json:"afterJson,omitempty"`
	IPAddress  string         `json:"ipAddress,omitempty"`
	UserAgent  string         `json:"userAgent,omitempty"`
	CreatedAt  string         `json:"createdAt"`
}

// AuditQuery carries the filters forwarded to GET /admin/audit.
type AuditQuery struct {
	Page   int
	Size   int
	UserID int64
	Action string
	Entity string
}

// DashboardStats is the admin overview returned by GET /admin/stats.
type DashboardStats struct {
	TotalLeads     int                `json:"totalLeads"`
	NewLeads       int                `json:"newLeads"`
	CallsToday     int                `json:"callsToday"`
	CallsPending   int                `json:"callsPending"`
	ConversionRate float64            `json:"conversionRate"`
	LeadsByStatus  map[LeadStatus]int `json:"leadsByStatus"`
}

// ============================================================
// Pagination
// ============================================================

// PageQuery carries page/size for paginated endpoints.
type PageQuery struct {
	Page int
	Size int
}

// PageResponse is the backend pagination envelope.
type PageResponse[T any] struct {
	Content       []T  `json:"content"`
	TotalElements int  `json:"totalElements"`
	TotalPages    int  `json:"totalPages"`
	Size          int  `json:"size"`
	Number        int  `json:"number"`
	First         bool `json:"first"`
	Last          bool `json:"last"`
}

// ParseTimestamp parses the timestamp formats the backend emits
// (RFC 3339 and zone-less local date-times).
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
