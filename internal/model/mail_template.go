package model

// Mail template names, one per enrollment transition.
const (
	TemplateEnrollOpen   = "enrollopen"
	TemplateEnrollClosed = "enrollclosed"
)

// MailTemplate is an organization's mail body for an enrollment
// transition. Inactive templates suppress the mail without suppressing
// the transition itself.
type MailTemplate struct {
	ID             int64  `json:"id"`
	OrganizationID int64  `json:"organization_id"`
	Name           string `json:"name"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	IsActive       bool   `json:"is_active"`
}
