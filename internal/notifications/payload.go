// Package notifications builds structured notification payloads for the
// access-request workflow and dispatches them through a best-effort mailer.
package notifications

// NoticeKind identifies the notification being sent, used for metrics and
// template selection.
type NoticeKind string

const (
	KindRequestSubmitted NoticeKind = "request_submitted"
	KindRequestGranted   NoticeKind = "request_granted"
	KindRequestRejected  NoticeKind = "request_rejected"
	KindRequestRevoked   NoticeKind = "request_revoked"
	KindNewRegistration  NoticeKind = "new_registration"
)

// AccessRequestNotice carries everything the templates need to describe a
// request event. Message bodies are rendered from it; the notice itself is
// never logged, only its identifiers.
type AccessRequestNotice struct {
	RequestID        string `json:"request_id"`
	UserID           uint   `json:"user_id"`
	UserName         string `json:"user_name"`
	UserEmail        string `json:"user_email"`
	UserOrganization string `json:"user_organization,omitempty"`
	ResourceID       uint   `json:"resource_id"`
	ResourceName     string `json:"resource_name"`
	PackageID        uint   `json:"package_id"`
	PackageName      string `json:"package_name"`
	OrgID            uint   `json:"org_id"`
	Message          string `json:"message,omitempty"`
	RejectionMessage string `json:"rejection_message,omitempty"`
	SiteTitle        string `json:"site_title"`
	SiteURL          string `json:"site_url"`
	ResourceLink     string `json:"resource_link,omitempty"`
}

// RegistrationNotice describes a newly registered account for the sysadmin
// notification.
type RegistrationNotice struct {
	UserID    uint   `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	SiteTitle string `json:"site_title"`
	SiteURL   string `json:"site_url"`
}
