package notifications

import (
	"fmt"
	"strings"
	"text/template"
)

var requestSubmittedTmpl = template.Must(template.New("request_submitted").Parse(
	`Dear admin,

{{.UserName}} ({{.UserEmail}}) has requested access to the resource
"{{.ResourceName}}" in dataset "{{.PackageName}}".
{{if .UserOrganization}}
Affiliation: {{.UserOrganization}}
{{end}}
Message from the requester:

{{.Message}}

Review this request at {{.SiteURL}}/access_requests

Best regards,
{{.SiteTitle}}
`))

var requestGrantedTmpl = template.Must(template.New("request_granted").Parse(
	`Dear {{.UserName}},

Your request for access to the resource "{{.ResourceName}}" in dataset
"{{.PackageName}}" has been approved. You can now view it here:

{{.ResourceLink}}

Best regards,
{{.SiteTitle}}
`))

var requestRejectedTmpl = template.Must(template.New("request_rejected").Parse(
	`Dear {{.UserName}},

Your request for access to the resource "{{.ResourceName}}" in dataset
"{{.PackageName}}" has been rejected.
{{if .RejectionMessage}}
Reason:
{{.RejectionMessage}}
{{end}}
Best regards,
{{.SiteTitle}}
`))

var requestRevokedTmpl = template.Must(template.New("request_revoked").Parse(
	`Dear {{.UserName}},

Your access to the resource "{{.ResourceName}}" in dataset
"{{.PackageName}}" has been revoked.

Best regards,
{{.SiteTitle}}
`))

var newRegistrationTmpl = template.Must(template.New("new_registration").Parse(
	`A new user registered on {{.SiteTitle}}:

* USERNAME: {{.Username}}
* EMAIL: {{.Email}}
* ID: {{.UserID}}

{{.SiteURL}}
`))

func renderRequestNotice(kind NoticeKind, notice AccessRequestNotice) (subject, body string, err error) {
	var tmpl *template.Template
	switch kind {
	case KindRequestSubmitted:
		subject = fmt.Sprintf("Access Request to resource %s (%s) from %s",
			notice.ResourceName, notice.PackageName, notice.UserName)
		tmpl = requestSubmittedTmpl
	case KindRequestGranted:
		subject = fmt.Sprintf("Access to resource %s granted", notice.ResourceName)
		tmpl = requestGrantedTmpl
	case KindRequestRejected:
		subject = fmt.Sprintf("Access Request to resource %s rejected", notice.ResourceName)
		tmpl = requestRejectedTmpl
	case KindRequestRevoked:
		subject = fmt.Sprintf("Access to resource %s revoked", notice.ResourceName)
		tmpl = requestRevokedTmpl
	default:
		return "", "", fmt.Errorf("unknown notice kind %q", kind)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, notice); err != nil {
		return "", "", err
	}
	return subject, sb.String(), nil
}

func renderRegistrationNotice(notice RegistrationNotice) (subject, body string, err error) {
	subject = fmt.Sprintf("New Registration: %s (%s)", notice.Username, notice.Email)
	var sb strings.Builder
	if err := newRegistrationTmpl.Execute(&sb, notice); err != nil {
		return "", "", err
	}
	return subject, sb.String(), nil
}
