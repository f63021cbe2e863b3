package notifications

import (
	"context"
	"log/slog"

	"gatehouse/internal/middleware"
	"gatehouse/internal/models"
)

// Dispatcher turns workflow events into mail sends. Every method returns a
// plain success flag: dispatch failures are logged and counted, never
// propagated as errors, so the triggering state change is never rolled back
// because a notification could not be delivered.
type Dispatcher struct {
	mailer Mailer
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher over the given mailer.
func NewDispatcher(mailer Mailer) *Dispatcher {
	return &Dispatcher{mailer: mailer, logger: middleware.Logger}
}

func (d *Dispatcher) send(ctx context.Context, kind NoticeKind, name, email, subject, body string, headers map[string]string) bool {
	if err := d.mailer.Send(ctx, name, email, subject, body, headers); err != nil {
		middleware.MailFailures.WithLabelValues(string(kind)).Inc()
		d.logger.ErrorContext(ctx, "notification dispatch failed",
			slog.String("kind", string(kind)),
			slog.String("recipient", email),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

// RequestSubmitted notifies the reviewing admins and sends the requester a
// copy without review links. It succeeds if every admin send succeeded.
func (d *Dispatcher) RequestSubmitted(ctx context.Context, admins []models.User, notice AccessRequestNotice) bool {
	subject, body, err := renderRequestNotice(KindRequestSubmitted, notice)
	if err != nil {
		d.logger.ErrorContext(ctx, "notification render failed",
			slog.String("kind", string(KindRequestSubmitted)),
			slog.String("request_id", notice.RequestID),
			slog.String("error", err.Error()),
		)
		return false
	}

	headers := map[string]string{}
	if notice.UserEmail != "" {
		headers["reply-to"] = notice.UserEmail
	}

	success := len(admins) > 0
	for _, admin := range admins {
		if admin.Email == "" {
			continue
		}
		if !d.send(ctx, KindRequestSubmitted, admin.Name(), admin.Email, subject, body, headers) {
			success = false
		}
	}

	// Copy for the requester so they keep a record of what was sent.
	if notice.UserEmail != "" {
		copyBody := "Please find below a copy of the access request mail sent.\n\n >> " +
			indentQuoted(body)
		d.send(ctx, KindRequestSubmitted, notice.UserName, notice.UserEmail,
			"Fwd: "+subject, copyBody, nil)
	}

	d.logger.InfoContext(ctx, "access request notification dispatched",
		slog.String("request_id", notice.RequestID),
		slog.Int("admins", len(admins)),
		slog.Bool("success", success),
	)
	return success
}

// Decision notifies the requester of an approve, reject or revoke outcome.
func (d *Dispatcher) Decision(ctx context.Context, kind NoticeKind, notice AccessRequestNotice) bool {
	subject, body, err := renderRequestNotice(kind, notice)
	if err != nil {
		d.logger.ErrorContext(ctx, "notification render failed",
			slog.String("kind", string(kind)),
			slog.String("request_id", notice.RequestID),
			slog.String("error", err.Error()),
		)
		return false
	}
	ok := d.send(ctx, kind, notice.UserName, notice.UserEmail, subject, body, nil)
	d.logger.InfoContext(ctx, "decision notification dispatched",
		slog.String("request_id", notice.RequestID),
		slog.String("kind", string(kind)),
		slog.Bool("success", ok),
	)
	return ok
}

// NewRegistration notifies sysadmins that an account was created.
func (d *Dispatcher) NewRegistration(ctx context.Context, sysadmins []models.User, fallbackEmail string, notice RegistrationNotice) bool {
	subject, body, err := renderRegistrationNotice(notice)
	if err != nil {
		d.logger.ErrorContext(ctx, "notification render failed",
			slog.String("kind", string(KindNewRegistration)),
			slog.String("error", err.Error()),
		)
		return false
	}

	sent := false
	for _, admin := range sysadmins {
		if admin.Email == "" {
			continue
		}
		if d.send(ctx, KindNewRegistration, admin.Name(), admin.Email, subject, body, nil) {
			sent = true
		}
	}
	if !sent && fallbackEmail != "" {
		sent = d.send(ctx, KindNewRegistration, "Portal Administrator", fallbackEmail, subject, body, nil)
	}
	return sent
}

func indentQuoted(body string) string {
	out := make([]byte, 0, len(body)+64)
	for i := 0; i < len(body); i++ {
		out = append(out, body[i])
		if body[i] == '\n' {
			out = append(out, ' ', '>', '>', ' ')
		}
	}
	return string(out)
}
