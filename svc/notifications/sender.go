package notifications

import (
	"context"
	"database/sql"
	"encoding/json"

	"encore.dev/cron"

	"encore.app/pkg/errs"
	"encore.app/pkg/mailer"
	"encore.app/pkg/metrics"
	"encore.app/pkg/templates"
)

// background email processor (Queue + Retry up to 3 with backoff handled in DB trigger)

// ProcessEmailQueueResponse is the named response type for the private API
type ProcessEmailQueueResponse struct {
	Processed int `json:"processed"`
}

//encore:api private
func ProcessEmailQueue(ctx context.Context) (*ProcessEmailQueueResponse, error) {
	client := mailer.NewClient()
	// fetch a batch of queued email notifications ready to send
	rows, err := db.Stdlib().QueryContext(ctx, `
		SELECT id, user_id, template_id, payload
		FROM notifications
		WHERE channel='email'
		  AND (
			status = 'queued'
			OR (
			  status = 'failed' AND next_retry_at IS NOT NULL AND next_retry_at <= NOW()
			)
		  )
		ORDER BY created_at ASC
		LIMIT 50`)
	if err != nil {
		return nil, errs.New(errs.NtfQueueQueryFailed, "فشل الاستعلام عن الطابور")
	}
	defer rows.Close()
	processed := 0
	for rows.Next() {
		var id int64
		var userID sql.NullInt64 // NULL for guest recipients (contact replies, newsletter)
		var templateID string
		var payload json.RawMessage
		if err := rows.Scan(&id, &userID, &templateID, &payload); err != nil {
			// a malformed row must not stall the head of the queue; fail it and move on
			if id != 0 {
				_, _ = db.Stdlib().ExecContext(ctx, `
					UPDATE notifications
					SET
					  retry_count = retry_count + 1,
					  status = CASE WHEN retry_count + 1 >= max_retries THEN 'archived' ELSE 'failed' END,
					  failed_reason = $2
					WHERE id = $1
				`, id, "row scan failed")
			}
			continue
		}
		// mark as sending (claim)
		res, err := db.Stdlib().ExecContext(ctx, `
			UPDATE notifications
			SET status='sending'
			WHERE id=$1 AND (
				status='queued' OR (status='failed' AND next_retry_at IS NOT NULL AND next_retry_at <= NOW())
			)
		`, id)
		if err != nil {
			continue
		}
		ra, _ := res.RowsAffected()
		if ra == 0 {
			// someone else claimed it
			continue
		}
		// build email from template
		var pl map[string]any
		_ = json.Unmarshal(payload, &pl)

		// Normalize template keys: ensure capitalized keys used by templates
		if nameLower, ok := pl["name"].(string); ok {
			if _, exists := pl["Name"]; !exists {
				pl["Name"] = nameLower
			}
		}

		// Recipient's preferred language (default to Arabic)
		lang := "ar"
		if userLang, ok := pl["language"].(string); ok && userLang != "" {
			lang = userLang
		}

		// Extract recipient safely
		toEmail, _ := pl["email"].(string)
		toName, _ := pl["name"].(string)
		if toName == "" {
			toName = "Customer"
		}
		if toEmail == "" {
			// fail fast: missing recipient email
			_, _ = db.Stdlib().ExecContext(ctx, `
				UPDATE notifications
				SET
				  retry_count = retry_count + 1,
				  status = CASE WHEN retry_count + 1 >= max_retries THEN 'archived' ELSE 'failed' END,
				  failed_reason = $2
				WHERE id = $1
			`, id, "missing recipient email")
			continue
		}

		subject, htmlBody, textBody, err := renderWithOverrides(ctx, templateID, lang, templates.TemplateData(pl))
		if err != nil {
			// fallback to simple notification if template fails
			subject = templateID
			htmlBody = "<p>Notification</p>"
			textBody = "Notification"
		}

		mail := mailer.Mail{
			FromName:  "مجوهرات نور",
			FromEmail: "noreply@noor-jewels.com",
			ToName:    toName,
			ToEmail:   toEmail,
			Subject:   subject,
			HTML:      htmlBody,
			Text:      textBody,
		}
		err = client.Send(ctx, mail)
		if err == nil {
			_, _ = db.Stdlib().ExecContext(ctx, `UPDATE notifications SET status='sent', sent_at=NOW() WHERE id=$1`, id)
			metrics.EmailsSentTotal.WithLabelValues(templateID, "sent").Inc()
			processed++
			continue
		}
		// failure: increment retry_count and set failed_reason; trigger will schedule next_retry_at
		metrics.EmailsSentTotal.WithLabelValues(templateID, "failed").Inc()
		_, _ = db.Stdlib().ExecContext(ctx, `
			UPDATE notifications
			SET
			  retry_count = retry_count + 1,
			  status = CASE WHEN retry_count + 1 >= max_retries THEN 'archived' ELSE 'failed' END,
			  failed_reason = $2
			WHERE id=$1`, id, err.Error())
	}
	return &ProcessEmailQueueResponse{Processed: processed}, nil
}

// renderWithOverrides renders a template, preferring admin-edited overrides
// from email_templates over the built-in content. An override row carries one
// language; missing languages fall through to the built-in.
func renderWithOverrides(ctx context.Context, templateID, lang string, data templates.TemplateData) (subject, html, text string, err error) {
	base, err := templates.GetTemplate(templateID)
	if err != nil {
		return "", "", "", err
	}

	tmpl := &templates.EmailTemplate{
		ID:          base.ID,
		Description: base.Description,
		Subject:     map[string]string{},
		HTMLBody:    map[string]string{},
		TextBody:    map[string]string{},
	}
	for k, v := range base.Subject {
		tmpl.Subject[k] = v
	}
	for k, v := range base.HTMLBody {
		tmpl.HTMLBody[k] = v
	}
	for k, v := range base.TextBody {
		tmpl.TextBody[k] = v
	}

	orows, qerr := db.Stdlib().QueryContext(ctx, `
		SELECT lang, subject, html_body, text_body
		FROM email_templates
		WHERE template_id = $1
	`, templateID)
	if qerr == nil {
		defer orows.Close()
		for orows.Next() {
			var l, s, h, t string
			if err := orows.Scan(&l, &s, &h, &t); err != nil {
				continue
			}
			if s != "" {
				tmpl.Subject[l] = s
			}
			if h != "" {
				tmpl.HTMLBody[l] = h
			}
			if t != "" {
				tmpl.TextBody[l] = t
			}
		}
	}

	return templates.Render(tmpl, lang, data)
}

var _ = cron.NewJob("notifications-email-queue", cron.JobConfig{
	Title:    "Process email notifications queue",
	Every:    2 * cron.Minute,
	Endpoint: ProcessEmailQueue,
})

// Utility to enqueue an email notification
func EnqueueEmail(ctx context.Context, userID int64, templateID string, payload any) (int64, error) {
	buf, _ := json.Marshal(payload)
	var id int64
	if err := db.Stdlib().QueryRowContext(ctx, `
		INSERT INTO notifications (user_id, channel, template_id, payload, status)
		VALUES ($1,'email',$2,$3,'queued')
		RETURNING id
	`, userID, templateID, json.RawMessage(buf)).Scan(&id); err != nil {
		return 0, errs.New(errs.NtfQueueInsertFailed, "فشل إدراج الإشعار")
	}
	return id, nil
}

// Utility to enqueue an internal (inbox) notification
func EnqueueInternal(ctx context.Context, userID int64, templateID string, payload any) (int64, error) {
	buf, _ := json.Marshal(payload)
	var id int64
	if err := db.Stdlib().QueryRowContext(ctx, `
		INSERT INTO notifications (user_id, channel, template_id, payload, status)
		VALUES ($1,'internal',$2,$3,'queued')
		RETURNING id
	`, userID, templateID, json.RawMessage(buf)).Scan(&id); err != nil {
		return 0, errs.New(errs.NtfQueueInsertFailed, "فشل إدراج الإشعار الداخلي")
	}
	return id, nil
}
