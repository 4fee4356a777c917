package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// secrets holds Encore-managed secrets for Mailgun integration.
var secrets struct {
	MailgunAPIKey    string //encore:secret
	MailgunDomain    string //encore:secret
	MailgunFromEmail string //encore:secret
	MailgunFromName  string //encore:secret
}

// Client provides email sending via Mailgun HTTP API.
type Client struct {
	apiKey     string
	domain     string
	fromEmail  string
	fromName   string
	apiBaseURL string
}

// NewClient constructs a new Mailgun mailer client.
func NewClient() *Client {
	return &Client{
		apiKey:     secrets.MailgunAPIKey,
		domain:     secrets.MailgunDomain,
		fromEmail:  secrets.MailgunFromEmail,
		fromName:   secrets.MailgunFromName,
		apiBaseURL: "https://api.mailgun.net/v3",
	}
}

// Mail represents an email to send.
type Mail struct {
	FromName  string
	FromEmail string
	ToName    string
	ToEmail   string
	Subject   string
	HTML      string
	Text      string
}

// Send sends an email using Mailgun HTTP API.
func (c *Client) Send(ctx context.Context, m Mail) error {
	if c.apiKey == "" || c.domain == "" {
		return errors.New("missing Mailgun API key or domain")
	}

	fromEmail := m.FromEmail
	fromName := m.FromName
	if fromEmail == "" {
		fromEmail = c.fromEmail
	}
	if fromName == "" {
		fromName = c.fromName
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	writer.WriteField("from", fmt.Sprintf("%s <%s>", fromName, fromEmail))
	writer.WriteField("to", fmt.Sprintf("%s <%s>", m.ToName, m.ToEmail))
	writer.WriteField("subject", m.Subject)
	if m.HTML != "" {
		writer.WriteField("html", m.HTML)
	}
	if m.Text != "" {
		writer.WriteField("text", m.Text)
	}
	contentType := writer.FormDataContentType()
	writer.Close()

	url := fmt.Sprintf("%s/%s/messages", c.apiBaseURL, c.domain)
	req, err := http.NewRequestWithContext(ctx, "POST", url, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth("api", c.apiKey)
	req.Header.Set("Content-Type", contentType)

	httpClient := &http.Client{Timeout: 10 * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mailgun error: status=%d, body=%s", resp.StatusCode, string(body))
	}
	return nil
}
