package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/moviegate/moviegate-backend/pkg/config"
	pkgerrors "github.com/moviegate/moviegate-backend/pkg/errors"
	"github.com/moviegate/moviegate-backend/pkg/logger"
)

const (
	sendEndpoint   = "https://api.sendgrid.com/v3/mail/send"
	requestTimeout = 10 * time.Second
)

// Message is a single outbound email.
type Message struct {
	ToEmail string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers transactional email. Consumers stub this in tests.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Client talks to the SendGrid v3 mail send API.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	fromEmail  string
	fromName   string
	logg       *logger.Logger
}

func NewClient(cfg config.SendgridConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	if strings.TrimSpace(cfg.DefaultFrom) == "" {
		return nil, errors.New("sendgrid from email is required")
	}

	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		endpoint:   sendEndpoint,
		apiKey:     cfg.APIKey,
		fromEmail:  cfg.DefaultFrom,
		fromName:   cfg.FromName,
		logg:       logg,
	}, nil
}

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

type personalization struct {
	To []address `json:"to"`
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (c *Client) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.ToEmail) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient email is required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subject is required")
	}
	if msg.HTML == "" && msg.Text == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "message body is required")
	}

	payload := sendRequest{
		Personalizations: []personalization{{
			To: []address{{Email: msg.ToEmail, Name: msg.ToName}},
		}},
		From:    address{Email: c.fromEmail, Name: c.fromName},
		Subject: msg.Subject,
	}
	if msg.Text != "" {
		payload.Content = append(payload.Content, content{Type: "text/plain", Value: msg.Text})
	}
	if msg.HTML != "" {
		payload.Content = append(payload.Content, content{Type: "text/html", Value: msg.HTML})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding mail payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building mail request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sendgrid request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		if c.logg != nil {
			c.logg.Info(ctx, "email accepted by sendgrid")
		}
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	apiErr := fmt.Errorf("sendgrid returned %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, apiErr, "sendgrid unavailable")
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, apiErr, "sendgrid rejected message")
}
