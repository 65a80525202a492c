package mailer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/moviegate/moviegate-backend/pkg/config"
	pkgerrors "github.com/moviegate/moviegate-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) *http.Response

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient(config.SendgridConfig{
		APIKey:      "sg-key",
		DefaultFrom: "noreply@moviegate.example",
		FromName:    "MovieGate",
	}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	client.httpClient = &http.Client{Transport: rt}
	return client
}

func TestSendSuccess(t *testing.T) {
	t.Parallel()

	var captured sendRequest
	client := newTestClient(t, func(req *http.Request) *http.Response {
		if req.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", req.Method)
		}
		if got := req.Header.Get("Authorization"); got != "Bearer sg-key" {
			t.Fatalf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(req.Body).Decode(&captured); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		return &http.Response{
			StatusCode: http.StatusAccepted,
			Body:       io.NopCloser(strings.NewReader("")),
			Header:     http.Header{},
		}
	})

	err := client.Send(context.Background(), Message{
		ToEmail: "viewer@example.com",
		ToName:  "Viewer",
		Subject: "Activate your account",
		HTML:    "<p>Welcome</p>",
		Text:    "Welcome",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if captured.From.Email != "noreply@moviegate.example" {
		t.Fatalf("unexpected from %q", captured.From.Email)
	}
	if len(captured.Personalizations) != 1 || captured.Personalizations[0].To[0].Email != "viewer@example.com" {
		t.Fatalf("unexpected recipients %+v", captured.Personalizations)
	}
	if len(captured.Content) != 2 || captured.Content[0].Type != "text/plain" {
		t.Fatalf("unexpected content %+v", captured.Content)
	}
}

func TestSendValidation(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(*http.Request) *http.Response {
		t.Fatal("request should not be sent")
		return nil
	})

	cases := []struct {
		name string
		msg  Message
	}{
		{"missing recipient", Message{Subject: "s", Text: "b"}},
		{"missing subject", Message{ToEmail: "a@b.c", Text: "b"}},
		{"missing body", Message{ToEmail: "a@b.c", Subject: "s"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := client.Send(context.Background(), tc.msg)
			appErr := pkgerrors.As(err)
			if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestSendServerErrorIsDependency(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(*http.Request) *http.Response {
		return &http.Response{
			StatusCode: http.StatusServiceUnavailable,
			Body:       io.NopCloser(strings.NewReader(`{"errors":[{"message":"down"}]}`)),
			Header:     http.Header{},
		}
	})

	err := client.Send(context.Background(), Message{
		ToEmail: "viewer@example.com",
		Subject: "Order receipt",
		Text:    "Thanks",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestSendBadRequestIsValidation(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(*http.Request) *http.Response {
		return &http.Response{
			StatusCode: http.StatusBadRequest,
			Body:       io.NopCloser(strings.NewReader(`{"errors":[{"message":"bad from"}]}`)),
			Header:     http.Header{},
		}
	})

	err := client.Send(context.Background(), Message{
		ToEmail: "viewer@example.com",
		Subject: "Order receipt",
		Text:    "Thanks",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewClientRequiresConfig(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(config.SendgridConfig{DefaultFrom: "a@b.c"}, nil); err == nil {
		t.Fatal("expected error without api key")
	}
	if _, err := NewClient(config.SendgridConfig{APIKey: "k"}, nil); err == nil {
		t.Fatal("expected error without from email")
	}
}
