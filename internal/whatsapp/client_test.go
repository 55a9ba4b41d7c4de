package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendText(t *testing.T) {
	var got textMessage
	var path, auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Error(err)
		}
		w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "1234", "secret")
	// "o" followed by a combining acute accent
	if err := client.SendText(context.Background(), "51955250357", "reunio\u0301n"); err != nil {
		t.Fatal(err)
	}

	if path != "/1234/messages" {
		t.Errorf("path = %s", path)
	}
	if auth != "Bearer secret" {
		t.Errorf("auth = %s", auth)
	}
	if got.MessagingProduct != "whatsapp" || got.RecipientType != "individual" || got.Type != "text" {
		t.Errorf("envelope = %+v", got)
	}
	if got.To != "51955250357" || got.Text.PreviewURL {
		t.Errorf("message = %+v", got)
	}
	if got.Text.Body != "reunión" {
		t.Errorf("body not NFC-normalised: %q", got.Text.Body)
	}
}

func TestSendTextAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Invalid OAuth access token"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "1234", "bad")
	err := client.SendText(context.Background(), "51", "hola")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("err = %v", err)
	}
}

func TestSendRejectsOtherChannels(t *testing.T) {
	client := NewClient("http://unused", "1234", "secret")
	if err := client.Send(context.Background(), "telegram:42", "hola"); err == nil {
		t.Error("expected an error for a telegram key")
	}
}
