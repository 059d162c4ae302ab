package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClientRequiresPageID(t *testing.T) {
	if _, err := NewClient(); err == nil {
		t.Error("expected error without page id")
	}
}

func TestSendMessageSuccess(t *testing.T) {
	var gotPath, gotToken string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("access_token")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"recipient_id":"u1","message_id":"mid.1"}`))
	}))
	defer srv.Close()

	client, err := NewClient(WithPageID("page1"), WithAccessToken("tok"), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if err := client.SendMessage(context.Background(), "u1", "hello"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if gotPath != "/page1/messages" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotToken != "tok" {
		t.Errorf("unexpected token %q", gotToken)
	}
	recipient, _ := gotBody["recipient"].(map[string]interface{})
	message, _ := gotBody["message"].(map[string]interface{})
	if recipient["id"] != "u1" || message["text"] != "hello" {
		t.Errorf("unexpected request body %v", gotBody)
	}
}

func TestSendMessageEmptyTextIsNoop(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	client, err := NewClient(WithPageID("page1"), WithAccessToken("tok"), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if err := client.SendMessage(context.Background(), "u1", ""); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if called {
		t.Error("expected no HTTP call for empty text")
	}
}

func TestSendMessageWithoutTokenFails(t *testing.T) {
	client, err := NewClient(WithPageID("page1"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if err := client.SendMessage(context.Background(), "u1", "hello"); err == nil {
		t.Error("expected error without access token")
	}
}

func TestSendMessageDecodesGraphError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"No matching user found","type":"OAuthException","code":100,"error_subcode":2018001}}`))
	}))
	defer srv.Close()

	client, err := NewClient(WithPageID("page1"), WithAccessToken("tok"), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	err = client.SendMessage(context.Background(), "u1", "hello")
	if err == nil {
		t.Fatal("expected an error")
	}
	var graphErr *GraphError
	if !errors.As(err, &graphErr) {
		t.Fatalf("expected GraphError, got %T", err)
	}
	if graphErr.Code != 100 || graphErr.Subcode != SubcodeNoMatchingUser {
		t.Errorf("unexpected graph error %+v", graphErr)
	}
	if !errors.Is(err, ErrNoMatchingUser) {
		t.Error("expected error to unwrap to ErrNoMatchingUser")
	}
}

func TestSendMessageNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	client, err := NewClient(WithPageID("page1"), WithAccessToken("tok"), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	err = client.SendMessage(context.Background(), "u1", "hello")
	var graphErr *GraphError
	if !errors.As(err, &graphErr) {
		t.Fatalf("expected GraphError, got %T", err)
	}
	if graphErr.HTTPStatus != http.StatusBadGateway {
		t.Errorf("expected status recorded, got %d", graphErr.HTTPStatus)
	}
	if errors.Is(err, ErrNoMatchingUser) {
		t.Error("did not expect the no-matching-user sentinel")
	}
}

func TestExchangeLongLivedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/access_token" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("grant_type") != "fb_exchange_token" || q.Get("client_id") != "app1" ||
			q.Get("client_secret") != "shh" || q.Get("fb_exchange_token") != "short-tok" {
			t.Errorf("unexpected query %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"long-tok","token_type":"bearer","expires_in":5183944}`))
	}))
	defer srv.Close()

	client, err := NewClient(WithPageID("page1"), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	token, expiresIn, err := client.ExchangeLongLivedToken(context.Background(), "app1", "shh", "short-tok")
	if err != nil {
		t.Fatalf("ExchangeLongLivedToken failed: %v", err)
	}
	if token != "long-tok" || expiresIn != 5183944 {
		t.Errorf("unexpected exchange result token=%q expires_in=%d", token, expiresIn)
	}
}

func TestUpgradeUserToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/oauth/access_token":
			w.Write([]byte(`{"access_token":"long-tok","expires_in":5183944}`))
		case "/me/accounts":
			if r.URL.Query().Get("access_token") != "long-tok" {
				t.Errorf("expected discovery to use the upgraded token, got %q", r.URL.Query().Get("access_token"))
			}
			w.Write([]byte(`{"data":[{"id":"page1","access_token":"page-tok"}]}`))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer srv.Close()

	client, err := NewClient(WithPageID("page1"), WithUserToken("short-tok"), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if err := client.UpgradeUserToken(context.Background(), "app1", "shh"); err != nil {
		t.Fatalf("UpgradeUserToken failed: %v", err)
	}
	if err := client.ResolvePageToken(context.Background()); err != nil {
		t.Fatalf("ResolvePageToken failed: %v", err)
	}
	if !client.HasAccessToken() {
		t.Error("expected page token after upgrade and discovery")
	}
}

func TestUpgradeUserTokenNoopWithoutUserToken(t *testing.T) {
	client, err := NewClient(WithPageID("page1"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if err := client.UpgradeUserToken(context.Background(), "app1", "shh"); err != nil {
		t.Errorf("expected noop, got %v", err)
	}
}

func TestResolvePageToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/accounts" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":"other","access_token":"nope"},{"id":"page1","access_token":"page-tok"}]}`))
	}))
	defer srv.Close()

	client, err := NewClient(WithPageID("page1"), WithUserToken("user-tok"), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client.HasAccessToken() {
		t.Fatal("expected no page token before resolution")
	}
	if err := client.ResolvePageToken(context.Background()); err != nil {
		t.Fatalf("ResolvePageToken failed: %v", err)
	}
	if !client.HasAccessToken() {
		t.Error("expected page token after resolution")
	}
}

func TestResolvePageTokenNoopWhenTokenSet(t *testing.T) {
	client, err := NewClient(WithPageID("page1"), WithAccessToken("tok"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if err := client.ResolvePageToken(context.Background()); err != nil {
		t.Errorf("expected noop, got %v", err)
	}
}

func TestResolvePageTokenPageMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":"other","access_token":"nope"}]}`))
	}))
	defer srv.Close()

	client, err := NewClient(WithPageID("page1"), WithUserToken("user-tok"), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if err := client.ResolvePageToken(context.Background()); err == nil {
		t.Error("expected error when page is not among accounts")
	}
}
