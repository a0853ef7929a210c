package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

const testToken = "12345:TESTTOKEN"

// newTestClient returns a client pointed at a server that dispatches by
// Bot API method name.
func newTestClient(t *testing.T, handlers map[string]http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wantPrefix := "/bot" + testToken + "/"
		if len(r.URL.Path) <= len(wantPrefix) {
			t.Errorf("unexpected path %q", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		method := r.URL.Path[len(wantPrefix):]
		h, ok := handlers[method]
		if !ok {
			t.Errorf("unexpected method %q", method)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewWithBaseURL(testToken, srv.URL)
}

func ok(result string) string {
	return fmt.Sprintf(`{"ok":true,"result":%s}`, result)
}

func TestGetMe(t *testing.T) {
	c := newTestClient(t, map[string]http.HandlerFunc{
		"getMe": func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, ok(`{"id":42,"is_bot":true,"first_name":"negar","username":"negarbot"}`))
		},
	})

	u, err := c.GetMe(context.Background())
	if err != nil {
		t.Fatalf("getMe: %v", err)
	}
	if u.ID != 42 || !u.IsBot || u.Username != "negarbot" {
		t.Errorf("unexpected user: %+v", u)
	}
}

func TestGetUpdatesSendsOffsetAndTimeout(t *testing.T) {
	c := newTestClient(t, map[string]http.HandlerFunc{
		"getUpdates": func(w http.ResponseWriter, r *http.Request) {
			var params struct {
				Offset  int64 `json:"offset"`
				Timeout int   `json:"timeout"`
			}
			if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
				t.Errorf("decode params: %v", err)
			}
			if params.Offset != 100 {
				t.Errorf("offset = %d, want 100", params.Offset)
			}
			if params.Timeout != 30 {
				t.Errorf("timeout = %d, want 30", params.Timeout)
			}
			io.WriteString(w, ok(`[
				{"update_id":100,"message":{"message_id":1,"chat":{"id":7,"type":"private"},"text":"سلام"}},
				{"update_id":101,"message":{"message_id":2,"chat":{"id":7,"type":"private"},"text":"hi"}}
			]`))
		},
	})

	updates, err := c.GetUpdates(context.Background(), 100, 30)
	if err != nil {
		t.Fatalf("getUpdates: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("got %d updates, want 2", len(updates))
	}
	if updates[0].UpdateID != 100 || updates[0].Message.Text != "سلام" {
		t.Errorf("unexpected first update: %+v", updates[0])
	}
}

func TestSendMessage(t *testing.T) {
	c := newTestClient(t, map[string]http.HandlerFunc{
		"sendMessage": func(w http.ResponseWriter, r *http.Request) {
			var params struct {
				ChatID int64  `json:"chat_id"`
				Text   string `json:"text"`
			}
			if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
				t.Errorf("decode params: %v", err)
			}
			if params.ChatID != 7 || params.Text != "hello" {
				t.Errorf("unexpected params: %+v", params)
			}
			io.WriteString(w, ok("{}"))
		},
	})

	if err := c.SendMessage(context.Background(), 7, "hello"); err != nil {
		t.Fatalf("sendMessage: %v", err)
	}
}

func TestSendPhotoMultipart(t *testing.T) {
	payload := []byte{0xFF, 0xD8, 0xFF, 0xDB, 0x01, 0x02}

	c := newTestClient(t, map[string]http.HandlerFunc{
		"sendPhoto": func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
				return
			}
			if got := r.FormValue("chat_id"); got != "7" {
				t.Errorf("chat_id = %q, want 7", got)
			}
			file, header, err := r.FormFile("photo")
			if err != nil {
				t.Errorf("photo part: %v", err)
				return
			}
			defer file.Close()
			if header.Filename != "page-1.jpg" {
				t.Errorf("filename = %q, want page-1.jpg", header.Filename)
			}
			data, _ := io.ReadAll(file)
			if len(data) != len(payload) {
				t.Errorf("photo size = %d, want %d", len(data), len(payload))
			}
			io.WriteString(w, ok("{}"))
		},
	})

	if err := c.SendPhoto(context.Background(), 7, "page-1.jpg", payload); err != nil {
		t.Fatalf("sendPhoto: %v", err)
	}
}

func TestAPIErrorSurfaced(t *testing.T) {
	c := newTestClient(t, map[string]http.HandlerFunc{
		"getMe": func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"ok":false,"error_code":401,"description":"Unauthorized"}`)
		},
	})

	_, err := c.GetMe(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Code != 401 || apiErr.Method != "getMe" {
		t.Errorf("unexpected APIError: %+v", apiErr)
	}
}

func TestMalformedResponse(t *testing.T) {
	c := newTestClient(t, map[string]http.HandlerFunc{
		"getMe": func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "<html>gateway error</html>")
		},
	})

	if _, err := c.GetMe(context.Background()); err == nil {
		t.Error("expected error for malformed response")
	}
}
