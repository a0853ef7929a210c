// Package telegram is a minimal Bot API client covering the calls the bot
// actually makes: identity check, long-polled update fetching, and sending
// text, chat actions, and photos.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// DefaultBaseURL is the production Bot API endpoint. Tests point a client
// at an httptest server instead.
const DefaultBaseURL = "https://api.telegram.org"

// maxResponseBytes caps how much of an API response body is read.
const maxResponseBytes = 4 << 20

// APIError is a Bot API call that reached the server and was rejected.
type APIError struct {
	// Method is the Bot API method that failed.
	Method string
	// Code is the error_code from the response.
	Code int
	// Description is the human-readable reason from the response.
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// User is a Telegram account, including the bot's own identity.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// Chat is the conversation a message belongs to.
type Chat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Username string `json:"username"`
}

// Message is an incoming or sent message. Only text messages carry Text;
// stickers, photos and the rest leave it empty.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Date      int64  `json:"date"`
	Text      string `json:"text"`
}

// Update is one entry from getUpdates. Fields other than Message are not
// requested and stay nil.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// apiResponse is the envelope every Bot API call returns.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

// ///////////////////////////////////////////////
// Client
// ///////////////////////////////////////////////

// Client talks to the Bot API with automatic retries on transport-level
// failures. It is safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *retryablehttp.Client
}

// New creates a client for the production Bot API.
func New(token string) *Client {
	return NewWithBaseURL(token, DefaultBaseURL)
}

// NewWithBaseURL creates a client against an alternate endpoint. The HTTP
// timeout is sized to outlast the longest supported long poll.
func NewWithBaseURL(token, baseURL string) *Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 2
	c.HTTPClient.Timeout = 2 * time.Minute
	c.Logger = nil // suppress retryablehttp's default logging

	return &Client{baseURL: baseURL, token: token, http: c}
}

// call posts one Bot API method and decodes the result envelope into out,
// when out is non-nil.
func (c *Client) call(ctx context.Context, method, contentType string, body []byte, out any) error {
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("telegram %s: reading response: %w", method, err)
	}

	var env apiResponse
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("telegram %s: malformed response: %w", method, err)
	}
	if !env.OK {
		return &APIError{Method: method, Code: env.ErrorCode, Description: env.Description}
	}
	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("telegram %s: decoding result: %w", method, err)
		}
	}
	return nil
}

// callJSON marshals params and posts them as a JSON body.
func (c *Client) callJSON(ctx context.Context, method string, params, out any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("telegram %s: encoding request: %w", method, err)
	}
	return c.call(ctx, method, "application/json", body, out)
}

// GetMe fetches the bot's own identity; used at startup to validate the token.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var u User
	if err := c.callJSON(ctx, "getMe", struct{}{}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUpdates long-polls for updates after offset. timeout is the server-side
// hold in seconds; the call returns early when updates arrive.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	params := struct {
		Offset         int64    `json:"offset"`
		Timeout        int      `json:"timeout"`
		AllowedUpdates []string `json:"allowed_updates"`
	}{
		Offset:         offset,
		Timeout:        timeout,
		AllowedUpdates: []string{"message"},
	}

	var updates []Update
	if err := c.callJSON(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage sends plain text to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	params := struct {
		ChatID int64  `json:"chat_id"`
		Text   string `json:"text"`
	}{ChatID: chatID, Text: text}
	return c.callJSON(ctx, "sendMessage", params, nil)
}

// SendChatAction broadcasts a typing-style status, e.g. "upload_photo".
func (c *Client) SendChatAction(ctx context.Context, chatID int64, action string) error {
	params := struct {
		ChatID int64  `json:"chat_id"`
		Action string `json:"action"`
	}{ChatID: chatID, Action: action}
	return c.callJSON(ctx, "sendChatAction", params, nil)
}

// SendPhoto uploads an in-memory image to a chat as a photo.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, name string, photo []byte) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("chat_id", fmt.Sprintf("%d", chatID)); err != nil {
		return fmt.Errorf("telegram sendPhoto: %w", err)
	}
	part, err := mw.CreateFormFile("photo", name)
	if err != nil {
		return fmt.Errorf("telegram sendPhoto: %w", err)
	}
	if _, err := part.Write(photo); err != nil {
		return fmt.Errorf("telegram sendPhoto: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("telegram sendPhoto: %w", err)
	}

	return c.call(ctx, "sendPhoto", mw.FormDataContentType(), buf.Bytes(), nil)
}
