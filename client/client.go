package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Config tunes a Client. Zero values fall back to the defaults below.
type Config struct {
	// BaseURL is the backend root, e.g. "http://localhost:8000".
	BaseURL string
	// PollInterval is the pull-channel tick. Default 3s.
	PollInterval time.Duration
	// ReconnectBase and ReconnectMax bound the push channel's exponential
	// backoff. Defaults 500ms and 30s.
	ReconnectBase time.Duration
	ReconnectMax  time.Duration

	HTTPClient *http.Client
	Dialer     *websocket.Dialer
}

const (
	defaultPollInterval  = 3 * time.Second
	defaultReconnectBase = 500 * time.Millisecond
	defaultReconnectMax  = 30 * time.Second
)

// Client talks to the chat backend over two channels: a live socket per
// open conversation (push) and a fixed-interval refetch (pull). Both feed
// the same Store, so a message arriving on either path renders once.
type Client struct {
	cfg     Config
	session *Session
	httpc   *http.Client
	dialer  *websocket.Dialer

	mu             sync.Mutex
	conversationID string
	store          *Store
	draft          string
	conn           *websocket.Conn
	cancel         context.CancelFunc
	running        sync.WaitGroup
	convs          map[string]Conversation
	state          ConnState
	attempt        int

	onMessage func(Message)
	onUpdate  func()
	onState   func(ConnState, int)
}

// New builds a Client around an injected session. Callbacks must be set
// before Open.
func New(cfg Config, session *Session) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.ReconnectBase <= 0 {
		cfg.ReconnectBase = defaultReconnectBase
	}
	if cfg.ReconnectMax <= 0 {
		cfg.ReconnectMax = defaultReconnectMax
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &Client{
		cfg:     cfg,
		session: session,
		httpc:   httpc,
		dialer:  dialer,
		store:   NewStore(),
		convs:   map[string]Conversation{},
		state:   StateDisconnected,
	}
}

// OnMessage fires for every message newly appended through the push
// channel.
func (c *Client) OnMessage(fn func(Message)) { c.onMessage = fn }

// OnUpdate fires whenever the store content changes on any path.
func (c *Client) OnUpdate(fn func()) { c.onUpdate = fn }

// OnStateChange fires on push-channel transitions; attempt is the
// connect attempt counter, zero once live.
func (c *Client) OnStateChange(fn func(ConnState, int)) { c.onState = fn }

// Messages returns a copy of the active conversation's store.
func (c *Client) Messages() []Message {
	c.mu.Lock()
	store := c.store
	c.mu.Unlock()
	return store.Messages()
}

// ActiveConversation returns the id the channels are currently bound to,
// empty when closed.
func (c *Client) ActiveConversation() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversationID
}

// ConversationSummary returns the cached summary for one thread,
// refreshed by Conversations and by incoming pushes.
func (c *Client) ConversationSummary(conversationID string) (Conversation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv, ok := c.convs[conversationID]
	return conv, ok
}

// SetDraft stores the text the user is composing for the active
// conversation.
func (c *Client) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
}

func (c *Client) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SendDraft clears the draft optimistically, then sends it. On failure
// the exact text is restored so the user can retry.
func (c *Client) SendDraft(ctx context.Context) (Message, error) {
	c.mu.Lock()
	text := c.draft
	conversationID := c.conversationID
	c.draft = ""
	c.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		return Message{}, fmt.Errorf("client: nothing to send")
	}
	if conversationID == "" {
		c.restoreDraft(text)
		return Message{}, fmt.Errorf("client: no open conversation")
	}
	msg, err := c.Send(ctx, conversationID, text)
	if err != nil {
		c.restoreDraft(text)
		return Message{}, err
	}
	return msg, nil
}

func (c *Client) restoreDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
}

// Conversations lists the caller's threads and refreshes the summary
// cache.
func (c *Client) Conversations(ctx context.Context) ([]Conversation, error) {
	var out []Conversation
	if err := c.doJSON(ctx, http.MethodGet, "/chat/conversations", nil, &out); err != nil {
		return nil, err
	}
	c.mu.Lock()
	for _, conv := range out {
		c.convs[conv.ConversationID] = conv
	}
	c.mu.Unlock()
	return out, nil
}

// History fetches the full ordered message list for one conversation.
func (c *Client) History(ctx context.Context, conversationID string) ([]Message, error) {
	var out []Message
	if err := c.doJSON(ctx, http.MethodGet, "/chat/messages/"+conversationID, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Send creates one message over REST. The stored record from the
// response goes through the dedup gate immediately, so the sender does
// not wait for its own socket echo.
func (c *Client) Send(ctx context.Context, conversationID, text string) (Message, error) {
	body := map[string]string{"message": text}
	var msg Message
	if err := c.doJSON(ctx, http.MethodPost, "/chat/messages/"+conversationID, body, &msg); err != nil {
		return Message{}, err
	}
	c.adopt(conversationID, msg)
	return msg, nil
}

// MarkRead acknowledges every unread message in the conversation and
// returns how many records changed.
func (c *Client) MarkRead(ctx context.Context, conversationID string) (int, error) {
	var out struct {
		ModifiedCount int `json:"modified_count"`
	}
	if err := c.doJSON(ctx, http.MethodPut, "/chat/messages/"+conversationID+"/read", nil, &out); err != nil {
		return 0, err
	}
	return out.ModifiedCount, nil
}

// Upload posts a file as a multipart form (field "file") and returns the
// resulting file-type message.
func (c *Client) Upload(ctx context.Context, conversationID, filename string, r io.Reader) (Message, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return Message{}, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return Message{}, err
	}
	if err := w.Close(); err != nil {
		return Message{}, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/chat/upload/"+conversationID, &buf)
	if err != nil {
		return Message{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Message{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Message{}, fmt.Errorf("client: upload failed: %s", respError(resp))
	}
	var msg Message
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return Message{}, err
	}
	c.adopt(conversationID, msg)
	return msg, nil
}

// adopt routes a message returned by a direct REST call through the
// store, but only when it belongs to the conversation the channels are
// bound to.
func (c *Client) adopt(conversationID string, msg Message) {
	c.mu.Lock()
	active := c.conversationID == conversationID
	store := c.store
	c.mu.Unlock()
	if !active {
		return
	}
	if store.Append(msg) {
		c.bumpSummary(conversationID, msg)
		if c.onUpdate != nil {
			c.onUpdate()
		}
	}
}

// bumpSummary refreshes the cached conversation entry's last-message
// fields.
func (c *Client) bumpSummary(conversationID string, msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv, ok := c.convs[conversationID]
	if !ok {
		conv = Conversation{ConversationID: conversationID}
	}
	conv.LastMessage = msg.Message
	conv.LastMessageTime = msg.Timestamp
	c.convs[conversationID] = conv
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	token, err := c.session.Token()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(raw)
	}
	req, err := c.newRequest(ctx, method, path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("client: %s %s: %s", method, path, respError(resp))
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// respError extracts the backend's {"msg": ...} error body, falling back
// to the HTTP status.
func respError(resp *http.Response) string {
	var payload struct {
		Msg string `json:"msg"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload); err == nil && payload.Msg != "" {
		return fmt.Sprintf("%s (%s)", payload.Msg, resp.Status)
	}
	return resp.Status
}
