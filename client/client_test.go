package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeBackend stands in for the chat API: REST history/send/read/upload
// plus a websocket endpoint per conversation.
type fakeBackend struct {
	mu       sync.Mutex
	history  map[string][]Message
	conns    map[string][]*websocket.Conn
	nextID   int
	sendFail bool

	connected chan string
	closed    chan string
	srv       *httptest.Server
}

var testUpgrader = websocket.Upgrader{}

func newFakeBackend(t *testing.T) *fakeBackend {
	b := &fakeBackend{
		history:   map[string][]Message{},
		conns:     map[string][]*websocket.Conn{},
		connected: make(chan string, 16),
		closed:    make(chan string, 16),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/ws/", b.handleWS)
	mux.HandleFunc("/chat/messages/", b.handleMessages)
	mux.HandleFunc("/chat/upload/", b.handleUpload)
	mux.HandleFunc("/chat/conversations", b.handleConversations)
	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBackend) authorized(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func (b *fakeBackend) addMessage(convID, text, msgType string) Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	m := Message{
		ID:             fmt.Sprintf("srv-%d", b.nextID),
		ConversationID: convID,
		SenderID:       "2",
		SenderRole:     "doctor",
		Message:        text,
		MessageType:    msgType,
		Timestamp:      time.Now().UTC(),
	}
	b.history[convID] = append(b.history[convID], m)
	return m
}

func (b *fakeBackend) setSendFail(fail bool) {
	b.mu.Lock()
	b.sendFail = fail
	b.mu.Unlock()
}

// push broadcasts a new message over every socket attached to the
// conversation, the way the real backend echoes creations.
func (b *fakeBackend) push(convID string, m Message) {
	b.mu.Lock()
	conns := append([]*websocket.Conn(nil), b.conns[convID]...)
	b.mu.Unlock()
	for _, conn := range conns {
		conn.WriteJSON(m)
	}
}

func (b *fakeBackend) closeConns(convID string) {
	b.mu.Lock()
	conns := b.conns[convID]
	b.conns[convID] = nil
	b.mu.Unlock()
	for _, conn := range conns {
		conn.Close()
	}
}

func (b *fakeBackend) handleWS(w http.ResponseWriter, r *http.Request) {
	convID := strings.TrimPrefix(r.URL.Path, "/chat/ws/")
	if r.URL.Query().Get("token") == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	conn, err := testUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.conns[convID] = append(b.conns[convID], conn)
	b.mu.Unlock()
	b.connected <- convID
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	b.closed <- convID
}

func (b *fakeBackend) handleMessages(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"msg": "missing token"})
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/chat/messages/")
	if strings.HasSuffix(rest, "/read") {
		json.NewEncoder(w).Encode(map[string]int{"modified_count": 2})
		return
	}
	switch r.Method {
	case http.MethodGet:
		b.mu.Lock()
		msgs := append([]Message{}, b.history[rest]...)
		b.mu.Unlock()
		json.NewEncoder(w).Encode(msgs)
	case http.MethodPost:
		b.mu.Lock()
		fail := b.sendFail
		b.mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"msg": "failed to save message"})
			return
		}
		var body struct {
			Message string `json:"message"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(b.addMessage(rest, body.Message, MessageTypeText))
	}
}

func (b *fakeBackend) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	convID := strings.TrimPrefix(r.URL.Path, "/chat/upload/")
	f, header, err := r.FormFile("file")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"msg": "file field is required"})
		return
	}
	f.Close()
	m := b.addMessage(convID, header.Filename, MessageTypeFile)
	json.NewEncoder(w).Encode(m)
}

func (b *fakeBackend) handleConversations(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	json.NewEncoder(w).Encode([]Conversation{
		{
			ConversationID: "1_2",
			PartnerID:      "2",
			PartnerName:    "Dr. Ayu",
			PartnerRole:    "doctor",
			ChatEnabled:    true,
			UnreadCount:    2,
		},
	})
}

func testSession() *Session {
	return NewSession("test-token", "1", "patient", time.Time{})
}

func waitRecv(t *testing.T, ch chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("signal for %q, want %q", got, want)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}

func TestOpenSwitchClosesPrevious(t *testing.T) {
	b := newFakeBackend(t)
	c := New(Config{BaseURL: b.srv.URL, PollInterval: time.Hour}, testSession())
	defer c.Close()

	if err := c.Open("1_2"); err != nil {
		t.Fatalf("open 1_2: %v", err)
	}
	waitRecv(t, b.connected, "1_2")

	if err := c.Open("1_3"); err != nil {
		t.Fatalf("open 1_3: %v", err)
	}
	// the prior socket must have gone down, and only then the new one up
	waitRecv(t, b.closed, "1_2")
	waitRecv(t, b.connected, "1_3")

	if got := c.ActiveConversation(); got != "1_3" {
		t.Fatalf("active conversation = %q, want 1_3", got)
	}

	c.Close()
	waitRecv(t, b.closed, "1_3")
	if got := c.ActiveConversation(); got != "" {
		t.Fatalf("conversation still active after Close: %q", got)
	}
}

func TestSendDraftRestoredOnFailure(t *testing.T) {
	b := newFakeBackend(t)
	c := New(Config{BaseURL: b.srv.URL, PollInterval: time.Hour}, testSession())
	defer c.Close()

	if err := c.Open("1_2"); err != nil {
		t.Fatalf("open: %v", err)
	}
	waitRecv(t, b.connected, "1_2")

	b.setSendFail(true)
	const draft = "  hello doctor, about tomorrow "
	c.SetDraft(draft)
	if _, err := c.SendDraft(context.Background()); err == nil {
		t.Fatalf("send should have failed")
	}
	if got := c.Draft(); got != draft {
		t.Fatalf("draft after failure = %q, want the exact original %q", got, draft)
	}

	b.setSendFail(false)
	msg, err := c.SendDraft(context.Background())
	if err != nil {
		t.Fatalf("retry send: %v", err)
	}
	if c.Draft() != "" {
		t.Fatalf("draft should clear on success, got %q", c.Draft())
	}
	msgs := c.Messages()
	if len(msgs) != 1 || msgs[0].ID != msg.ID {
		t.Fatalf("sent message should be in the store once, have %v", ids(msgs))
	}
}

func TestPushDeliveryAndPollNoDup(t *testing.T) {
	b := newFakeBackend(t)
	b.addMessage("1_2", "m1", MessageTypeText)
	b.addMessage("1_2", "m2", MessageTypeText)

	c := New(Config{BaseURL: b.srv.URL, PollInterval: 30 * time.Millisecond}, testSession())
	defer c.Close()
	received := make(chan Message, 8)
	c.OnMessage(func(m Message) { received <- m })

	if err := c.Open("1_2"); err != nil {
		t.Fatalf("open: %v", err)
	}
	waitRecv(t, b.connected, "1_2")
	waitFor(t, func() bool { return len(c.Messages()) == 2 })

	m3 := b.addMessage("1_2", "m3", MessageTypeText)
	b.push("1_2", m3)

	select {
	case got := <-received:
		if got.ID != m3.ID {
			t.Fatalf("push delivered %s, want %s", got.ID, m3.ID)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("push delivery never arrived")
	}

	// several polls now return the identical 3-element list; the store
	// must not grow a duplicate of m3
	time.Sleep(150 * time.Millisecond)
	msgs := c.Messages()
	if len(msgs) != 3 {
		t.Fatalf("store has %d messages %v, want 3", len(msgs), ids(msgs))
	}
	if msgs[2].ID != m3.ID {
		t.Fatalf("last message = %s, want %s", msgs[2].ID, m3.ID)
	}
}

func TestPollDiscoversMissedMessage(t *testing.T) {
	b := newFakeBackend(t)
	b.addMessage("1_2", "m1", MessageTypeText)
	b.addMessage("1_2", "m2", MessageTypeText)
	b.addMessage("1_2", "m3", MessageTypeText)

	c := New(Config{BaseURL: b.srv.URL, PollInterval: 30 * time.Millisecond}, testSession())
	defer c.Close()

	if err := c.Open("1_2"); err != nil {
		t.Fatalf("open: %v", err)
	}
	waitFor(t, func() bool { return len(c.Messages()) == 3 })

	// m4 reaches the server but its push echo is lost: the next poll's
	// longer snapshot is adopted wholesale
	m4 := b.addMessage("1_2", "m4", MessageTypeText)
	waitFor(t, func() bool { return len(c.Messages()) == 4 })
	if msgs := c.Messages(); msgs[3].ID != m4.ID {
		t.Fatalf("last message = %s, want %s", msgs[3].ID, m4.ID)
	}
}

func TestReconnectAfterDrop(t *testing.T) {
	b := newFakeBackend(t)
	c := New(Config{
		BaseURL:       b.srv.URL,
		PollInterval:  time.Hour,
		ReconnectBase: 10 * time.Millisecond,
	}, testSession())
	defer c.Close()

	if err := c.Open("1_2"); err != nil {
		t.Fatalf("open: %v", err)
	}
	waitRecv(t, b.connected, "1_2")

	b.closeConns("1_2")
	waitRecv(t, b.closed, "1_2")
	// the push channel must redial on its own
	waitRecv(t, b.connected, "1_2")
	waitFor(t, func() bool { st, _ := c.State(); return st == StateLive })
}

func TestBackoffCapped(t *testing.T) {
	c := New(Config{ReconnectBase: 100 * time.Millisecond, ReconnectMax: time.Second}, testSession())
	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
		time.Second,
	}
	for i, w := range want {
		if got := c.backoff(i + 1); got != w {
			t.Fatalf("backoff(%d) = %s, want %s", i+1, got, w)
		}
	}
	if got := c.backoff(40); got != time.Second {
		t.Fatalf("deep attempt should stay capped, got %s", got)
	}
}

func TestConversationsAndMarkRead(t *testing.T) {
	b := newFakeBackend(t)
	c := New(Config{BaseURL: b.srv.URL}, testSession())

	convs, err := c.Conversations(context.Background())
	if err != nil {
		t.Fatalf("conversations: %v", err)
	}
	if len(convs) != 1 || convs[0].PartnerName != "Dr. Ayu" || convs[0].UnreadCount != 2 {
		t.Fatalf("unexpected conversations: %+v", convs)
	}
	if sum, ok := c.ConversationSummary("1_2"); !ok || sum.PartnerRole != "doctor" {
		t.Fatalf("summary cache not refreshed: %+v/%v", sum, ok)
	}

	n, err := c.MarkRead(context.Background(), "1_2")
	if err != nil || n != 2 {
		t.Fatalf("MarkRead = %d, %v", n, err)
	}
}

func TestUpload(t *testing.T) {
	b := newFakeBackend(t)
	c := New(Config{BaseURL: b.srv.URL}, testSession())

	msg, err := c.Upload(context.Background(), "1_2", "scan.pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if msg.MessageType != MessageTypeFile || msg.Message != "scan.pdf" {
		t.Fatalf("unexpected upload message: %+v", msg)
	}
}

func TestExpiredSessionRejected(t *testing.T) {
	b := newFakeBackend(t)
	sess := NewSession("tok", "1", "patient", time.Now().Add(-time.Minute))
	c := New(Config{BaseURL: b.srv.URL}, sess)

	if _, err := c.Send(context.Background(), "1_2", "hi"); err != ErrSessionExpired {
		t.Fatalf("want ErrSessionExpired, got %v", err)
	}
	if err := c.Open("1_2"); err != ErrSessionExpired {
		t.Fatalf("open with expired session: want ErrSessionExpired, got %v", err)
	}
}
