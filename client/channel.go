package client

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// ConnState tracks the push channel.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateLive
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateLive:
		return "live"
	default:
		return "disconnected"
	}
}

// Open binds both delivery channels to one conversation. Any previously
// open conversation is fully torn down first: its socket is closed and
// its poll ticker stopped before the new channels start, so at most one
// conversation is ever live.
func (c *Client) Open(conversationID string) error {
	if conversationID == "" {
		return fmt.Errorf("client: conversation id is required")
	}
	if !c.session.Valid() {
		return ErrSessionExpired
	}
	c.teardown()

	ctx, cancel := context.WithCancel(context.Background())
	store := NewStore()
	c.mu.Lock()
	c.conversationID = conversationID
	c.store = store
	c.draft = ""
	c.cancel = cancel
	c.mu.Unlock()

	c.running.Add(2)
	go c.pushLoop(ctx, conversationID, store)
	go c.pullLoop(ctx, conversationID, store)
	return nil
}

// Close tears down the active conversation's channels, if any.
func (c *Client) Close() {
	c.teardown()
	c.setState(StateDisconnected, 0)
}

// State returns the push channel state and, while connecting, the
// attempt counter.
func (c *Client) State() (ConnState, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.attempt
}

func (c *Client) teardown() {
	c.mu.Lock()
	// cancel under the lock: a concurrent dial either registers its
	// socket before this (and we close it below) or observes the
	// cancelled context and closes it itself.
	if c.cancel != nil {
		c.cancel()
	}
	conn := c.conn
	c.cancel = nil
	c.conn = nil
	c.conversationID = ""
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	c.running.Wait()
}

// pushLoop keeps one live socket bound to the conversation, redialing
// with exponential backoff when it drops. The pull channel keeps running
// regardless, so a flapping socket never loses messages outright.
func (c *Client) pushLoop(ctx context.Context, conversationID string, store *Store) {
	defer c.running.Done()
	attempt := 0
	for ctx.Err() == nil {
		attempt++
		c.setState(StateConnecting, attempt)
		conn, err := c.dial(ctx, conversationID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			delay := c.backoff(attempt)
			log.Printf("[chat-client] connect %s failed (attempt %d, retry in %s): %v",
				conversationID, attempt, delay, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}

		c.mu.Lock()
		if ctx.Err() != nil {
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()

		attempt = 0
		c.setState(StateLive, 0)
		c.readFrames(ctx, conn, conversationID, store)
		conn.Close()

		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
	}
}

func (c *Client) dial(ctx context.Context, conversationID string) (*websocket.Conn, error) {
	token, err := c.session.Token()
	if err != nil {
		return nil, err
	}
	u := wsBase(c.cfg.BaseURL) + "/chat/ws/" + conversationID + "?token=" + url.QueryEscape(token)
	conn, _, err := c.dialer.DialContext(ctx, u, nil)
	return conn, err
}

// readFrames consumes the socket until it errors, feeding every decoded
// message through the store's dedup gate.
func (c *Client) readFrames(ctx context.Context, conn *websocket.Conn, conversationID string, store *Store) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("[chat-client] socket %s closed: %v", conversationID, err)
			}
			return
		}
		msg, ok := DecodeFrame(data)
		if !ok {
			log.Printf("[chat-client] dropping unrecognized frame on %s", conversationID)
			continue
		}
		if store.Append(msg) {
			c.bumpSummary(conversationID, msg)
			if c.onMessage != nil {
				c.onMessage(msg)
			}
			if c.onUpdate != nil {
				c.onUpdate()
			}
		}
	}
}

// pullLoop refetches the full history on a fixed interval and reconciles
// it against the store. Fetch failures only log; the next tick retries.
func (c *Client) pullLoop(ctx context.Context, conversationID string, store *Store) {
	defer c.running.Done()
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			msgs, err := c.History(ctx, conversationID)
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("[chat-client] poll %s failed: %v", conversationID, err)
				}
				continue
			}
			if store.ReplaceAll(msgs) {
				if len(msgs) > 0 {
					c.bumpSummary(conversationID, msgs[len(msgs)-1])
				}
				if c.onUpdate != nil {
					c.onUpdate()
				}
			}
		}
	}
}

func (c *Client) setState(st ConnState, attempt int) {
	c.mu.Lock()
	c.state = st
	c.attempt = attempt
	fn := c.onState
	c.mu.Unlock()
	if fn != nil {
		fn(st, attempt)
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	if attempt > 16 {
		attempt = 16
	}
	d := c.cfg.ReconnectBase << (attempt - 1)
	if d > c.cfg.ReconnectMax {
		d = c.cfg.ReconnectMax
	}
	return d
}

// wsBase rewrites an http(s) base URL to its ws(s) counterpart.
func wsBase(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}
