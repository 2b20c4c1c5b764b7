// Package client connects the store to the reference backend over a
// websocket. It implements store.Remote and hands subscription feeds to
// the caller.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
	"nhooyr.io/websocket"

	"github.com/lotas/lesezeichen/internal/applog"
	"github.com/lotas/lesezeichen/internal/protocol"
	"github.com/lotas/lesezeichen/internal/store"
	"github.com/lotas/lesezeichen/internal/types"
)

var (
	// ErrUnauthorized is returned when the backend rejects ownership.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrClosed is returned for calls on a closed connection.
	ErrClosed = errors.New("connection closed")
)

// Client is one authenticated websocket connection.
type Client struct {
	conn   *websocket.Conn
	onFeed func(protocol.Message)

	mu      sync.Mutex
	waiting map[string]chan protocol.Message

	revision atomic.Int64
	done     chan struct{}
	err      error
}

// Dial connects to url with token and starts reading. onFeed receives
// every non-ack message from the reading goroutine.
func Dial(ctx context.Context, url, token string, onFeed func(protocol.Message)) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": {"Bearer " + token}},
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	conn.SetReadLimit(16 << 20)

	c := &Client{
		conn:    conn,
		onFeed:  onFeed,
		waiting: make(map[string]chan protocol.Message),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	applog.Info("client.connected", "url", url)
	return c, nil
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns why the connection ended, once Done is closed.
func (c *Client) Err() error {
	<-c.done
	return c.err
}

// Revision returns the highest backend revision seen so far.
func (c *Client) Revision() int64 {
	return c.revision.Load()
}

// Close ends the connection. Calls in flight fail with ErrClosed.
func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

func (c *Client) readLoop() {
	defer func() {
		c.mu.Lock()
		for id, ch := range c.waiting {
			close(ch)
			delete(c.waiting, id)
		}
		close(c.done)
		c.mu.Unlock()
	}()

	for {
		_, data, err := c.conn.Read(context.Background())
		if err != nil {
			c.err = err
			applog.Info("client.disconnected", "err", err)
			return
		}
		var m protocol.Message
		if err := json.Unmarshal(data, &m); err != nil {
			applog.Error("client.parse", err)
			continue
		}
		c.observe(m.Revision)

		if m.Type == protocol.TypeAck {
			c.mu.Lock()
			ch, ok := c.waiting[m.ID]
			delete(c.waiting, m.ID)
			c.mu.Unlock()
			if ok {
				ch <- m
			}
			continue
		}
		if c.onFeed != nil {
			c.onFeed(m)
		}
	}
}

func (c *Client) observe(rev int64) {
	for {
		cur := c.revision.Load()
		if rev <= cur || c.revision.CompareAndSwap(cur, rev) {
			return
		}
	}
}

// call sends req and waits for its ack.
func (c *Client) call(ctx context.Context, req protocol.Request) (protocol.Message, error) {
	req.ID = ulid.Make().String()
	ch := make(chan protocol.Message, 1)

	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return protocol.Message{}, ErrClosed
	default:
	}
	c.waiting[req.ID] = ch
	c.mu.Unlock()

	data, err := json.Marshal(req)
	if err != nil {
		c.forget(req.ID)
		return protocol.Message{}, err
	}
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		c.forget(req.ID)
		return protocol.Message{}, fmt.Errorf("send %s: %w", req.Action, err)
	}

	select {
	case ack, ok := <-ch:
		if !ok {
			return protocol.Message{}, ErrClosed
		}
		return ack, ackError(req.Action, ack)
	case <-ctx.Done():
		c.forget(req.ID)
		return protocol.Message{}, ctx.Err()
	}
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.waiting, id)
	c.mu.Unlock()
}

// ackError turns a failed ack into an error wrapping the matching sentinel.
func ackError(action string, ack protocol.Message) error {
	if ack.OK != nil && *ack.OK {
		return nil
	}
	var base error
	switch ack.Code {
	case protocol.CodeNotFound:
		base = store.ErrNotFound
	case protocol.CodeInvalid:
		base = store.ErrInvalid
	case protocol.CodeUnauthorized:
		base = ErrUnauthorized
	default:
		return fmt.Errorf("%s: %s", action, ack.Error)
	}
	// The backend's text usually ends in the same sentinel wording.
	msg := strings.TrimSuffix(strings.TrimSuffix(ack.Error, base.Error()), ": ")
	if msg == "" {
		return fmt.Errorf("%s: %w", action, base)
	}
	return fmt.Errorf("%s: %s: %w", action, msg, base)
}

func (c *Client) do(ctx context.Context, req protocol.Request) error {
	_, err := c.call(ctx, req)
	return err
}

// Watermark asks the backend for the user's current revision.
func (c *Client) Watermark(ctx context.Context) (int64, error) {
	ack, err := c.call(ctx, protocol.Request{Action: protocol.ActionWatermark})
	if err != nil {
		return 0, err
	}
	return ack.Revision, nil
}

func (c *Client) CreateCategory(ctx context.Context, cat types.Category) error {
	return c.do(ctx, protocol.Request{Action: protocol.ActionCreateCategory, Category: &cat})
}

func (c *Client) UpdateCategory(ctx context.Context, id, name string) error {
	return c.do(ctx, protocol.Request{Action: protocol.ActionUpdateCategory, EntityID: id, Name: name})
}

func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	return c.do(ctx, protocol.Request{Action: protocol.ActionDeleteCategory, EntityID: id})
}

func (c *Client) ReorderCategory(ctx context.Context, id string, order float64) error {
	return c.do(ctx, protocol.Request{Action: protocol.ActionReorderCategory, EntityID: id, Order: &order})
}

func (c *Client) SetCategoryGroup(ctx context.Context, categoryID, groupID string, order *float64) error {
	return c.do(ctx, protocol.Request{
		Action:   protocol.ActionSetCategoryGroup,
		EntityID: categoryID,
		GroupID:  groupID,
		Order:    order,
	})
}

func (c *Client) CreateGroup(ctx context.Context, g types.Group) error {
	return c.do(ctx, protocol.Request{Action: protocol.ActionCreateGroup, Group: &g})
}

func (c *Client) UpdateGroup(ctx context.Context, id, name string) error {
	return c.do(ctx, protocol.Request{Action: protocol.ActionUpdateGroup, EntityID: id, Name: name})
}

func (c *Client) DeleteGroup(ctx context.Context, id string) error {
	return c.do(ctx, protocol.Request{Action: protocol.ActionDeleteGroup, EntityID: id})
}

func (c *Client) ReorderGroup(ctx context.Context, id string, order float64) error {
	return c.do(ctx, protocol.Request{Action: protocol.ActionReorderGroup, EntityID: id, Order: &order})
}

func (c *Client) MergeGroups(ctx context.Context, sourceID, targetID string) error {
	return c.do(ctx, protocol.Request{Action: protocol.ActionMergeGroups, SourceID: sourceID, TargetID: targetID})
}

func (c *Client) CreateGroupFromCategories(ctx context.Context, g types.Group, categoryIDs []string) error {
	return c.do(ctx, protocol.Request{
		Action:      protocol.ActionCreateGroupFromCategories,
		Group:       &g,
		CategoryIDs: categoryIDs,
	})
}

func (c *Client) CreateBookmark(ctx context.Context, b types.Bookmark) error {
	return c.do(ctx, protocol.Request{Action: protocol.ActionCreateBookmark, Bookmark: &b})
}

func (c *Client) UpdateBookmark(ctx context.Context, id, title, url, icon string) error {
	return c.do(ctx, protocol.Request{
		Action:   protocol.ActionUpdateBookmark,
		EntityID: id,
		Title:    title,
		URL:      url,
		Icon:     icon,
	})
}

func (c *Client) DeleteBookmark(ctx context.Context, id string) error {
	return c.do(ctx, protocol.Request{Action: protocol.ActionDeleteBookmark, EntityID: id})
}

func (c *Client) ReorderBookmark(ctx context.Context, id string, order float64, categoryID string) error {
	return c.do(ctx, protocol.Request{
		Action:     protocol.ActionReorderBookmark,
		EntityID:   id,
		Order:      &order,
		CategoryID: categoryID,
	})
}

func (c *Client) UpdatePreferences(ctx context.Context, p types.Preferences) error {
	return c.do(ctx, protocol.Request{Action: protocol.ActionUpdatePreferences, Preferences: &p})
}

var _ store.Remote = (*Client)(nil)
