package hub

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type client struct {
	hub  *Hub
	id   string
	conn *websocket.Conn
	log  *logrus.Entry

	sendMu     sync.Mutex
	send       chan []byte
	sendClosed bool

	topicsMu sync.RWMutex
	topics   map[string]struct{}
}

func newClient(h *Hub, id string, conn *websocket.Conn, buffer int) *client {
	return &client{
		hub:    h,
		id:     id,
		conn:   conn,
		log:    h.logger.WithField("session_id", id),
		send:   make(chan []byte, buffer),
		topics: make(map[string]struct{}),
	}
}

// enqueue adds msg to the send queue. It returns false if the queue is
// full or closed.
func (c *client) enqueue(msg []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
}

func (c *client) matches(topics []string) bool {
	c.topicsMu.RLock()
	defer c.topicsMu.RUnlock()
	if _, ok := c.topics[TopicAll]; ok {
		return true
	}
	for _, t := range topics {
		if _, ok := c.topics[t]; ok {
			return true
		}
	}
	return false
}

func (c *client) subscribe(channels []string) []string {
	c.topicsMu.Lock()
	defer c.topicsMu.Unlock()
	for _, ch := range channels {
		if t := normalizeTopic(ch); t != "" {
			c.topics[t] = struct{}{}
		}
	}
	return c.topicList()
}

func (c *client) unsubscribe(channels []string) []string {
	c.topicsMu.Lock()
	defer c.topicsMu.Unlock()
	for _, ch := range channels {
		delete(c.topics, normalizeTopic(ch))
	}
	return c.topicList()
}

// topicList must be called with topicsMu held.
func (c *client) topicList() []string {
	out := make([]string, 0, len(c.topics))
	for t := range c.topics {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// writePump is the only goroutine writing to conn.
func (c *client) writePump() {
	defer c.hub.wg.Done()
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.WithError(err).Debug("write failed")
				c.hub.remove(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.remove(c)
				return
			}
		}
	}
}

func (c *client) readPump() {
	defer c.hub.wg.Done()
	defer c.hub.remove(c)

	pongWait := 2 * c.hub.cfg.PingInterval
	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Debug("client read failed")
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handle(data)
	}
}

func (c *client) handle(data []byte) {
	now := c.hub.now().UnixMilli()

	var req request
	if err := json.Unmarshal(data, &req); err != nil {
		c.log.WithError(err).Debug("malformed client message")
		c.reply(errorMessage{Type: TypeError, Message: errInvalidMessage})
		return
	}

	switch req.Type {
	case ReqSubscribe:
		if len(req.Channels) == 0 {
			c.reply(errorMessage{Type: TypeError, Message: errInvalidMessage})
			return
		}
		c.subscribe(req.Channels)
		c.reply(channelsMessage{Type: TypeSubscribed, Channels: req.Channels, Timestamp: now})
	case ReqUnsubscribe:
		c.unsubscribe(req.Channels)
		c.reply(channelsMessage{Type: TypeUnsubscribed, Channels: req.Channels, Timestamp: now})
	case ReqPing:
		c.reply(pongMessage{Type: TypePong, Timestamp: now})
	case ReqGetPrice:
		if req.Token == "" {
			c.reply(errorMessage{Type: TypeError, Message: errInvalidMessage})
			return
		}
		msg := valueMessage{Type: TypePrice, Token: req.Token, Timestamp: now}
		if c.hub.values != nil {
			if p, ok := c.hub.values.CachedPrice(context.Background(), req.Token); ok {
				msg.Data = p
			}
		}
		c.reply(msg)
	case ReqGetMetrics:
		if req.Token == "" {
			c.reply(errorMessage{Type: TypeError, Message: errInvalidMessage})
			return
		}
		msg := valueMessage{Type: TypeMetrics, Token: req.Token, Timestamp: now}
		if c.hub.values != nil {
			if m, ok := c.hub.values.CachedMetrics(context.Background(), req.Token); ok {
				msg.Data = m
			}
		}
		c.reply(msg)
	default:
		c.reply(errorMessage{Type: TypeError, Message: errInvalidMessage})
	}
}

func (c *client) reply(v any) {
	c.hub.deliver(c, mustMarshal(v))
}
