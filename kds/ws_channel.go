package kds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/restaurant-dashboard/utils"
)

// WSDialer dials the Remote Service push websocket at
// BaseURL/businesses/{id}/orders.
type WSDialer struct {
	BaseURL string
	Token   string
	Dialer  *websocket.Dialer
}

func (d *WSDialer) Dial(ctx context.Context, businessID string) (Channel, error) {
	target := strings.TrimRight(d.BaseURL, "/") + "/businesses/" + url.PathEscape(businessID) + "/orders"
	header := http.Header{}
	if d.Token != "" {
		header.Set("Authorization", "Bearer "+d.Token)
	}
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("kds: dial %s: status %d: %w", target, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("kds: dial %s: %w", target, err)
	}

	ch := &WSChannel{
		conn:       conn,
		businessID: businessID,
		handlers:   newHandlerSet(),
		done:       make(chan struct{}),
	}
	go ch.readLoop()
	return ch, nil
}

// WSChannel -> Channel di atas satu koneksi websocket
type WSChannel struct {
	conn       *websocket.Conn
	businessID string
	handlers   *handlerSet
	done       chan struct{}
}

func (c *WSChannel) Subscribe(event string, handler func(json.RawMessage)) func() {
	return c.handlers.add(event, handler)
}

// Done is closed when the read loop stops (remote close or Close).
func (c *WSChannel) Done() <-chan struct{} {
	return c.done
}

func (c *WSChannel) Close() error {
	if !c.handlers.close() {
		return nil
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := c.conn.Close()
	<-c.done
	return err
}

func (c *WSChannel) readLoop() {
	defer close(c.done)
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if !c.handlers.isClosed() {
				utils.ErrorLogger.Errorf("kds: push channel for business %s closed: %v", c.businessID, err)
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
			utils.ErrorLogger.Errorf("kds: undecodable push message for business %s dropped", c.businessID)
			continue
		}
		n := c.handlers.dispatch(env.Event, env.Data)
		utils.InfoLogger.WithFields(logrus.Fields{
			"business_id": c.businessID,
			"event":       env.Event,
			"handlers":    n,
		}).Debug("push event delivered")
	}
}
