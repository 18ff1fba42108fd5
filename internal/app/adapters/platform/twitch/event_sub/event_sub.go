package event_sub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"streambot/internal/app/domain/stream"
	"streambot/internal/app/infrastructure/storage"
	"streambot/internal/app/ports"
	"streambot/pkg/logger"
)

const (
	DefaultURL      = "wss://eventsub.wss.twitch.tv/ws"
	DefaultHelixURL = "https://api.twitch.tv/helix"

	reconnectDelay = 5 * time.Second
	dedupWindow    = 10 * time.Minute
	dedupCapacity  = 4096
)

type EventSub struct {
	log     logger.Logger
	handler ports.EventHandlerPort
	stream  *stream.Stream
	client  *http.Client

	url      string
	helixURL string
	token    string
	clientID string
	netDial  func(ctx context.Context, network, addr string) (net.Conn, error)
	backoff  time.Duration
	retry    time.Duration
	onNotify func(kind string)

	seen *storage.Cache[struct{}]
}

type Option func(*EventSub)

func WithURL(u string) Option {
	return func(es *EventSub) {
		es.url = u
	}
}

func WithHelixURL(u string) Option {
	return func(es *EventSub) {
		es.helixURL = u
	}
}

// WithNetDial routes the websocket through a custom dialer, e.g. a SOCKS5 proxy.
func WithNetDial(dial func(ctx context.Context, network, addr string) (net.Conn, error)) Option {
	return func(es *EventSub) {
		es.netDial = dial
	}
}

// WithBackoff sets the first subscription retry delay and the delay between reconnects.
func WithBackoff(subscribe, reconnect time.Duration) Option {
	return func(es *EventSub) {
		es.backoff = subscribe
		es.retry = reconnect
	}
}

// WithNotificationHook is called with the subscription type of every dispatched notification.
func WithNotificationHook(fn func(kind string)) Option {
	return func(es *EventSub) {
		es.onNotify = fn
	}
}

func NewEventSub(log logger.Logger, handler ports.EventHandlerPort, st *stream.Stream, client *http.Client, token, clientID string, opts ...Option) *EventSub {
	es := &EventSub{
		log:      log,
		handler:  handler,
		stream:   st,
		client:   client,
		url:      DefaultURL,
		helixURL: DefaultHelixURL,
		token:    token,
		clientID: clientID,
		backoff:  initialBackoff,
		retry:    reconnectDelay,
		seen:     storage.NewCache[struct{}](dedupCapacity, dedupWindow),
	}
	for _, opt := range opts {
		opt(es)
	}
	return es
}

// Run keeps an EventSub session open until ctx is cancelled, reconnecting after failures
// and following session_reconnect requests.
func (es *EventSub) Run(ctx context.Context) {
	for ctx.Err() == nil {
		err := es.serve(ctx, es.url)
		if ctx.Err() != nil {
			return
		}
		es.log.Warn("Websocket connection lost, retrying...", slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return
		case <-time.After(es.retry):
		}
	}
}

type wsFrame struct {
	raw []byte
	err error
}

// wsConn pumps frames from one websocket into a channel so two connections can be read at
// once during a session_reconnect handoff.
type wsConn struct {
	ws     *websocket.Conn
	url    string
	resume bool
	frames chan wsFrame
	done   chan struct{}
	once   sync.Once
}

func (c *wsConn) read() {
	for {
		_, raw, err := c.ws.ReadMessage()
		select {
		case c.frames <- wsFrame{raw: raw, err: err}:
		case <-c.done:
			return
		}
		if err != nil {
			return
		}
	}
}

func (c *wsConn) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

func (es *EventSub) dial(ctx context.Context, url string, resume bool) (*wsConn, error) {
	dialer := websocket.Dialer{
		NetDialContext:   es.netDial,
		HandshakeTimeout: 10 * time.Second,
	}

	ws, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := &wsConn{ws: ws, url: url, resume: resume, frames: make(chan wsFrame), done: make(chan struct{})}
	go c.read()

	es.log.Info("Connected to EventSub WebSocket", slog.String("url", url))
	return c, nil
}

// serve runs one EventSub session. On session_reconnect the new connection is dialed while the
// old one keeps delivering; the old one is closed once the new one sends its welcome.
// Subscriptions carry over to the reconnect target.
func (es *EventSub) serve(ctx context.Context, url string) error {
	cur, err := es.dial(ctx, url, false)
	if err != nil {
		return err
	}

	var next *wsConn
	defer func() {
		cur.close()
		if next != nil {
			next.close()
		}
	}()

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for {
		var nextFrames chan wsFrame
		if next != nil {
			nextFrames = next.frames
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case f := <-cur.frames:
			if f.err != nil && next != nil {
				es.log.Debug("Old EventSub connection closed before handover", slog.String("error", f.err.Error()))
				cur.close()
				cur, next = next, nil
				continue
			}
			if f.err != nil {
				return f.err
			}
			_, reconnectURL := es.handleMessage(subCtx, f.raw, cur.resume)
			if reconnectURL == "" {
				continue
			}

			es.log.Info("EventSub reconnecting", slog.String("url", reconnectURL))
			if next != nil {
				next.close()
			}
			if next, err = es.dial(ctx, reconnectURL, true); err != nil {
				return fmt.Errorf("reconnect: %w", err)
			}

		case f := <-nextFrames:
			if f.err != nil {
				return fmt.Errorf("reconnect target: %w", f.err)
			}
			if kind, _ := es.handleMessage(subCtx, f.raw, next.resume); kind == "session_welcome" {
				es.log.Info("EventSub session handed over", slog.String("url", next.url))
				cur.close()
				cur, next = next, nil
			}
		}
	}
}

// handleMessage processes one frame and returns its message type. A session_reconnect also
// returns the URL to move to.
func (es *EventSub) handleMessage(ctx context.Context, raw []byte, resume bool) (string, string) {
	var msg EventSubMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		es.log.Error("Failed to decode EventSub message", err, slog.String("event", string(raw)))
		return "", ""
	}

	kind := msg.Metadata.MessageType
	if id := msg.Metadata.MessageID; id != "" {
		if _, dup := es.seen.Get(id); dup {
			es.log.Debug("Skipping duplicate EventSub message", slog.String("message_id", id))
			return kind, ""
		}
		es.seen.Set(id, struct{}{})
	}

	switch kind {
	case "session_welcome":
		var payload SessionPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			es.log.Error("Failed to decode session_welcome payload", err)
			return kind, ""
		}

		es.log.Debug("Received session_welcome on EventSub", slog.String("session_id", payload.Session.ID))
		if !resume {
			go es.subscribeEvents(ctx, payload.Session.ID)
		}

	case "session_reconnect":
		var payload SessionPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.Session.ReconnectURL == "" {
			es.log.Error("Bad session_reconnect payload", err)
			return kind, ""
		}
		return kind, payload.Session.ReconnectURL

	case "session_keepalive":
		es.log.Trace("Received session_keepalive on EventSub")

	case "revocation":
		var envelope EventSubEnvelope
		_ = json.Unmarshal(msg.Payload, &envelope)
		es.log.Error("EventSub subscription revoked", nil,
			slog.String("type", envelope.Subscription.Type), slog.String("status", envelope.Subscription.Status))

	case "notification":
		var envelope EventSubEnvelope
		if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
			es.log.Error("Failed to decode EventSub envelope", err)
			return kind, ""
		}
		es.dispatch(ctx, envelope)
	}
	return kind, ""
}

func (es *EventSub) dispatch(ctx context.Context, envelope EventSubEnvelope) {
	kind := envelope.Subscription.Type
	es.log.Debug("Received notification on EventSub", slog.String("type", kind))

	defer func() {
		if r := recover(); r != nil {
			es.log.Error("Recovered from panic in event handler", nil, slog.Any("panic", r), slog.String("type", kind))
		}
	}()

	switch kind {
	case "channel.follow":
		var e FollowEvent
		if !es.decode(envelope.Event, &e, kind) {
			return
		}
		es.handler.OnFollow(ctx, e.UserName)

	case "channel.subscribe":
		var e SubscribeEvent
		if !es.decode(envelope.Event, &e, kind) {
			return
		}
		es.handler.OnSubscribe(ctx, e.UserName, e.Tier, e.IsGift)

	case "channel.raid":
		var e RaidEvent
		if !es.decode(envelope.Event, &e, kind) {
			return
		}
		es.handler.OnRaid(ctx, e.FromBroadcasterUserName, e.Viewers)

	case "channel.channel_points_custom_reward_redemption.add":
		var e RedemptionEvent
		if !es.decode(envelope.Event, &e, kind) {
			return
		}
		es.handler.OnRedemption(ctx, e.UserName, e.Reward.Title, e.UserInput)

	default:
		es.log.Debug("Ignoring EventSub notification", slog.String("type", kind))
		return
	}

	if es.onNotify != nil {
		es.onNotify(kind)
	}
}

func (es *EventSub) decode(raw json.RawMessage, dst any, kind string) bool {
	if err := json.Unmarshal(raw, dst); err != nil {
		es.log.Error("Failed to decode event", err, slog.String("type", kind))
		return false
	}
	return true
}
