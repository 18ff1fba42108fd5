package twitch

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"

	"streambot/internal/app/adapters/platform/twitch/api"
	"streambot/internal/app/adapters/platform/twitch/event_sub"
	"streambot/internal/app/adapters/platform/twitch/irc"
	"streambot/internal/app/domain/stream"
	"streambot/internal/app/infrastructure/config"
	"streambot/internal/app/ports"
	"streambot/pkg/logger"
)

const (
	apiWorkers   = 4
	apiQueueSize = 300
)

// Twitch builds the platform collaborators over one HTTP client and dialer, optionally
// routed through a SOCKS5 proxy.
type Twitch struct {
	log    logger.Logger
	app    config.App
	stream *stream.Stream
	client *http.Client
	dialer proxy.ContextDialer

	api  *api.Twitch
	pool *api.Pool
}

func New(log logger.Logger, cfg *config.Config, st *stream.Stream) (*Twitch, error) {
	client := &http.Client{
		Timeout:   10 * time.Second,
		Transport: http.DefaultTransport,
	}

	var dialer proxy.ContextDialer
	if cfg.Proxy != nil && cfg.Proxy.Address != "" && cfg.Proxy.Port != 0 {
		d, err := proxy.SOCKS5("tcp", fmt.Sprintf("%s:%d", cfg.Proxy.Address, cfg.Proxy.Port), nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("socks5 proxy: %w", err)
		}

		cd, ok := d.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("socks5 proxy: dialer does not support contexts")
		}
		dialer = cd

		client.Transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return cd.DialContext(ctx, network, addr)
			},
		}
		log.Info("Routing platform traffic through proxy", slog.String("proxy", cfg.Proxy.Address))
	}

	t := &Twitch{
		log:    log,
		app:    cfg.App,
		stream: st,
		client: client,
		dialer: dialer,
		pool:   api.NewPool(apiWorkers, apiQueueSize),
	}
	t.api = api.NewTwitch(logger.Named(log, "helix"), client, st, cfg.App.OAuth, cfg.App.ClientID)
	return t, nil
}

func (t *Twitch) API() *api.Twitch {
	return t.api
}

// Pool runs moderation enforcement off the receive loop.
func (t *Twitch) Pool() ports.ExecutorPort {
	return t.pool
}

// Identify validates the token and resolves the bot and channel ids. A bot that does not
// moderate the channel is only warned about.
func (t *Twitch) Identify(ctx context.Context) error {
	if _, err := t.api.ValidateToken(ctx); err != nil {
		return err
	}
	if err := t.api.ResolveBroadcaster(ctx); err != nil {
		return err
	}

	isMod, err := t.api.IsModerator(ctx)
	switch {
	case err != nil:
		t.log.Warn("Could not check moderator status", slog.String("error", err.Error()))
	case !isMod:
		t.log.Warn("Bot is not a moderator of the channel, moderation and chatter features will fail",
			slog.String("channel", t.stream.ChannelName()))
	}
	return nil
}

func (t *Twitch) NewSession(handler ports.MessageHandlerPort, opts ...irc.Option) *irc.Session {
	return irc.NewSession(
		logger.Named(t.log, "irc"),
		irc.TLSDialer(irc.DefaultAddr, t.dialer),
		irc.Credentials{OAuth: t.app.OAuth, Nick: t.app.Username, Channel: t.app.Channel},
		handler,
		opts...,
	)
}

func (t *Twitch) NewEventSub(handler ports.EventHandlerPort, opts ...event_sub.Option) *event_sub.EventSub {
	if t.dialer != nil {
		opts = append([]event_sub.Option{event_sub.WithNetDial(t.dialer.DialContext)}, opts...)
	}
	return event_sub.NewEventSub(logger.Named(t.log, "eventsub"), handler, t.stream, t.client, t.app.OAuth, t.app.ClientID, opts...)
}

// Close drains pending moderation calls.
func (t *Twitch) Close() {
	t.pool.Stop()
}
