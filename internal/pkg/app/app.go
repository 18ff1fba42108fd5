package app

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"streambot/internal/app/adapters/activity"
	"streambot/internal/app/adapters/events"
	router "streambot/internal/app/adapters/http"
	"streambot/internal/app/adapters/http/handlers"
	"streambot/internal/app/adapters/message"
	"streambot/internal/app/adapters/metrics"
	"streambot/internal/app/adapters/platform/twitch"
	"streambot/internal/app/adapters/platform/twitch/event_sub"
	"streambot/internal/app/adapters/platform/twitch/irc"
	"streambot/internal/app/adapters/speech"
	"streambot/internal/app/domain/cooldown"
	"streambot/internal/app/domain/counters"
	"streambot/internal/app/domain/moderation"
	"streambot/internal/app/domain/points"
	"streambot/internal/app/domain/stream"
	"streambot/internal/app/domain/template"
	"streambot/internal/app/infrastructure/config"
	"streambot/internal/app/infrastructure/storage"
	"streambot/internal/app/infrastructure/timers"
	"streambot/internal/app/ports"
	"streambot/pkg/logger"
)

const (
	reconnectDelay   = 5 * time.Second
	liveSyncInterval = 30 * time.Second
	identifyTimeout  = 15 * time.Second
)

// chatRelay lets components built before the chat session post through it once it exists.
type chatRelay struct {
	session atomic.Pointer[irc.Session]
}

func (r *chatRelay) Send(text string) {
	if s := r.session.Load(); s != nil {
		s.Send(text)
	}
}

// New builds every component and blocks until ctx is cancelled.
func New(ctx context.Context, configPath string) error {
	manager, err := config.New(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := manager.Get()

	log := logger.New(logger.WithFile(cfg.App.LogFile))
	log.SetLogLevel(cfg.App.LogLevel)
	gin.SetMode(cfg.App.GinMode)

	for _, w := range manager.Warnings() {
		log.Warn("Config warning", slog.String("warning", w))
	}

	prometheus.MustRegister(metrics.MessageProcessingTime)

	st := stream.NewStream(cfg.App.Channel)
	tw, err := twitch.New(log, cfg, st)
	if err != nil {
		return err
	}
	defer tw.Close()

	identifyCtx, cancel := context.WithTimeout(ctx, identifyTimeout)
	err = tw.Identify(identifyCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("identify bot: %w", err)
	}

	store, closeStore, err := pointsStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	initial, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load points: %w", err)
	}
	ledger := points.NewLedger(logger.Named(log, "points"), store, initial)

	counterStore := counters.New(cfg.Counters, func(snapshot map[string]int) error {
		return manager.Update(func(cfg *config.Config) {
			cfg.Counters = snapshot
		})
	}, func(err error) {
		log.Error("Failed to persist counters", err)
	})

	feed := activity.New(activity.DefaultCapacity)
	relay := &chatRelay{}

	speaker := speech.NewSpeaker(logger.Named(log, "tts"), speech.ExecRunner, func() []string {
		return manager.Get().TTS.Command
	}, cfg.TTS.QueueSize)
	player := speech.NewPlayer(logger.Named(log, "sound"), speech.ExecRunner, func() []string {
		return manager.Get().Sound.Command
	})

	chatters := storage.NewCachedChatters(tw.API(), storage.ChattersTTL)
	engine := template.NewEngine(logger.Named(log, "template"), counterStore, tw.API(), chatters)

	permits := moderation.NewPermits()
	guard := moderation.NewGuard(logger.Named(log, "guard"), tw.API(), tw.Pool(), relay, permits,
		message.ModerationSettings(manager),
		moderation.WithActivity(feed),
		moderation.WithPunishHook(func(reason string) {
			metrics.ModerationActions.WithLabelValues(reason).Inc()
		}),
	)

	cmdRouter := message.NewRouter(logger.Named(log, "router"), manager, engine, cooldown.New(),
		counterStore, ledger, permits, relay, message.WithSound(player), message.WithRouterActivity(feed))

	lines := &timers.LineCounter{}
	pipeline := message.New(log, manager, st, lines, ledger, guard, cmdRouter, relay,
		message.WithContext(ctx), message.WithSpeech(speaker), message.WithActivity(feed))

	session := tw.NewSession(pipeline, irc.WithStateHook(func(s irc.State) {
		metrics.ChatConnected.Set(metrics.Bool(s == irc.Connected))
	}))
	relay.session.Store(session)

	notifier := events.New(logger.Named(log, "events"), manager, relay,
		events.WithSpeech(speaker), events.WithSound(player), events.WithActivity(feed))
	eventSub := tw.NewEventSub(notifier, event_sub.WithNotificationHook(func(kind string) {
		metrics.EventSubNotifications.WithLabelValues(kind).Inc()
	}))

	scheduler := timers.NewScheduler(logger.Named(log, "timers"), relay, lines, func() []timers.Timer {
		return timerList(manager.Get())
	}, timers.WithFireHook(func(name string) {
		metrics.TimersFired.WithLabelValues(name).Inc()
		feed.Add("timer", "", name)
	}))

	h := handlers.New(log, feed, func() handlers.Status {
		return handlers.Status{
			Channel:    st.ChannelName(),
			Chat:       session.State().String(),
			StreamLive: st.IsLive(),
		}
	})
	httpRouter := router.NewRouter(logger.Named(log, "http"), cfg.App, h)

	var wg sync.WaitGroup
	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	run(func() { speaker.Run(ctx) })
	run(func() { scheduler.Run(ctx) })
	run(func() { syncLive(ctx, log, tw, st) })
	run(func() { chatLoop(ctx, log, session) })
	if cfg.Events.Enabled || cfg.TTS.Enabled || len(cfg.Events.RewardActions) > 0 {
		run(func() { eventSub.Run(ctx) })
	}
	run(func() {
		if err := httpRouter.Run(ctx); err != nil {
			log.Error("HTTP server stopped", err)
		}
	})

	log.Info("Chatbot started", slog.String("channel", st.ChannelName()), slog.String("bot", st.BotLogin()))
	<-ctx.Done()

	log.Info("Shutting down")
	session.Stop()
	speaker.Stop()
	wg.Wait()
	player.Wait()
	return nil
}

func pointsStore(ctx context.Context, cfg *config.Config) (ports.PointsStorePort, func(), error) {
	if cfg.Points.Store != "postgres" {
		return storage.NewJSONPointsStore(cfg.Points.StoreFile), func() {}, nil
	}

	pg, err := storage.NewPostgresPointsStore(ctx, cfg.App.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return pg, pg.Close, nil
}

func timerList(cfg *config.Config) []timers.Timer {
	out := make([]timers.Timer, 0, len(cfg.Timers))
	for _, name := range slices.Sorted(maps.Keys(cfg.Timers)) {
		t := cfg.Timers[name]
		if t == nil {
			continue
		}
		out = append(out, timers.Timer{
			Name:        name,
			Message:     t.Message,
			IntervalMin: t.IntervalMin,
			MinLines:    t.MinLines,
			Enabled:     !t.Disabled,
		})
	}
	return out
}

// chatLoop owns the reconnect policy: a session that ends is dialed again after reconnectDelay.
func chatLoop(ctx context.Context, log logger.Logger, session *irc.Session) {
	for {
		if err := session.Connect(ctx); err == nil {
			session.Run()
		}
		if ctx.Err() != nil {
			return
		}
		log.Info("Chat session ended, reconnecting", slog.Duration("delay", reconnectDelay))

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func syncLive(ctx context.Context, log logger.Logger, tw *twitch.Twitch, st *stream.Stream) {
	update := func() {
		secs := tw.API().UptimeSeconds(ctx, st.ChannelName())
		metrics.StreamLive.Set(metrics.Bool(st.IsLive()))
		log.Trace("Live state synced", slog.Bool("live", st.IsLive()), slog.Int("uptime", secs))
	}

	update()
	ticker := time.NewTicker(liveSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update()
		}
	}
}
