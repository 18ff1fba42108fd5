package template

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"streambot/internal/app/ports"
	"streambot/pkg/logger"
)

type Kind string

const (
	KindStatic      Kind = "static"
	KindRandomRange Kind = "random_range"
	KindRandomList  Kind = "random_list"
	KindDynamicTime Kind = "dynamic_time"
)

func (k Kind) Valid() bool {
	switch k {
	case KindStatic, KindRandomRange, KindRandomList, KindDynamicTime:
		return true
	}
	return false
}

const (
	fallbackRandUser = "@visitante"
	lookupTimeout    = 5 * time.Second
)

// Counters is the mutable counter state that $count{} reads and updates.
type Counters interface {
	Get(name string) int
	Add(name string, delta int) int
}

// Command carries the type-specific settings of the command being resolved.
type Command struct {
	Type      Kind
	Min       int
	Max       int
	Options   []string
	Reactions map[string][]string
}

type Request struct {
	Template string
	User     string
	Channel  string
	// Message is the effective command message, starting at the command token.
	Message string
	Command Command
	// Extra adds caller-provided placeholders to the final pass.
	Extra map[string]string
}

type Result struct {
	Output          string
	CountersMutated bool
	// Err is set when the final pass met an unknown placeholder or a stray brace.
	// Output then holds the user-facing diagnostic.
	Err error
}

type Engine struct {
	log      logger.Logger
	counters Counters
	uptime   ports.UptimePort
	chatters ports.ChattersPort
	now      func() time.Time
	uint64n  func(n uint64) uint64
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithRand replaces the uniform source; uint64n must return a value in [0,n).
func WithRand(uint64n func(n uint64) uint64) Option {
	return func(e *Engine) {
		e.uint64n = uint64n
	}
}

func NewEngine(log logger.Logger, counters Counters, uptime ports.UptimePort, chatters ports.ChattersPort, opts ...Option) *Engine {
	e := &Engine{
		log:      log,
		counters: counters,
		uptime:   uptime,
		chatters: chatters,
		now:      time.Now,
		uint64n:  rand.Uint64N, // #nosec G404
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolve expands a response template. Passes run in a fixed order and each pass only sees
// what the previous ones left behind:
//
//  1. {user} and {channel}
//  2. {uptime}
//  3. {touser}
//  4. {rand_user}
//  5. $count{name}, $count{name+N}, $count{name-N}
//  6. type-specific values ({value}, {size}, {reaction}, {joke}, {time})
//  7. $rand{min,max}
//  8. the final named-placeholder pass
//
// Values drawn from chat (names, targets) are bound as placeholders and only expanded in
// pass 8, so user input never reaches the $count and $rand passes.
func (e *Engine) Resolve(ctx context.Context, req Request) Result {
	vars := make(map[string]string, 12)
	out := req.Template

	vars["user"] = req.User
	vars["channel"] = strings.TrimPrefix(req.Channel, "#")

	if strings.Contains(out, "{uptime}") {
		out = strings.ReplaceAll(out, "{uptime}", e.formatUptime(ctx, req.Channel))
	}

	vars["touser"] = toUser(req.Message, req.User)

	if strings.Contains(out, "{rand_user}") {
		vars["rand_user"] = e.randUser(ctx)
	}

	out, mutated := e.expandCounters(out)

	for k, v := range e.typeVars(req.Command) {
		vars[k] = v
	}

	out = e.expandRand(out)

	for k, v := range req.Extra {
		vars[k] = v
	}

	formatted, err := format(out, vars)
	if err != nil {
		e.log.Error("Failed to format command response", err, slog.String("template", req.Template))
		return Result{Output: diagnostic(err), CountersMutated: mutated, Err: err}
	}

	return Result{Output: formatted, CountersMutated: mutated}
}

func (e *Engine) formatUptime(ctx context.Context, channel string) string {
	if e.uptime == nil {
		return FormatUptime(0)
	}

	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	return FormatUptime(e.uptime.UptimeSeconds(ctx, strings.TrimPrefix(channel, "#")))
}

func toUser(msg, user string) string {
	fields := strings.Fields(msg)
	if len(fields) >= 2 {
		if target := strings.TrimLeft(fields[1], "@"); target != "" {
			return "@" + target
		}
	}
	return "@" + user
}

func (e *Engine) randUser(ctx context.Context) string {
	if e.chatters == nil {
		return fallbackRandUser
	}

	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	list := e.chatters.Chatters(ctx)
	if len(list) == 0 {
		return fallbackRandUser
	}
	return "@" + list[e.index(len(list))]
}

func (e *Engine) typeVars(cmd Command) map[string]string {
	switch cmd.Type {
	case KindRandomRange:
		value := e.between(cmd.Min, cmd.Max)
		v := strconv.Itoa(value)
		return map[string]string{
			"value":    v,
			"size":     v,
			"reaction": e.pick(cmd.Reactions[ReactionBucket(value)]),
		}
	case KindRandomList:
		v := e.pick(cmd.Options)
		return map[string]string{"value": v, "joke": v}
	case KindDynamicTime:
		v := e.now().Format("15:04:05")
		return map[string]string{"value": v, "time": v}
	}
	return nil
}

// between draws uniformly from [lo,hi], swapping the bounds when needed.
// The span is computed in uint64 so any pair of ints is accepted.
func (e *Engine) between(lo, hi int) int {
	if lo > hi {
		lo, hi = hi, lo
	}

	span := uint64(hi) - uint64(lo)
	if span == math.MaxUint64 {
		return int(rand.Uint64()) // #nosec G404
	}
	return int(uint64(lo) + e.uint64n(span+1))
}

func (e *Engine) index(n int) int {
	return int(e.uint64n(uint64(n)))
}

func (e *Engine) pick(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[e.index(len(list))]
}

// ReactionBucket maps a random_range draw to its reaction bucket name.
func ReactionBucket(value int) string {
	switch {
	case value < 5:
		return "tiny"
	case value < 7:
		return "small"
	case value < 10:
		return "medium_small"
	case value < 12:
		return "medium_large"
	case value < 14:
		return "medium"
	case value < 18:
		return "large_medium"
	case value < 22:
		return "large"
	default:
		return "huge"
	}
}

// FormatUptime renders seconds as "Xh Ym Zs", dropping leading zero units.
func FormatUptime(secs int) string {
	if secs <= 0 {
		return "offline"
	}

	h, m, s := secs/3600, secs%3600/60, secs%60
	switch {
	case h > 0:
		return strconv.Itoa(h) + "h " + strconv.Itoa(m) + "m " + strconv.Itoa(s) + "s"
	case m > 0:
		return strconv.Itoa(m) + "m " + strconv.Itoa(s) + "s"
	default:
		return strconv.Itoa(s) + "s"
	}
}
