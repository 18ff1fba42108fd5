package logger

import "log/slog"

// Named tags every record with a component name: the message gets a "[name]" prefix and the
// record a component attribute. Naming an already named logger joins the names with a dot.
func Named(inner Logger, name string) Logger {
	if n, ok := inner.(*named); ok {
		return &named{inner: n.inner, name: n.name + "." + name}
	}
	return &named{inner: inner, name: name}
}

type named struct {
	inner Logger
	name  string
}

func (n *named) msg(msg string) string {
	return "[" + n.name + "] " + msg
}

func (n *named) args(args []any) []any {
	return append([]any{slog.String("component", n.name)}, args...)
}

func (n *named) SetLogLevel(levelStr string) { n.inner.SetLogLevel(levelStr) }
func (n *named) GetLogLevel() string         { return n.inner.GetLogLevel() }

func (n *named) Trace(msg string, args ...any) { n.inner.Trace(n.msg(msg), n.args(args)...) }
func (n *named) Debug(msg string, args ...any) { n.inner.Debug(n.msg(msg), n.args(args)...) }
func (n *named) Info(msg string, args ...any)  { n.inner.Info(n.msg(msg), n.args(args)...) }
func (n *named) Warn(msg string, args ...any)  { n.inner.Warn(n.msg(msg), n.args(args)...) }

func (n *named) Error(msg string, err error, args ...any) {
	n.inner.Error(n.msg(msg), err, n.args(args)...)
}

func (n *named) Fatal(msg string, err error, args ...any) {
	n.inner.Fatal(n.msg(msg), err, n.args(args)...)
}
