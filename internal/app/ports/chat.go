package ports

import "streambot/internal/app/domain/message"

// ChatSenderPort posts one line to the joined channel. Sending while disconnected is a logged no-op.
type ChatSenderPort interface {
	Send(text string)
}

// LineCounterPort counts chat lines for rate-gated timers.
type LineCounterPort interface {
	AddLine()
}

// MessageHandlerPort consumes parsed chat messages from the session's receive loop.
type MessageHandlerPort interface {
	Handle(msg *message.ChatMessage)
}
