package ports

import "context"

// DocumentRef points at a file a user attached to a chat message. The
// transport has already materialized it on local disk.
type DocumentRef struct {
	Name string
	Path string
	Size int64
}

// InboundMessage is one user event delivered by the chat transport.
type InboundMessage struct {
	UserID   string
	Text     string
	Document *DocumentRef
}

// Transport is the chat delivery boundary. The conversation engine writes all
// user-facing replies through it; rendering and keyboards are the transport's
// concern.
type Transport interface {
	SendMessage(ctx context.Context, userID, text string) error
	EditMessage(ctx context.Context, userID, messageID, text string) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
