package messaging

import "context"

// Channel identifies a delivery channel.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// OutboundMessage carries the data required to push one message to a guest.
type OutboundMessage struct {
	Channel  Channel
	To       string
	From     string
	Subject  string
	Body     string
	ThreadID string
	Metadata map[string]string
}

// Sender dispatches a message on one channel and returns the
// provider-assigned message id. Transport failures surface as errors;
// retry policy belongs to the caller.
type Sender interface {
	Send(ctx context.Context, msg OutboundMessage) (string, error)
}

// Router fans an outbound message to the sender owning its channel.
type Router struct {
	sms   Sender
	email Sender
}

// NewRouter builds a channel router; either sender may be nil when the
// channel is not configured.
func NewRouter(sms, email Sender) *Router {
	return &Router{sms: sms, email: email}
}

// Send dispatches via the sender matching msg.Channel.
func (r *Router) Send(ctx context.Context, msg OutboundMessage) (string, error) {
	switch msg.Channel {
	case ChannelSMS:
		if r.sms == nil {
			return "", ErrChannelUnavailable
		}
		return r.sms.Send(ctx, msg)
	case ChannelEmail:
		if r.email == nil {
			return "", ErrChannelUnavailable
		}
		return r.email.Send(ctx, msg)
	default:
		return "", ErrChannelUnavailable
	}
}
