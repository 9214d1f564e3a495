package ai

import "context"

// Message is one chat turn passed to a completion provider.
type Message struct {
	Role    string
	Content string
}

// Provider is an opaque text-completion service. The policy and metering
// core never sees this interface; only the chat service calls it, and only
// after the guard and ledger have admitted the turn.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}
