// ABOUTME: Assistant boundary: an instruction plus history in, a proposed command or plain text out
// ABOUTME: Client is implemented by the OpenAI-compatible client and by test doubles

package assistant

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when no API key is available.
var ErrNotConfigured = errors.New("assistant not configured: set assistant.api_key or OPENAI_API_KEY")

// ResponseKind distinguishes a proposed command from a plain answer.
type ResponseKind int

const (
	ResponseText ResponseKind = iota
	ResponseCommand
)

// Response is what the assistant answered.
type Response struct {
	Kind        ResponseKind
	Command     string
	Explanation string
	Text        string
}

// Turn is one finished exchange.
type Turn struct {
	Instruction string
	Response    Response
}

// Request is sent to a Client.
type Request struct {
	ConversationID string
	Instruction    string
	History        []Turn
}

// Client completes a request. Implementations must honor ctx cancellation.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("assistant API error (status %d): %s", e.Status, e.Body)
}
