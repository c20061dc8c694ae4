// ABOUTME: OpenAI-compatible Chat Completions client offering one propose_command tool
// ABOUTME: Request bodies are encoded with encoding/json; responses are picked apart with gjson

package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/mauromedda/chatshell-go/internal/config"
	"github.com/mauromedda/chatshell-go/internal/log"
)

const chatCompletionPath = "/chat/completions"

// DefaultSystemPrompt is used when the configuration has none.
const DefaultSystemPrompt = `You help the user operate an interactive shell.
When the request can be fulfilled by running a shell command, call the propose_command tool with a single command line and a short explanation in markdown. The user reviews the command before it is typed into their shell.
When the request is a question, answer briefly in plain text.
Never propose destructive commands without saying so in the explanation.`

// OpenAI talks to an OpenAI-compatible endpoint.
type OpenAI struct {
	transport    *transport
	url          string
	model        string
	maxTokens    int
	temperature  float64
	timeout      time.Duration
	systemPrompt string
}

var _ Client = (*OpenAI)(nil)

// NewOpenAI builds a client from cfg. An empty key, or a ${VAR} reference
// left unresolved, returns ErrNotConfigured.
func NewOpenAI(cfg config.AssistantConfig) (*OpenAI, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" || strings.HasPrefix(apiKey, "${") {
		return nil, ErrNotConfigured
	}
	base := strings.TrimRight(cfg.APIBase, "/")
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}

	return &OpenAI{
		transport: newTransport(map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + apiKey,
		}),
		url:          base + chatCompletionPath,
		model:        cfg.Model,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
		timeout:      cfg.Timeout.Duration,
		systemPrompt: prompt,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type toolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type tool struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Tools       []tool        `json:"tools"`
	ToolChoice  string        `json:"tool_choice"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

var proposeCommandTool = tool{
	Type: "function",
	Function: toolFunction{
		Name:        "propose_command",
		Description: "Propose one shell command for the user to review and run",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command": map[string]any{
					"type":        "string",
					"description": "The command line to type into the shell",
				},
				"explanation": map[string]any{
					"type":        "string",
					"description": "What the command does, in markdown",
				},
			},
			"required": []string{"command", "explanation"},
		},
	},
}

// Complete sends the instruction with its history and decodes the answer.
func (o *OpenAI) Complete(ctx context.Context, req Request) (Response, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	body, err := json.Marshal(o.buildRequest(req))
	if err != nil {
		return Response{}, fmt.Errorf("marshaling request: %w", err)
	}

	log.Debug("[ASSISTANT] POST %s model=%s conversation=%s turns=%d", o.url, o.model, req.ConversationID, len(req.History))
	resp, err := o.transport.post(ctx, o.url, body)
	if err != nil {
		return Response{}, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Response{}, fmt.Errorf("reading response: %w", err)
	}
	log.Debug("[ASSISTANT] POST %s -> %d (%d bytes)", o.url, resp.StatusCode, len(data))

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(data, "error.message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return Response{}, &APIError{Status: resp.StatusCode, Body: msg}
	}
	return parseCompletion(data)
}

func (o *OpenAI) buildRequest(req Request) chatRequest {
	msgs := make([]chatMessage, 0, 2+2*len(req.History))
	msgs = append(msgs, chatMessage{Role: "system", Content: o.systemPrompt})
	for _, t := range req.History {
		msgs = append(msgs,
			chatMessage{Role: "user", Content: t.Instruction},
			chatMessage{Role: "assistant", Content: t.Response.transcript()},
		)
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: req.Instruction})

	return chatRequest{
		Model:       o.model,
		Messages:    msgs,
		Tools:       []tool{proposeCommandTool},
		ToolChoice:  "auto",
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
	}
}

// transcript renders a past response as assistant message content.
func (r Response) transcript() string {
	if r.Kind == ResponseCommand {
		return fmt.Sprintf("Proposed command: %s\n%s", r.Command, r.Explanation)
	}
	return r.Text
}

// parseCompletion turns a chat completion body into a Response. The first
// propose_command tool call wins over any text content.
func parseCompletion(data []byte) (Response, error) {
	if !gjson.ValidBytes(data) {
		return Response{}, fmt.Errorf("invalid JSON in completion response")
	}
	msg := gjson.GetBytes(data, "choices.0.message")
	if !msg.Exists() {
		return Response{}, fmt.Errorf("completion response has no choices")
	}

	for _, call := range msg.Get("tool_calls").Array() {
		if call.Get("function.name").String() != proposeCommandTool.Function.Name {
			continue
		}
		args := call.Get("function.arguments").String()
		if !gjson.Valid(args) {
			return Response{}, fmt.Errorf("invalid propose_command arguments: %q", args)
		}
		command := strings.TrimSpace(gjson.Get(args, "command").String())
		if command == "" {
			return Response{}, fmt.Errorf("propose_command without a command")
		}
		return Response{
			Kind:        ResponseCommand,
			Command:     command,
			Explanation: gjson.Get(args, "explanation").String(),
		}, nil
	}

	return Response{Kind: ResponseText, Text: strings.TrimSpace(msg.Get("content").String())}, nil
}
