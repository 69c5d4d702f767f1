package agillm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/kadirpekel/agiloop/agimsg"
	"github.com/kadirpekel/agiloop/internal/httpclient"
)

// httpPort is a minimal OpenAI-compatible-shaped HTTP client. Per
// SPEC_FULL.md §3 the spec's Non-goals exclude full vendor wire-format
// fidelity, so this deliberately does not embed a generated SDK —
// grounded on original_source's own HttpLLMClient, which takes the same
// thin-shim approach against Rust's reqwest.
type httpPort struct {
	cfg        ProviderConfig
	endpoint   string
	httpClient *http.Client
	buildBody  func(cfg ProviderConfig, messages []agimsg.Message, tools []ToolMetadata) ([]byte, error)
	parseBody  func(raw []byte) (*Response, error)
}

func newHTTPPort(
	cfg ProviderConfig,
	endpoint string,
	buildBody func(ProviderConfig, []agimsg.Message, []ToolMetadata) ([]byte, error),
	parseBody func([]byte) (*Response, error),
) *httpPort {
	return &httpPort{
		cfg:        cfg,
		endpoint:   endpoint,
		httpClient: http.DefaultClient,
		buildBody:  buildBody,
		parseBody:  parseBody,
	}
}

func (p *httpPort) apiKey() string {
	if p.cfg.APIKey != "" {
		return p.cfg.APIKey
	}
	return os.Getenv(p.cfg.APIKeyEnv)
}

func (p *httpPort) Generate(ctx context.Context, messages []agimsg.Message, tools []ToolMetadata) (*Response, error) {
	body, err := p.buildBody(p.cfg, messages, tools)
	if err != nil {
		return nil, fmt.Errorf("agillm: build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("agillm: build http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key := p.apiKey(); key != "" {
		switch p.cfg.Provider {
		case ProviderAnthropic:
			req.Header.Set("x-api-key", key)
			req.Header.Set("anthropic-version", p.cfg.AnthropicVersion)
		default:
			req.Header.Set("Authorization", "Bearer "+key)
		}
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("agillm: read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		return nil, fmt.Errorf("%w: status %d: %s", ErrNonTransient, resp.StatusCode, string(raw))
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		var retryAfter time.Duration
		if resp.StatusCode == http.StatusTooManyRequests {
			var info httpclient.RateLimitInfo
			if p.cfg.Provider == ProviderAnthropic {
				info = httpclient.ParseAnthropicRateLimitHeaders(resp.Header)
			} else {
				info = httpclient.ParseOpenAIRateLimitHeaders(resp.Header)
			}
			retryAfter = info.RetryAfter
		}
		return nil, &TransientError{StatusCode: resp.StatusCode, RetryAfter: retryAfter, Err: fmt.Errorf("%s", string(raw))}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agillm: unexpected status %d: %s", resp.StatusCode, string(raw))
	}

	out, err := p.parseBody(raw)
	if err != nil {
		return nil, &ParseError{Raw: string(raw), Err: err}
	}
	return out, nil
}

// --- OpenAI-compatible wire shape (also used by the gemini and custom bindings) ---

type openAIChatMessage struct {
	Role       string             `json:"role"`
	Content    string             `json:"content,omitempty"`
	ToolCalls  []openAIToolCall   `json:"tool_calls,omitempty"`
	ToolCallID string             `json:"tool_call_id,omitempty"`
	Name       string             `json:"name,omitempty"`
}

type openAIToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function openAIToolCallFunc `json:"function"`
}

type openAIToolCallFunc struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openAIToolDef struct {
	Type     string             `json:"type"`
	Function openAIFunctionSpec `json:"function"`
}

type openAIFunctionSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type openAIRequest struct {
	Model    string              `json:"model"`
	Messages []openAIChatMessage `json:"messages"`
	Tools    []openAIToolDef     `json:"tools,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message      openAIChatMessage `json:"message"`
		FinishReason string            `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func openAIRequestBody(cfg ProviderConfig, messages []agimsg.Message, tools []ToolMetadata) ([]byte, error) {
	req := openAIRequest{Model: cfg.Model}
	for _, m := range messages {
		req.Messages = append(req.Messages, toOpenAIMessage(m))
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, openAIToolDef{
			Type: "function",
			Function: openAIFunctionSpec{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}
	return json.Marshal(req)
}

func toOpenAIMessage(m agimsg.Message) openAIChatMessage {
	out := openAIChatMessage{Role: string(m.Role), Content: m.Content, ToolCallID: m.ToolCallID, Name: m.Name}
	for _, tc := range m.ToolCalls {
		args, _ := json.Marshal(tc.Arguments)
		out.ToolCalls = append(out.ToolCalls, openAIToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: openAIToolCallFunc{
				Name:      tc.Name,
				Arguments: string(args),
			},
		})
	}
	return out
}

func parseOpenAIResponse(raw []byte) (*Response, error) {
	var body openAIResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode openai-shaped response: %w", err)
	}
	if body.Error != nil {
		return nil, fmt.Errorf("provider error: %s", body.Error.Message)
	}
	if len(body.Choices) == 0 {
		return nil, fmt.Errorf("response carried no choices")
	}
	choice := body.Choices[0]

	resp := &Response{FinishReason: choice.FinishReason, Usage: &agimsg.Usage{
		PromptTokens:     body.Usage.PromptTokens,
		CompletionTokens: body.Usage.CompletionTokens,
		TotalTokens:      body.Usage.TotalTokens,
	}}
	if choice.Message.Content != "" {
		content := choice.Message.Content
		resp.Content = &content
	}
	for _, tc := range choice.Message.ToolCalls {
		var args map[string]any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return nil, fmt.Errorf("decode tool call arguments: %w", err)
		}
		resp.ToolCalls = append(resp.ToolCalls, agimsg.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args})
	}
	return resp, nil
}

// --- Anthropic wire shape ---

type anthropicContentBlock struct {
	Type  string         `json:"type"`
	Text  string         `json:"text,omitempty"`
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`
}

type anthropicRequestBodyShape struct {
	Model     string                  `json:"model"`
	System    string                  `json:"system,omitempty"`
	Messages  []anthropicMessageShape `json:"messages"`
	Tools     []anthropicToolShape    `json:"tools,omitempty"`
	MaxTokens int                     `json:"max_tokens"`
}

type anthropicMessageShape struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicToolShape struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicResponseShape struct {
	Content    []anthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func anthropicRequestBody(cfg ProviderConfig, messages []agimsg.Message, tools []ToolMetadata) ([]byte, error) {
	req := anthropicRequestBodyShape{Model: cfg.Model, MaxTokens: 4096}
	for _, m := range messages {
		if m.Role == agimsg.RoleSystem {
			req.System = m.Content
			continue
		}
		req.Messages = append(req.Messages, anthropicMessageShape{Role: string(m.Role), Content: m.Content})
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, anthropicToolShape{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema})
	}
	return json.Marshal(req)
}

func parseAnthropicResponse(raw []byte) (*Response, error) {
	var body anthropicResponseShape
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode anthropic response: %w", err)
	}
	if body.Error != nil {
		return nil, fmt.Errorf("provider error: %s", body.Error.Message)
	}

	resp := &Response{FinishReason: body.StopReason, Usage: &agimsg.Usage{
		PromptTokens:     body.Usage.InputTokens,
		CompletionTokens: body.Usage.OutputTokens,
		TotalTokens:      body.Usage.InputTokens + body.Usage.OutputTokens,
	}}
	for _, block := range body.Content {
		switch block.Type {
		case "text":
			text := block.Text
			resp.Content = &text
		case "tool_use":
			resp.ToolCalls = append(resp.ToolCalls, agimsg.ToolCall{ID: block.ID, Name: block.Name, Arguments: block.Input})
		}
	}
	return resp, nil
}
