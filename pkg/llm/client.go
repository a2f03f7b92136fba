package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
)

const defaultMaxTokens = 8192

// Client talks to a message-stream provider over HTTP.
type Client struct {
	model      Model
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Client for the given model. An empty apiKey falls
// back to the STRAND_API_KEY environment variable at request time.
func NewClient(model Model, apiKey string) *Client {
	return &Client{
		model:      model,
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

var _ StreamSource = (*Client)(nil)

// Stream opens a streaming response for the request. Events are pushed
// into the returned stream as they decode; the stream terminates with a
// message_stop or error event, or when ctx is cancelled.
func (c *Client) Stream(ctx context.Context, req Request) *EventStream[StreamEvent, StreamEnd] {
	stream := NewStream()

	go func() {
		defer stream.End(StreamEnd{})

		resp, err := c.post(ctx, req, true)
		if err != nil {
			stream.Push(StreamEvent{Type: EventError, Err: err})
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			stream.Push(StreamEvent{Type: EventError, Err: ClassifyAPIError(resp.StatusCode, string(body))})
			return
		}

		decoder := NewDecoder(resp.Body)
		var stopReason string
		var usage Usage

		for {
			select {
			case <-ctx.Done():
				stream.Push(StreamEvent{Type: EventError, Err: ctx.Err()})
				return
			default:
			}

			event, ok := decoder.Next()
			if !ok {
				break
			}

			switch event.Type {
			case EventPing:
				continue
			case EventError:
				stream.Push(event)
				return
			case EventMessageDelta:
				if event.Delta != nil && event.Delta.StopReason != "" {
					stopReason = event.Delta.StopReason
				}
				if event.Usage != nil {
					usage = *event.Usage
				}
			case EventMessageStop:
				// Fold the accumulated stop reason and usage into the
				// terminal event so consumers see them in one place.
				event.Delta = &Delta{StopReason: stopReason}
				event.Usage = &usage
				stream.Push(event)
				return
			}

			stream.Push(event)
		}

		if err := decoder.Err(); err != nil {
			stream.Push(StreamEvent{Type: EventError, Err: fmt.Errorf("stream read: %w", err)})
			return
		}

		// Source closed without message_stop; synthesize one so the
		// consumer still observes a terminal event.
		stream.Push(StreamEvent{
			Type:  EventMessageStop,
			Delta: &Delta{StopReason: stopReason},
			Usage: &usage,
		})
	}()

	return stream
}

// Complete performs a single-shot, non-streaming request.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	resp, err := c.post(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyAPIError(resp.StatusCode, string(body))
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, req Request, streaming bool) (*http.Response, error) {
	apiKey := c.apiKey
	if apiKey == "" {
		apiKey = os.Getenv("STRAND_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("STRAND_API_KEY not set")
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	body := map[string]any{
		"model":      c.model.ID,
		"messages":   req.Messages,
		"max_tokens": maxTokens,
		"stream":     streaming,
	}
	if req.System != "" {
		body["system"] = req.System
	}
	if len(req.Tools) > 0 {
		body["tools"] = req.Tools
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	slog.Debug("[LLM] request", "model", c.model.ID, "provider", c.model.Provider,
		"stream", streaming, "bytes", len(jsonBody))

	url := strings.TrimSuffix(c.model.BaseURL, "/") + "/messages"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if strings.Contains(err.Error(), "no such host") {
			return nil, fmt.Errorf("DNS error: cannot resolve API host %q, check the configured base URL", c.model.BaseURL)
		}
		return nil, fmt.Errorf("connection error: %w", err)
	}
	return resp, nil
}
