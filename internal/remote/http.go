package remote

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"planner/internal/models"
)

// reconnectDelay paces attempts to re-establish a dropped event stream.
const reconnectDelay = 3 * time.Second

// Client talks to a sync document server over HTTP: whole-document PUT
// writes and a server-sent-events subscription for pushes.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger
}

// NewClient builds a channel client for the given server base URL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{},
		logger:  logger,
	}
}

// Put replaces the user's record. Callers bound the call with a context
// deadline; there is no retry here.
func (c *Client) Put(ctx context.Context, userID string, doc models.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.docURL(userID), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("put document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("put document: server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

// Subscribe opens the user's event stream and keeps it alive until ctx is
// cancelled, reconnecting after transient failures. Each event carries the
// full document, or null while no record exists.
func (c *Client) Subscribe(ctx context.Context, userID string) (<-chan *models.Document, error) {
	out := make(chan *models.Document, 16)

	go func() {
		defer close(out)
		for {
			if err := c.stream(ctx, userID, out); err != nil && ctx.Err() == nil {
				c.logger.Warn("event stream dropped, reconnecting", slog.String("user", userID), slog.String("error", err.Error()))
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
		}
	}()
	return out, nil
}

// stream runs a single SSE connection, forwarding each document snapshot.
func (c *Client) stream(ctx context.Context, userID string, out chan<- *models.Document) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.docURL(userID)+"/events", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("open stream: server returned %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		payload, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		payload = strings.TrimSpace(payload)

		if payload == "null" {
			select {
			case out <- nil:
			case <-ctx.Done():
				return nil
			}
			continue
		}

		var doc models.Document
		if err := json.Unmarshal([]byte(payload), &doc); err != nil {
			c.logger.Warn("dropping malformed push", slog.String("user", userID), slog.String("error", err.Error()))
			continue
		}
		select {
		case out <- &doc:
		case <-ctx.Done():
			return nil
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}

func (c *Client) docURL(userID string) string {
	return c.baseURL + "/v1/tasks/" + url.PathEscape(userID)
}
