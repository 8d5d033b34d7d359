package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"log/slog"

	"folio/internal/config"
	"folio/internal/ledger"
	"folio/internal/logging"
)

// Client talks to one ledger on a record service. It is safe for use by
// a single worker loop; workers on different hosts coordinate through
// the service's lease semantics, not through this type.
type Client struct {
	ledgerName string
	baseURL    string
	logger     *slog.Logger

	next   *http.Client
	update *http.Client
}

// NewClient builds a client for the named ledger on the service at
// address ("host:port"). Timeouts come from the service configuration;
// a nil config falls back to defaults.
func NewClient(ledgerName, address string, cfg *config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	requestTimeout := 30 * time.Second
	updateTimeout := 60 * time.Second
	if cfg != nil {
		requestTimeout = time.Duration(cfg.Service.RequestTimeout) * time.Second
		updateTimeout = time.Duration(cfg.Service.UpdateTimeout) * time.Second
	}
	return &Client{
		ledgerName: ledgerName,
		baseURL:    fmt.Sprintf("http://%s/%s", address, url.PathEscape(ledgerName)),
		logger:     logger,
		next:       &http.Client{Timeout: requestTimeout},
		update:     &http.Client{Timeout: updateTimeout},
	}
}

// Next requests the next record in getState, asking the service to flip
// it to setState (empty labels fall back to the service's conventions).
// A records-exhausted response surfaces as ErrRecordsExhausted, a
// transport failure as ErrServiceUnreachable.
func (c *Client) Next(ctx context.Context, getState, setState string) (*ledger.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+commandNext, nil)
	if err != nil {
		return nil, fmt.Errorf("build next request: %w", err)
	}
	if getState != "" {
		req.Header.Set(HeaderGetState, getState)
	}
	if setState != "" {
		req.Header.Set(HeaderSetState, setState)
	}

	resp, err := c.next.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnreachable, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read next response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound && strings.HasPrefix(string(body), exhaustedPrefix) {
		return nil, fmt.Errorf("%w: %s", ErrRecordsExhausted, strings.TrimSpace(string(body)))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("record service status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload map[string]string
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode next response: %w", err)
	}
	record, err := ledger.RecordFromMap(payload)
	if err != nil {
		return nil, fmt.Errorf("decode next response: %w", err)
	}
	c.logger.Debug("received record",
		logging.String("ledger", c.ledgerName),
		logging.String("identifier", record.Identifier))
	return record, nil
}

// Update reports a record's new state, optionally attaching extra info
// keys. It returns the service's confirmation message.
func (c *Client) Update(ctx context.Context, identifier, state string, info ledger.Info) (string, error) {
	record := ledger.NewRecord(identifier)
	record.State = state
	if len(info) > 0 {
		record.AmendInfo(info)
	}
	encoded, err := json.Marshal(record.AsMap())
	if err != nil {
		return "", fmt.Errorf("encode update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/"+commandUpdate, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("build update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.update.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceUnreachable, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read update response: %w", err)
	}
	msg := strings.TrimSpace(string(body))
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("record service status %d: %s", resp.StatusCode, msg)
	}
	c.logger.Debug("record update confirmed",
		logging.String("ledger", c.ledgerName),
		logging.String("identifier", identifier),
		logging.String("state", state))
	return msg, nil
}
