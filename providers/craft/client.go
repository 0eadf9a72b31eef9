// Package craft talks to the Craft Docs block API.
//
// Craft models a document as a tree of blocks. Markdown goes in through
// POST /blocks with a position anchor; reads come back as a block with its
// child content inlined.
package craft

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/tylwright/craft-docs-proxmox/docscan"
)

// Insert positions accepted by the blocks endpoint
const (
	PositionStart = "start"
	PositionEnd   = "end"
)

// Config holds Craft API connection settings
type Config struct {
	APIURL  string
	APIKey  string
	Timeout time.Duration
}

// APIError is a non-2xx response from the Craft API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("craft api: status %d: %s", e.StatusCode, e.Message)
}

// Document is a top-level Craft document
type Document struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	IsDeleted bool   `json:"isDeleted"`
}

// Block is one node of a document tree. Content is populated when the API
// returns children inline.
type Block struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	Markdown string  `json:"markdown"`
	Content  []Block `json:"content,omitempty"`
}

// Client is a Craft Docs API client
type Client struct {
	cfg    Config
	http   *http.Client
	base   string
	logger zerolog.Logger
}

// NewClient creates a Craft API client
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Timeout == 0 {
		// Large full-replace syncs push a lot of markdown in one call
		cfg.Timeout = 120 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		base:   trimSlash(cfg.APIURL),
		logger: logger.With().Str("component", "craft").Logger(),
	}
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// itemsEnvelope wraps list-shaped responses
type itemsEnvelope struct {
	Items json.RawMessage `json:"items"`
}

// apiError is the error body shape the API returns on failure
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	endpoint := c.base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding %s %s payload: %w", method, path, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("building %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s %s response: %w", method, path, err)
	}

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp.StatusCode, raw)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decoding %s %s response: %w", method, path, err)
		}
	}
	return nil
}

func decodeAPIError(status int, raw []byte) *APIError {
	var body apiError
	message := string(raw)
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Error != "" {
			message = body.Error
		} else if body.Message != "" {
			message = body.Message
		}
	}
	if message == "" {
		message = fmt.Sprintf("HTTP %d", status)
	}
	return &APIError{StatusCode: status, Message: message}
}

// Documents lists every document the API token can reach
func (c *Client) Documents(ctx context.Context) ([]Document, error) {
	var envelope itemsEnvelope
	if err := c.do(ctx, http.MethodGet, "/documents", nil, nil, &envelope); err != nil {
		return nil, err
	}
	var docs []Document
	if len(envelope.Items) > 0 {
		if err := json.Unmarshal(envelope.Items, &docs); err != nil {
			return nil, fmt.Errorf("decoding document list: %w", err)
		}
	}
	return docs, nil
}

// GetBlock fetches a block or document with its children inlined
func (c *Client) GetBlock(ctx context.Context, blockID string) (*Block, error) {
	var block Block
	query := url.Values{"id": {blockID}}
	if err := c.do(ctx, http.MethodGet, "/blocks", query, nil, &block); err != nil {
		return nil, err
	}
	return &block, nil
}

// ChildBlocks returns the direct children of a block as scan input.
// Satisfies the document scanner's block source.
func (c *Client) ChildBlocks(ctx context.Context, blockID string) ([]docscan.Block, error) {
	block, err := c.GetBlock(ctx, blockID)
	if err != nil {
		return nil, err
	}
	out := make([]docscan.Block, 0, len(block.Content))
	for _, child := range block.Content {
		out = append(out, docscan.Block{ID: child.ID, Markdown: child.Markdown})
	}
	return out, nil
}

// insertPayload anchors inserted markdown at a position inside a page
type insertPayload struct {
	Markdown string         `json:"markdown"`
	Position insertPosition `json:"position"`
}

type insertPosition struct {
	Position string `json:"position"`
	PageID   string `json:"pageId"`
}

// InsertMarkdown pushes markdown into a page; Craft converts it to blocks
// and returns the blocks it created
func (c *Client) InsertMarkdown(ctx context.Context, markdown, pageID, position string) ([]Block, error) {
	payload := insertPayload{
		Markdown: markdown,
		Position: insertPosition{Position: position, PageID: pageID},
	}

	var envelope itemsEnvelope
	if err := c.do(ctx, http.MethodPost, "/blocks", nil, payload, &envelope); err != nil {
		return nil, err
	}
	var created []Block
	if len(envelope.Items) > 0 {
		if err := json.Unmarshal(envelope.Items, &created); err != nil {
			return nil, fmt.Errorf("decoding created blocks: %w", err)
		}
	}
	return created, nil
}

// deletePayload names the blocks to remove
type deletePayload struct {
	BlockIDs []string `json:"blockIds"`
}

// DeleteBlocks removes blocks by id
func (c *Client) DeleteBlocks(ctx context.Context, blockIDs []string) error {
	if len(blockIDs) == 0 {
		return nil
	}
	return c.do(ctx, http.MethodDelete, "/blocks", nil, deletePayload{BlockIDs: blockIDs}, nil)
}

// ClearDocument removes every top-level block of a document
func (c *Client) ClearDocument(ctx context.Context, pageID string) error {
	block, err := c.GetBlock(ctx, pageID)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(block.Content))
	for _, child := range block.Content {
		if child.ID != "" {
			ids = append(ids, child.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	c.logger.Debug().Int("blocks", len(ids)).Str("page", pageID).Msg("clearing document")
	return c.DeleteBlocks(ctx, ids)
}

// TestConnection checks API reachability
func (c *Client) TestConnection(ctx context.Context) bool {
	_, err := c.Documents(ctx)
	return err == nil
}
