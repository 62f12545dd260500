package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"golang.org/x/xerrors"

	"wsb.com/wledger/internals/helpers"
)

// Client talks to a running node's HTTP API.
type Client struct {
	NodeURL string
	http    *http.Client
}

func New(nodeURL string) *Client {
	if !strings.Contains(nodeURL, "://") {
		nodeURL = "http://" + nodeURL
	}
	return &Client{
		NodeURL: strings.TrimRight(nodeURL, "/"),
		// Mining has no upper bound, so neither does the client.
		http: &http.Client{Timeout: 0},
	}
}

func (c *Client) GetChain(ctx context.Context) (*helpers.ChainResponse, error) {
	var data helpers.ChainResponse
	if err := c.do(ctx, http.MethodGet, "/chain", nil, http.StatusOK, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) Mine(ctx context.Context) (*helpers.MineResponse, error) {
	var data helpers.MineResponse
	if err := c.do(ctx, http.MethodGet, "/mine", nil, http.StatusOK, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) SendTransaction(ctx context.Context, tx helpers.Transaction) (string, error) {
	body, err := json.Marshal(tx)
	if err != nil {
		return "", xerrors.Errorf("couldn't encode transaction: %w", err)
	}
	var data helpers.MessageResponse
	if err := c.do(ctx, http.MethodPost, "/transactions/new", body, http.StatusCreated, &data); err != nil {
		return "", err
	}
	return data.Message, nil
}

// StatusError is returned when the node answers with an unexpected status.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return http.StatusText(e.Status) + ": " + e.Body
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, want int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.NodeURL+path, reader)
	if err != nil {
		return xerrors.Errorf("couldn't build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return xerrors.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return xerrors.Errorf("couldn't read response: %w", err)
	}
	if resp.StatusCode != want {
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return xerrors.Errorf("couldn't decode response from %s: %w", path, err)
	}
	return nil
}
