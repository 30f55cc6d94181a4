package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shared-board/backend/internal/model"
)

// Binding is the naming layer's JSON representation of a name binding.
type Binding struct {
	Name string        `json:"name"`
	ID   model.BoardID `json:"id"`
}

// Client is a Directory served by a remote naming layer over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the naming layer at baseURL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// Resolve calls GET /api/board_id?name=.
func (c *Client) Resolve(ctx context.Context, name string) (model.BoardID, error) {
	if err := model.ValidateName(name); err != nil {
		return "", err
	}
	return c.getBinding(ctx, "/api/board_id?name="+url.QueryEscape(name))
}

// Lookup calls GET /api/boards/:name.
func (c *Client) Lookup(ctx context.Context, name string) (model.BoardID, error) {
	if err := model.ValidateName(name); err != nil {
		return "", err
	}
	return c.getBinding(ctx, "/api/boards/"+url.PathEscape(name))
}

// Deregister calls DELETE /internal/delete_board?id=.
func (c *Client) Deregister(ctx context.Context, id model.BoardID) error {
	endpoint := c.baseURL + "/internal/delete_board?id=" + url.QueryEscape(string(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build deregister request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deregister board %s: %w", id, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("failed to deregister board %s: naming layer returned %s", id, resp.Status)
	}
	return nil
}

func (c *Client) getBinding(ctx context.Context, path string) (model.BoardID, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build naming request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("naming request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return "", model.ErrBoardNotFound
	}
	if resp.StatusCode/100 != 2 {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("naming layer returned %s", resp.Status)
	}

	var binding Binding
	if err := json.NewDecoder(resp.Body).Decode(&binding); err != nil {
		return "", fmt.Errorf("failed to decode naming response: %w", err)
	}
	if binding.ID == "" {
		return "", fmt.Errorf("naming layer returned an empty board id")
	}
	return binding.ID, nil
}
