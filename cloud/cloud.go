// Package cloud talks HTTP to the Things Cloud service: history
// fetches, commits, and account/session bootstrap. It deals purely in
// wire exchange; reconciliation semantics live in the history
// package.
package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/thingsdev/thingscloud/history"
)

const (
	// DefaultBaseURL is the production service endpoint.
	DefaultBaseURL = "https://cloud.culturedcode.com"

	// DefaultAppID identifies the client the way the desktop app
	// does; the service rejects commits from unknown apps.
	DefaultAppID = "com.culturedcode.ThingsMac"

	// schemaVersion is the wire schema this client speaks.
	schemaVersion = "301"

	defaultHTTPTimeout        = 60 * time.Second
	defaultHTTPConnectTimeout = 5 * time.Second
	defaultHTTPTLSTimeout     = 5 * time.Second
)

func defaultHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout: defaultHTTPConnectTimeout,
	}
	return &http.Client{
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: defaultHTTPTLSTimeout,
		},
		Timeout: defaultHTTPTimeout,
	}
}

// Client is a Things Cloud API client bound to one account history.
//
// Commits are serialized: the ancestor index is an optimistic
// concurrency token, so two in-flight commits racing on the same
// offset would guarantee one rejection. One at a time is the only
// sensible policy for a single client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	account    string
	userAgent  string
	appID      string

	commitMu sync.Mutex
}

// Options configures a Client.
type Options struct {
	// Account is the history key identifying the account's change
	// log. Required.
	Account string

	// BaseURL overrides the service endpoint, mainly for tests.
	BaseURL string

	// UserAgent is sent with every request.
	UserAgent string

	// AppID identifies the committing application.
	AppID string

	// HTTPClient overrides the default client with its explicit
	// connect and TLS timeouts.
	HTTPClient *http.Client
}

// NewClient builds a client for the given account history.
func NewClient(opts Options) (*Client, error) {
	if opts.Account == "" {
		return nil, fmt.Errorf("account is required")
	}
	c := &Client{
		httpClient: opts.HTTPClient,
		baseURL:    opts.BaseURL,
		account:    opts.Account,
		userAgent:  opts.UserAgent,
		appID:      opts.AppID,
	}
	if c.httpClient == nil {
		c.httpClient = defaultHTTPClient()
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.appID == "" {
		c.appID = DefaultAppID
	}
	return c, nil
}

func (c *Client) headers(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Charset", "UTF-8")
	req.Header.Set("Accept-Language", "en-gb")
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("Schema", schemaVersion)
	req.Header.Set("App-Id", c.appID)
	req.Header.Set("App-Instance-Id", "-"+c.appID)
	req.Header.Set("Push-Priority", "5")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}

// historyResponse is the wire shape of a history items page. The
// content-size fields are metadata the client does not act on.
type historyResponse struct {
	Items                  []json.RawMessage `json:"items"`
	CurrentItemIndex       *int              `json:"current-item-index"`
	LatestTotalContentSize int64             `json:"latest-total-content-size"`
	SchemaVersion          int               `json:"schema"`
}

// FetchHistory returns all updates strictly after sinceIndex, along
// with the server's current head index. An empty page still reports
// the head index, which callers use to advance their watermark.
func (c *Client) FetchHistory(ctx context.Context, sinceIndex int) (history.Batch, error) {
	endpoint := fmt.Sprintf("%s/version/1/history/%s/items", c.baseURL, url.PathEscape(c.account))
	q := url.Values{"start-index": {strconv.Itoa(sinceIndex)}}

	body, err := c.do(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil, "fetch history")
	if err != nil {
		return history.Batch{}, err
	}

	var resp historyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return history.Batch{}, fmt.Errorf("%w: malformed history response: %v", history.ErrProtocolViolation, err)
	}
	if resp.CurrentItemIndex == nil {
		return history.Batch{}, fmt.Errorf("%w: history response missing current-item-index", history.ErrProtocolViolation)
	}

	batch := history.Batch{CurrentIndex: *resp.CurrentItemIndex}
	for _, raw := range resp.Items {
		updates, err := history.DecodeItem(raw)
		if err != nil {
			return history.Batch{}, err
		}
		batch.Updates = append(batch.Updates, updates...)
	}
	return batch, nil
}

type commitResponse struct {
	ServerHeadIndex *int `json:"server-head-index"`
}

// Commit sends updates based at ancestorIndex and returns the new
// server head index. The server rejects the commit if its head has
// moved past the ancestor index; the caller should fetch history and
// rebuild the updates.
func (c *Client) Commit(ctx context.Context, ancestorIndex int, updates []history.Update) (int, error) {
	if len(updates) == 0 {
		return 0, history.ErrNoChanges
	}

	payload, err := history.MarshalCommit(updates)
	if err != nil {
		return 0, err
	}

	endpoint := fmt.Sprintf("%s/version/1/history/%s/commit", c.baseURL, url.PathEscape(c.account))
	q := url.Values{
		"ancestor-index": {strconv.Itoa(ancestorIndex)},
		"_cnt":           {strconv.Itoa(len(updates))},
	}

	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	body, err := c.do(ctx, http.MethodPost, endpoint+"?"+q.Encode(), payload, "commit")
	if err != nil {
		return 0, err
	}

	var resp commitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("%w: malformed commit response: %v", history.ErrProtocolViolation, err)
	}
	if resp.ServerHeadIndex == nil {
		return 0, fmt.Errorf("%w: commit response missing server-head-index", history.ErrProtocolViolation)
	}
	return *resp.ServerHeadIndex, nil
}

// do performs one exchange and returns the response body. Non-2xx
// statuses and connection failures both surface as *TransportError.
func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, op string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	c.headers(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode}
	}
	return data, nil
}
