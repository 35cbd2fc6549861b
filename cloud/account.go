package cloud

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Credentials identify a Things Cloud account.
type Credentials struct {
	Email    string
	Password string
}

// encodedPayload builds the B64SON authorization value: a base64
// encoding of {"ep":{"e":email,"p":password}}.
func (c Credentials) encodedPayload() (string, error) {
	payload, err := json.Marshal(map[string]any{
		"ep": map[string]string{"e": c.Email, "p": c.Password},
	})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

// AccountInfo is the account record returned by login. The history
// key is the account id used in history URLs.
type AccountInfo struct {
	SLAVersionAccepted string `json:"SLA-version-accepted"`
	Email              string `json:"email"`
	HistoryKey         string `json:"history-key"`
	Issues             []any  `json:"issues"`
	MaildropEmail      string `json:"maildrop-email"`
	Status             string `json:"status"`
}

// AccountStatusActive is the status of an account in good standing.
const AccountStatusActive = "SYAccountStatusActive"

// SharedSession is the negotiated sync session: the server's current
// head index (the initial watermark) and the session secret.
type SharedSession struct {
	HeadIndex               int    `json:"headIndex"`
	HistoryKeySessionSecret string `json:"historyKeySessionSecret"`
}

// Login authenticates with password authorization and returns the
// account info, including the history key needed to build a Client.
func Login(ctx context.Context, baseURL string, creds Credentials, httpClient *http.Client) (*AccountInfo, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = defaultHTTPClient()
	}

	endpoint := fmt.Sprintf("%s/version/1/account/%s", baseURL, url.PathEscape(creds.Email))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransportError{Op: "login", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Password "+url.QueryEscape(creds.Password))

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "login", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Op: "login", StatusCode: resp.StatusCode}
	}

	var info AccountInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("login: malformed account response: %w", err)
	}
	return &info, nil
}

// NewSession negotiates a shared sync session. The returned head
// index seeds the watermark for a fresh local table.
func NewSession(ctx context.Context, baseURL string, creds Credentials, httpClient *http.Client) (*SharedSession, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = defaultHTTPClient()
	}

	auth, err := creds.encodedPayload()
	if err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}

	endpoint := baseURL + "/api/account/login/getT3SharedSession"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, &TransportError{Op: "new session", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "B64SON "+auth)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "new session", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Op: "new session", StatusCode: resp.StatusCode}
	}

	var session SharedSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("new session: malformed session response: %w", err)
	}
	return &session, nil
}
