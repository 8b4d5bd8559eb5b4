// Package api implements the HTTP JSON client for the srpvault server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dbelyaev/srpvault/internal/common"
)

const basePath = "/v1/auth/pake"

// Client talks to the server's JSON API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a Client for the given base URL, e.g.
// "https://vault.example:8443".
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) RegisterStart(ctx context.Context, userID string) (*RegisterStartResponse, error) {
	out := &RegisterStartResponse{}
	err := c.post(ctx, "/register/start", "", map[string]string{"userId": userID}, out)
	return out, err
}

func (c *Client) RegisterFinish(ctx context.Context, req *RegisterFinishRequest) error {
	return c.post(ctx, "/register/finish", "", req, nil)
}

func (c *Client) LoginStart(ctx context.Context, req *LoginStartRequest) (*LoginStartResponse, error) {
	out := &LoginStartResponse{}
	err := c.post(ctx, "/login/start", "", req, out)
	return out, err
}

func (c *Client) LoginFinish(ctx context.Context, req *LoginFinishRequest) (*LoginFinishResponse, error) {
	out := &LoginFinishResponse{}
	err := c.post(ctx, "/login/finish", "", req, out)
	return out, err
}

func (c *Client) TokenRefresh(ctx context.Context, refreshToken string) (*TokenRefreshResponse, error) {
	out := &TokenRefreshResponse{}
	err := c.post(ctx, "/token/refresh", "", map[string]string{"refreshToken": refreshToken}, out)
	return out, err
}

func (c *Client) PairStart(ctx context.Context, accessToken, sourceDeviceID string) (*PairStartResponse, error) {
	out := &PairStartResponse{}
	err := c.post(ctx, "/pair/start", accessToken, map[string]string{"sourceDeviceId": sourceDeviceID}, out)
	return out, err
}

func (c *Client) PairTransfer(ctx context.Context, accessToken string, req *PairTransferRequest) error {
	return c.post(ctx, "/pair/transfer", accessToken, req, nil)
}

func (c *Client) PairRedeem(ctx context.Context, req *PairRedeemRequest) (*PairRedeemResponse, error) {
	out := &PairRedeemResponse{}
	err := c.post(ctx, "/pair/redeem", "", req, out)
	return out, err
}

func (c *Client) Upgrade(ctx context.Context, accessToken string, req *UpgradeRequest) error {
	return c.post(ctx, "/upgrade", accessToken, req, nil)
}

func (c *Client) post(ctx context.Context, path, accessToken string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+basePath+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+accessToken)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return statusError(res)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// statusError maps response statuses back onto the shared error taxonomy so
// callers can branch with errors.Is.
func statusError(res *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(res.Body).Decode(&body)
	if body.Error == "" {
		body.Error = res.Status
	}

	var sentinel error
	switch res.StatusCode {
	case http.StatusBadRequest:
		sentinel = common.ErrorValidation
	case http.StatusUnauthorized:
		sentinel = common.ErrorUnauthorized
	case http.StatusNotFound:
		sentinel = common.ErrorNotFound
	case http.StatusConflict:
		sentinel = common.ErrorAlreadyExists
	case http.StatusTooManyRequests:
		sentinel = common.ErrorRateLimited
	default:
		sentinel = common.ErrorInternal
	}
	return fmt.Errorf("%w: %s", sentinel, body.Error)
}
