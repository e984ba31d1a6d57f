package wecom

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// APIError is a non-zero errcode reported inside a WeCom response
// body. WeCom signals failures this way with HTTP 200.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wecom api error %d: %s", e.Code, e.Msg)
}

// Client is a minimal WeCom (qyapi.weixin.qq.com) API client.
// It performs single attempts with a bounded timeout; no retries.
type Client struct {
	corpID     string
	corpSecret string
	apiBase    string
	httpClient *http.Client
}

func NewClient(corpID, corpSecret, apiBase string, timeout time.Duration) *Client {
	return &Client{
		corpID:     corpID,
		corpSecret: corpSecret,
		apiBase:    strings.TrimRight(apiBase, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type apiStatus struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

func (s apiStatus) err() error {
	if s.ErrCode != 0 {
		return &APIError{Code: s.ErrCode, Msg: s.ErrMsg}
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.apiBase + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("wecom: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("wecom: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wecom: %s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("wecom: %s: decode response: %w", path, err)
	}

	return nil
}

// FetchToken requests a fresh access token from the provider.
// The returned duration is the provider-reported lifetime.
func (c *Client) FetchToken(ctx context.Context) (string, time.Duration, error) {
	var resp struct {
		apiStatus
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}

	q := url.Values{}
	q.Set("corpid", c.corpID)
	q.Set("corpsecret", c.corpSecret)

	if err := c.getJSON(ctx, "/cgi-bin/gettoken", q, &resp); err != nil {
		return "", 0, err
	}
	if err := resp.err(); err != nil {
		return "", 0, err
	}
	if resp.AccessToken == "" {
		return "", 0, fmt.Errorf("wecom: gettoken returned empty access_token")
	}

	return resp.AccessToken, time.Duration(resp.ExpiresIn) * time.Second, nil
}

// UserIDByCode trades a one-time authorization code for the visiting
// user's id. A non-zero errcode means the code was expired, reused or
// malformed.
func (c *Client) UserIDByCode(ctx context.Context, accessToken, code string) (string, error) {
	var resp struct {
		apiStatus
		UserID string `json:"UserId"`
	}

	q := url.Values{}
	q.Set("access_token", accessToken)
	q.Set("code", code)

	if err := c.getJSON(ctx, "/cgi-bin/user/getuserinfo", q, &resp); err != nil {
		return "", err
	}
	if err := resp.err(); err != nil {
		return "", err
	}
	if resp.UserID == "" {
		return "", &APIError{Code: -1, Msg: "getuserinfo returned no UserId"}
	}

	return resp.UserID, nil
}

// UserDetail holds the directory record used to enrich a profile.
type UserDetail struct {
	UserID     string
	Name       string
	Mobile     string
	Email      string
	Avatar     string
	Department string
}

// FetchUserDetail looks up the directory record for userID.
func (c *Client) FetchUserDetail(ctx context.Context, accessToken, userID string) (*UserDetail, error) {
	var resp struct {
		apiStatus
		UserID     string `json:"userid"`
		Name       string `json:"name"`
		Mobile     string `json:"mobile"`
		Email      string `json:"email"`
		Avatar     string `json:"avatar"`
		Department []int  `json:"department"`
	}

	q := url.Values{}
	q.Set("access_token", accessToken)
	q.Set("userid", userID)

	if err := c.getJSON(ctx, "/cgi-bin/user/get", q, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}

	depts := make([]string, 0, len(resp.Department))
	for _, d := range resp.Department {
		depts = append(depts, strconv.Itoa(d))
	}

	return &UserDetail{
		UserID:     resp.UserID,
		Name:       resp.Name,
		Mobile:     resp.Mobile,
		Email:      resp.Email,
		Avatar:     resp.Avatar,
		Department: strings.Join(depts, ","),
	}, nil
}
