package wecom

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jyfmidi/shuxinyuan-express/internal/auth"
	"github.com/jyfmidi/shuxinyuan-express/internal/logger"
)

const providerName = "wecom"

// authorizePath is the browser-facing endpoint on open.weixin.qq.com.
const authorizePath = "/connect/oauth2/authorize"

// Provider implements SSO against WeChat Work (WeCom). It returns
// identity facts only; no session decisions are made here.
type Provider struct {
	corpID        string
	agentID       string
	redirectURI   string
	authorizeBase string

	client *Client
	tokens *TokenCache
}

// New initializes a WeCom provider. apiBase and authorizeBase default
// to the production WeCom hosts in config and are overridable for
// tests.
func New(
	corpID string,
	agentID string,
	agentSecret string,
	redirectURI string,
	apiBase string,
	authorizeBase string,
	timeout time.Duration,
	tokenOptions ...TokenCacheOption,
) (*Provider, error) {

	if corpID == "" || agentID == "" || agentSecret == "" || redirectURI == "" {
		return nil, errors.New("wecom config missing required fields")
	}

	client := NewClient(corpID, agentSecret, apiBase, timeout)

	return &Provider{
		corpID:        corpID,
		agentID:       agentID,
		redirectURI:   redirectURI,
		authorizeBase: strings.TrimRight(authorizeBase, "/"),
		client:        client,
		tokens:        NewTokenCache(client, tokenOptions...),
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return providerName
}

// BuildLoginURL builds the WeCom authorization URL. WeCom deviates
// from standard OAuth2 here: the client identifier travels as appid
// and the URL must end in a #wechat_redirect fragment.
func (p *Provider) BuildLoginURL(state string) string {
	query := url.Values{}
	query.Set("appid", p.corpID)
	query.Set("redirect_uri", p.redirectURI)
	query.Set("response_type", "code")
	query.Set("scope", "snsapi_base")
	query.Set("state", state)

	return p.authorizeBase + authorizePath + "?" + query.Encode() + "#wechat_redirect"
}

// Exchange trades the authorization code for a user profile.
//
// Step 1 obtains an access token through the shared cache; a failure
// there means the provider itself is unreachable or misconfigured.
// Step 2 confirms identity from the code. Step 3 enriches the profile
// from the directory and is best effort: its failure degrades the
// result to a minimal profile instead of failing the exchange.
func (p *Provider) Exchange(ctx context.Context, code string) (*auth.ExchangeResult, string, error) {
	accessToken, err := p.tokens.Token(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", auth.ErrAuthInfrastructure, err)
	}

	userID, err := p.client.UserIDByCode(ctx, accessToken, code)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return nil, "", fmt.Errorf("%w: %w", auth.ErrInvalidAuthorizationCode, err)
		}
		return nil, "", fmt.Errorf("%w: %w", auth.ErrAuthInfrastructure, err)
	}

	profile := auth.UserProfile{UserID: userID}

	detail, err := p.client.FetchUserDetail(ctx, accessToken, userID)
	if err != nil {
		logger.Warn("wecom profile enrichment failed", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
		return &auth.ExchangeResult{Profile: profile, Complete: false}, accessToken, nil
	}

	profile.Name = detail.Name
	profile.Mobile = detail.Mobile
	profile.Email = detail.Email
	profile.AvatarURL = detail.Avatar
	profile.Department = detail.Department

	return &auth.ExchangeResult{Profile: profile, Complete: true}, accessToken, nil
}
