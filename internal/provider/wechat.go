package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// WeChatCredential is the credential shape the wechat provider expects.
type WeChatCredential struct {
	JSCode string
}

// WeChatProvider exchanges a mini-program js_code for an openid via
// WeChat's jscode2session endpoint. It never persists session_key.
type WeChatProvider struct {
	client   *http.Client
	endpoint string
}

var _ AuthProvider = &WeChatProvider{}

// NewWeChatProvider builds a WeChatProvider with a bounded-timeout client.
func NewWeChatProvider() *WeChatProvider {
	return &WeChatProvider{
		client:   &http.Client{Timeout: 5 * time.Second},
		endpoint: "https://api.weixin.qq.com/sns/jscode2session",
	}
}

type jsCode2SessionResponse struct {
	OpenID     string `json:"openid"`
	SessionKey string `json:"session_key"`
	UnionID    string `json:"unionid"`
	ErrCode    int    `json:"errcode"`
	ErrMsg     string `json:"errmsg"`
}

func (p *WeChatProvider) ProviderID() string { return "wechat" }

// Authenticate expects config to carry "appid" and "secret" for the
// application's registered WeChat mini-program.
func (p *WeChatProvider) Authenticate(ctx context.Context, config map[string]any, credential any) (UserInfo, error) {
	cred, ok := credential.(WeChatCredential)
	if !ok {
		return UserInfo{}, ErrProviderNotSupported
	}

	appid, _ := config["appid"].(string)
	secret, _ := config["secret"].(string)
	if appid == "" || secret == "" {
		return UserInfo{}, fmt.Errorf("wechat provider not configured for this application")
	}

	q := url.Values{}
	q.Set("appid", appid)
	q.Set("secret", secret)
	q.Set("js_code", cred.JSCode)
	q.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return UserInfo{}, fmt.Errorf("build wechat request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return UserInfo{}, fmt.Errorf("call wechat: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return UserInfo{}, fmt.Errorf("read wechat response: %w", err)
	}

	var parsed jsCode2SessionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return UserInfo{}, fmt.Errorf("decode wechat response: %w", err)
	}
	if parsed.ErrCode != 0 {
		return UserInfo{}, fmt.Errorf("wechat error %d: %s", parsed.ErrCode, parsed.ErrMsg)
	}

	return UserInfo{
		ProviderAccountID: parsed.OpenID,
		Metadata: map[string]any{
			"openid":  parsed.OpenID,
			"unionid": parsed.UnionID,
		},
	}, nil
}
