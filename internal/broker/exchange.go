package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hanzoai/oauth-proxy/internal/ioutil"
	"github.com/hanzoai/oauth-proxy/internal/provider"
)

// maxBodyBytes caps token-endpoint response bodies. Real token responses
// are a few hundred bytes.
const maxBodyBytes = 1 << 20

func (b *Broker) exchangeCode(ctx context.Context, p provider.Provider, code string) (provider.TokenBundle, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {b.callbackURL(p.Name())},
		"client_id":     {p.ClientID()},
		"client_secret": {p.ClientSecret()},
	}
	return b.tokenRequest(ctx, p, "token exchange", form)
}

// tokenRequest posts a form to the provider's token endpoint and normalizes
// the response into a TokenBundle via the provider's parse rule.
func (b *Broker) tokenRequest(ctx context.Context, p provider.Provider, op string, form url.Values) (provider.TokenBundle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.TokenURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return provider.TokenBundle{}, fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if h := p.AuthHeader(); h != "" {
		req.Header.Set("Authorization", h)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return provider.TokenBundle{}, &UpstreamError{Provider: p.Name(), Op: op, Detail: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return provider.TokenBundle{}, &UpstreamError{
			Provider: p.Name(),
			Op:       op,
			Status:   resp.StatusCode,
			Detail:   ioutil.ReadLimited(resp.Body, maxBodyBytes),
		}
	}

	payload, err := decodePayload(resp)
	if err != nil {
		return provider.TokenBundle{}, &UpstreamError{Provider: p.Name(), Op: op, Status: resp.StatusCode, Detail: err.Error()}
	}

	// Some providers signal failure in-band with a 2xx status.
	if errCode := payload.Str("error"); errCode != "" {
		detail := errCode
		if desc := payload.Str("error_description"); desc != "" {
			detail = errCode + " - " + desc
		}
		return provider.TokenBundle{}, &UpstreamError{Provider: p.Name(), Op: op, Status: resp.StatusCode, Detail: detail}
	}

	return p.ParseTokenResponse(payload), nil
}

// decodePayload normalizes a token-endpoint response body. GitHub answers
// form-encoded unless asked for JSON, so the content type is sniffed rather
// than trusted to be one shape.
func decodePayload(resp *http.Response) (provider.Payload, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var p provider.Payload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("failed to decode JSON token response: %w", err)
		}
		return p, nil
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("failed to decode form-encoded token response: %w", err)
	}
	p := make(provider.Payload, len(values))
	for k := range values {
		p[k] = values.Get(k)
	}
	return p, nil
}
