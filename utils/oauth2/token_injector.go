package oauth2

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/materials-data-facility/connect/internal/errs"
)

var (
	ErrFirstTokenRequestFailed = errors.New("failed to get token")
	ErrTokenReuse              = errors.New("failed to reuse token")
	ErrFailedToExecuteRequest  = errors.New("failed to execute request")
)

// TokenInjector is an http.RoundTripper that adds a bearer token to every
// request. The token is fetched on first use and refreshed once it expires.
// It is safe for concurrent use.
type TokenInjector struct {
	apiClient               *http.Client
	clientCredentialsConfig *clientcredentials.Config
	tokenClient             *http.Client

	mu    sync.Mutex
	token *oauth2.Token
}

// NewTokenInjector creates a new instance of TokenInjector. apiClient
// executes the requests, tokenClient talks to the token endpoint.
func NewTokenInjector(
	apiClient *http.Client,
	tokenClient *http.Client,
	clientCredentialsConfig *clientcredentials.Config,
) *TokenInjector {
	return &TokenInjector{
		apiClient:               apiClient,
		tokenClient:             tokenClient,
		clientCredentialsConfig: clientCredentialsConfig,
	}
}

// RoundTrip executes a single HTTP transaction with the bearer token set.
func (h *TokenInjector) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := h.currentToken(req.Context())
	if err != nil {
		return nil, err
	}

	// RoundTrippers must not modify the caller's request.
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+token.AccessToken)

	do, err := h.apiClient.Do(out)
	if err != nil {
		return nil, errs.Wrap(ErrFailedToExecuteRequest, err)
	}

	return do, nil
}

func (h *TokenInjector) currentToken(ctx context.Context) (*oauth2.Token, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.token == nil {
		token, err := h.login(ctx)
		if err != nil {
			return nil, err
		}

		h.token = token

		return token, nil
	}

	token, err := h.reuse(ctx)
	if err != nil {
		return nil, err
	}

	h.token = token

	return token, nil
}

// createTokenSource creates a new token source.
func (h *TokenInjector) createTokenSource(ctx context.Context) oauth2.TokenSource {
	tokenAPICtx := context.WithValue(ctx, oauth2.HTTPClient, h.tokenClient)
	return h.clientCredentialsConfig.TokenSource(tokenAPICtx)
}

func (h *TokenInjector) login(ctx context.Context) (*oauth2.Token, error) {
	token, err := h.createTokenSource(ctx).Token()
	if err != nil {
		return nil, errs.Wrap(ErrFirstTokenRequestFailed, err)
	}

	return token, nil
}

func (h *TokenInjector) reuse(ctx context.Context) (*oauth2.Token, error) {
	source := h.createTokenSource(ctx)

	token, err := oauth2.ReuseTokenSource(h.token, source).Token()
	if err != nil {
		return nil, errs.Wrap(ErrTokenReuse, err)
	}

	return token, nil
}
