package oauth2

import "golang.org/x/oauth2"

// ExportToken returns the token stored in the TokenInjector.
func (h *TokenInjector) ExportToken() *oauth2.Token {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.token
}

// SetToken replaces the stored token, which makes the next request reuse it.
func (h *TokenInjector) SetToken(token *oauth2.Token) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.token = token
}
