package reddit

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// oauthHTTPClient returns an HTTP client that authenticates with Reddit's
// application-only OAuth flow. Tokens are fetched and refreshed on demand.
// The base client's transport, timeout and redirect policy are kept.
func oauthHTTPClient(ctx context.Context, cfg Config, base *http.Client) *http.Client {
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: base.Timeout})
	authed := cc.Client(ctx)

	return &http.Client{
		Transport:     authed.Transport,
		Timeout:       base.Timeout,
		CheckRedirect: base.CheckRedirect,
	}
}
