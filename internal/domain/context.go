package domain

import "context"

type accessTokenKey struct{}

// WithAccessToken returns ctx carrying the signed-in user's access token.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessTokenFromContext returns the access token set by WithAccessToken,
// or "" for anonymous requests.
func AccessTokenFromContext(ctx context.Context) string {
	tok, _ := ctx.Value(accessTokenKey{}).(string)
	return tok
}
