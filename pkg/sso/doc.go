// Package sso is the identity provider client for the OAuth2 authorization-code flow.
//
// AzureClient builds the authorization URL, redeems the returned code and reads the
// user's Microsoft Graph profile. When configured, IDTokenVerifier checks the id_token
// issued alongside the access token.
//
//	client, err := sso.NewAzureClient(cfg.Provider)
//	url := client.BuildAuthorizationURL(client.Scopes(), state)
//	token, err := client.ExchangeCodeForToken(ctx, code, client.Scopes())
//	profile, err := client.FetchProfile(ctx, token)
//
// Every failure is an *auth.Error of kind KindProvider. Calls are bounded by
// Config.Timeout and are not retried.
package sso
