package internal

const (
	COOKIE_ACCESS_TOKEN_NAME = "eco_session"
	COOKIE_REDIRECT_NAME     = "eco_redirect"
	COOKIE_STAGING_NAME      = "eco_staging"
)

const (
	HEADER_REQUEST_ID       = "X-Request-ID"
	HEADER_STAGING_PASSWORD = "X-Staging-Password"

	QUERY_STAGING_PASSWORD = "staging_password"
)
