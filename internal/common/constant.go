package common

// AccessTokenCookieName is the cookie that carries the session token.
const AccessTokenCookieName = "access_token"

// BearerPrefix precedes the token inside the session cookie value.
const BearerPrefix = "Bearer "

// TokenTypeBearer is reported to clients next to issued tokens.
const TokenTypeBearer = "bearer"
