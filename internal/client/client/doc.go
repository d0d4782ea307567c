// Package client contains the CLI's building blocks: an HTTP client for the
// auth server API (see Client and HTTPClient) and the local SQLite database
// bootstrap (InitDatabase) that keeps the session between runs.
//
// Transport failures are reported as ErrUnavailable. Non-2xx answers become
// *APIError values; a 401 also matches ErrUnauthorized.
package client
