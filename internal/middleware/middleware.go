// Package middleware holds the echo middleware of the local HTTP adapter:
// request ids, request-scoped loggers, New Relic tracing, request logging,
// rate limiting and the global error handler.
package middleware
