// Package errs define custom error types and utilities.
//
// Every failure the invocation pipeline can produce is an *Error tagged with
// a Kind. The Kind decides the HTTP status code of the response envelope,
// so the whole status mapping lives in one switch (Kind.Status).
//
// - Return consistent error shapes to callers (JSON).
// - Keep the validator wording of client-facing messages intact.
// - Provide errors that play nicely with Go's standard errors package.
package errs
