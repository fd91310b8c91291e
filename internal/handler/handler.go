// Package handler is the HTTP layer of the local adapter.
//
// It turns an echo request into the event the Lambda runtime would deliver,
// runs it through the invocation pipeline and writes the resulting envelope
// back as a plain HTTP response.
package handler
