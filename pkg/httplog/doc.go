// Package httplog provides chi-compatible middleware that reports requests,
// responses, panics and rate limiting as structured events.
package httplog
