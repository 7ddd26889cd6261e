package utils

import "github.com/microcosm-cc/bluemonday"

// policy keeps the basic formatting students paste into posts, replies,
// and resource descriptions while stripping scripts and event handlers.
// sub and sup stay allowed so simple physics notation survives.
var policy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("sub", "sup")
	return p
}()

// Sanitize strips unsafe HTML from user supplied content.
func Sanitize(input string) string {
	return policy.Sanitize(input)
}
