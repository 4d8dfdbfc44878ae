// Package respond routes chat messages to response providers.
//
// Providers register under a model name prefix; lookup picks the longest
// matching prefix for the session's model. The server appends a user
// message, asks the matched provider for a reply, and appends the result
// as an assistant message. The mock provider serves tests and offline use.
package respond
