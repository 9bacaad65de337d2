// Package domain contains core domain types for the Aranea engine.
package domain

// PlaceholderMessage substitutes for a missing response line so a directive's
// user message is never empty.
const PlaceholderMessage = "I'm processing your request."

// Directive is the structured command extracted from a model's free-text
// reply: what to tell the user, and optionally which capability to invoke
// with which arguments.
type Directive struct {
	UserMessage  string
	FunctionName string // empty when the model requested no function
	Args         *Args  // nil when the model supplied no arguments
}

// HasFunction reports whether the directive names a capability to invoke.
func (d Directive) HasFunction() bool {
	return d.FunctionName != ""
}
