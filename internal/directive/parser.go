// Package directive extracts typed commands from raw model replies.
//
// The model is contracted to answer in a line-oriented form:
//
//	response: <free text>
//	function_to_execute: <identifier | null>
//	function_arguments: <single-line key/value literal | null>
//
// Parsing is deliberately forgiving: lines that match none of the prefixes
// are ignored, and a malformed argument literal degrades to absent arguments
// instead of failing the turn. Argument literals spanning multiple lines are
// not supported.
package directive

import (
	"strings"

	"github.com/aranea-sec/aranea/internal/domain"
)

const (
	responsePrefix  = "response:"
	functionPrefix  = "function_to_execute:"
	argumentsPrefix = "function_arguments:"

	// nullLiteral maps a field to "absent". Matched case-sensitively.
	nullLiteral = "null"
)

// Result is the outcome of parsing one model reply. ArgsErr is non-nil when
// an argument literal was present but malformed; the directive then carries
// no arguments and ArgsRaw preserves the offending text so the failure stays
// observable.
type Result struct {
	Directive domain.Directive
	ArgsRaw   string
	ArgsErr   error
}

// Parse scans text line by line for the three protocol prefixes. The first
// occurrence of each prefix wins; prefixes are case-sensitive. Parse never
// fails: a missing response line is replaced with a fixed placeholder so the
// user message is never empty.
func Parse(text string) Result {
	var res Result
	var haveResponse, haveFunction, haveArgs bool

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case !haveResponse && strings.HasPrefix(trimmed, responsePrefix):
			res.Directive.UserMessage = strings.TrimSpace(strings.TrimPrefix(trimmed, responsePrefix))
			haveResponse = true

		case !haveFunction && strings.HasPrefix(trimmed, functionPrefix):
			haveFunction = true
			name := strings.TrimSpace(strings.TrimPrefix(trimmed, functionPrefix))
			if name != nullLiteral {
				res.Directive.FunctionName = name
			}

		case !haveArgs && strings.HasPrefix(trimmed, argumentsPrefix):
			haveArgs = true
			literal := strings.TrimSpace(strings.TrimPrefix(trimmed, argumentsPrefix))
			if literal == nullLiteral || literal == "" {
				continue
			}
			args, err := ParseLiteral(literal)
			if err != nil {
				res.ArgsRaw = literal
				res.ArgsErr = err
				continue
			}
			res.Directive.Args = args
		}
	}

	if res.Directive.UserMessage == "" {
		res.Directive.UserMessage = domain.PlaceholderMessage
	}
	return res
}
