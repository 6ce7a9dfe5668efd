package validate

import "fmt"

// UnknownToolError is returned when the requested tool is not in the
// catalogue.
type UnknownToolError struct {
	// Name is the tool name the caller asked for.
	Name string

	// Suggestion is the closest catalogue name, if one is similar enough.
	Suggestion string
}

func (e *UnknownToolError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown tool %q (did you mean %q?)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// SchemaViolationError is returned when arguments do not satisfy a tool's
// input schema.
type SchemaViolationError struct {
	// Tool is the tool whose schema was violated.
	Tool string

	// Field is the JSON pointer of the offending value, e.g.
	// "/videosPerChannel". Empty when the violation concerns the whole
	// payload.
	Field string

	// Reason describes the violation.
	Reason string
}

func (e *SchemaViolationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid arguments for %s: %s: %s", e.Tool, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Reason)
}
