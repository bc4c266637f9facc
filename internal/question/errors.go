package question

import "fmt"

// ParseError means the input could not be read as a JSON array of questions.
type ParseError struct {
	Source string // "generator" or "upload"
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s questions: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError means the JSON parsed but does not describe a valid question set.
type SchemaError struct {
	Number  int    // question_number of the offending question, 0 for set-level problems
	Field   string // JSON field name
	Message string
}

func (e *SchemaError) Error() string {
	if e.Number == 0 {
		return fmt.Sprintf("invalid question set: %s", e.Message)
	}
	return fmt.Sprintf("invalid question %d: %s: %s", e.Number, e.Field, e.Message)
}
