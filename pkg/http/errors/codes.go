package errors

// Error codes returned in the "error" field of JSON error bodies.
const (
	// Request errors
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeTopicRequired    = "topic_required"
	ErrCodeInvalidCount     = "invalid_count"
	ErrCodePayloadTooLarge  = "payload_too_large"

	// Question set errors
	ErrCodeParseFailed   = "parse_failed"
	ErrCodeSchemaInvalid = "schema_invalid"

	// Generation errors
	ErrCodeGenerationFailed   = "generation_failed"
	ErrCodeGenerationInFlight = "generation_in_flight"

	// Session errors
	ErrCodeNoQuiz           = "no_quiz"
	ErrCodeAlreadySubmitted = "already_submitted"
	ErrCodeNothingSelected  = "nothing_selected"
	ErrCodeUnknownOption    = "unknown_option"
	ErrCodeInvalidSession   = "invalid_session"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"
	ErrCodeNotFound           = "not_found"
)
