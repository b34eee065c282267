package errors

// GuardCode classifies why the completion guard refused a write.
type GuardCode string

const (
	CodeResponseNotFound GuardCode = "RESPONSE_NOT_FOUND"
	CodeSessionMismatch  GuardCode = "SESSION_MISMATCH"
	CodeAlreadyCompleted GuardCode = "ALREADY_COMPLETED"
	CodeResponseExpired  GuardCode = "RESPONSE_EXPIRED"
	CodeAnswerOutOfTurn  GuardCode = "ANSWER_OUT_OF_TURN"
)

// GuardError is returned verbatim to callers. It is never transient.
type GuardError struct {
	Code GuardCode `json:"code"`
}

func (ge *GuardError) Error() string {
	switch ge.Code {
	case CodeResponseNotFound:
		return "response not found"
	case CodeSessionMismatch:
		return "session does not own this response"
	case CodeAlreadyCompleted:
		return "response already completed"
	case CodeResponseExpired:
		return "response is no longer accepting answers"
	case CodeAnswerOutOfTurn:
		return "response moved on since the question was presented"
	default:
		return string(ge.Code)
	}
}

// Is compares by code so wrapped copies still match the sentinels.
func (ge *GuardError) Is(target error) bool {
	t, ok := target.(*GuardError)
	return ok && t.Code == ge.Code
}

var (
	ErrResponseNotFound = &GuardError{Code: CodeResponseNotFound}
	ErrSessionMismatch  = &GuardError{Code: CodeSessionMismatch}
	ErrAlreadyCompleted = &GuardError{Code: CodeAlreadyCompleted}
	ErrResponseExpired  = &GuardError{Code: CodeResponseExpired}
	ErrAnswerOutOfTurn  = &GuardError{Code: CodeAnswerOutOfTurn}
)
