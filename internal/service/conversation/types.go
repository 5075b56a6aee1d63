package conversation

import "support-bridge-backend/internal/model"

type ErrorCode string

const (
	ErrorCodeValidation ErrorCode = "validation_error"
	ErrorCodeNotFound   ErrorCode = "not_found"
	ErrorCodeConflict   ErrorCode = "conflict"
	ErrorCodeInternal   ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// InboundParams describes one customer message after normalization.
type InboundParams struct {
	Phone       string
	ProfileName string
	Body        string
	ContentType model.ContentType
	MediaURL    string
	ExternalID  string
}

// InboundResult reports the conversation the message landed in and whether
// the conversation was opened by this message.
type InboundResult struct {
	Conversation model.ConversationItem
	Message      model.MessageItem
	Created      bool
}

type OutboundParams struct {
	ConversationID string
	SenderType     model.SenderType
	SenderID       string
	Body           string
	ExternalID     string
}

type HandOffParams struct {
	ConversationID string
	Branch         string
	Reason         string
}

type NoteParams struct {
	ConversationID string
	AuthorID       string
	Body           string
}

type DetailResult struct {
	Conversation model.ConversationItem
	Messages     []model.MessageItem
	Notes        []model.NoteItem
}

// SweepResult reports what one inactivity pass did.
type SweepResult struct {
	Examined int
	Closed   []string
}
