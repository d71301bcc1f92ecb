package apperror

var (
	ErrInvalidRecipient  = Validation("recipient must be a valid user other than yourself")
	ErrEmptyBody         = Validation("message body cannot be empty")
	ErrBodyTooLong       = Validation("message body is too long")
	ErrInvalidCursor     = Validation("after_id must not be negative")
	ErrInvalidUser       = Validation("user id must be positive")
	ErrConversationBlock = Blocked("messaging between these users is blocked")
	ErrInvalidSessionID  = Validation("session id is required")
	ErrInvalidSnapshot   = Validation("timer snapshot is inconsistent")
	ErrSnapshotNotFound  = NotFound("no timer state stored for this session")
)
