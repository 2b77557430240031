package errs

const (
	CodeInternal = 9000
)

// validation
var (
	ErrBadPayload   = NewCode(1001, "malformed event payload")
	ErrMissingField = NewCode(1002, "required field missing")
	ErrEmptyMessage = NewCode(1003, "message has no content")
)

// authorization
var (
	ErrNotParticipant = NewCode(2001, "not a participant of this conversation")
	ErrNotMember      = NewCode(2002, "not a member of this group")
	ErrNotOwner       = NewCode(2003, "only the group owner may do this")
	ErrNotSender      = NewCode(2004, "only the original sender may do this")
	ErrNotReceiver    = NewCode(2005, "only the request receiver may respond")
)

// not-found
var (
	ErrUserNotFound    = NewCode(3001, "user not found")
	ErrMessageNotFound = NewCode(3002, "message not found")
	ErrThreadNotFound  = NewCode(3003, "conversation not found")
	ErrGroupNotFound   = NewCode(3004, "group not found")
	ErrRequestNotFound = NewCode(3005, "friend request not found")
)

// state-conflict
var (
	ErrAlreadyFriends = NewCode(4001, "already friends")
	ErrNotFriends     = NewCode(4002, "users are not friends")
	ErrSelfRequest    = NewCode(4003, "cannot friend yourself")
	ErrSelfForward    = NewCode(4004, "cannot forward back to the source thread")
	ErrCreatorLeave   = NewCode(4005, "owner must transfer ownership before leaving")
	ErrNoNewMembers   = NewCode(4006, "all given users are already members")
	ErrTargetNotInGrp = NewCode(4007, "target is not a member of this group")
)

// transport/auth
var (
	ErrUnauthorized = NewCode(5001, "missing or invalid credential")
)
