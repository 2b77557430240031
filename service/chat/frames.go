package chat

import (
	"encoding/json"

	"realchat/tools/errs"
)

// Frame is the wire envelope in both directions: {"event": ..., "data": ...}.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client -> server events.
const (
	EvOpenThread      = "open-thread"
	EvSendMessage     = "send-message"
	EvForwardMessage  = "forward-message"
	EvReact           = "react"
	EvRemoveReaction  = "remove-reaction"
	EvRecallMessage   = "recall-message"
	EvDeleteMessage   = "delete-message"
	EvSearchMessages  = "search-messages"
	EvMarkSeen        = "mark-seen"
	EvSendFriendReq   = "send-friend-request"
	EvRespondFriendRq = "respond-friend-request"
	EvUnfriend        = "unfriend"
	EvCreateGroup     = "create-group"
	EvAddMembers      = "add-members"
	EvKickMember      = "kick-member"
	EvLeaveGroup      = "leave-group"
	EvDeleteGroup     = "delete-group"
	EvTransferOwner   = "transfer-ownership"
	EvViewingThread   = "viewing-thread"
	EvLeaveThread     = "leave-thread"
	EvGetContacts     = "get-contacts"
	EvGetFriends      = "get-friends"
	EvGetUserGroups   = "get-user-groups"
)

// Server -> client events.
const (
	EvOnlineUsers    = "onlineUser"
	EvMessage        = "message"
	EvMessageUser    = "message-user"
	EvConversation   = "conversation"
	EvGroupMessage   = "group-message"
	EvGroupInfo      = "group-info"
	EvUserGroups     = "user-groups"
	EvReactionUpdate = "reaction-updated"
	EvContacts       = "contacts"
	EvFriends        = "friends"
	EvFriendRequests = "friend-requests"
	EvNewFriendReq   = "new-friend-request"
	EvFriendAccepted = "friend-request-accepted"
	EvFriendRejected = "friend-request-rejected"
	EvGroupDeleted   = "group-deleted"
	EvSearchResult   = "search-messages-result"
	EvError          = "error"
)

func ParseFrame(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, errs.ErrBadPayload.WithDetail(err.Error())
	}
	if f.Event == "" {
		return nil, errs.ErrBadPayload.WithDetail("event name missing")
	}
	return f, nil
}

// BuildFrame marshals a server event. Marshal failures are programming
// errors on our own payload types, so they collapse to nil and the caller
// drops the frame.
func BuildFrame(event string, payload any) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	out, err := json.Marshal(&Frame{Event: event, Data: data})
	if err != nil {
		return nil
	}
	return out
}

// ErrorPayload mirrors the handler taxonomy to the initiating client.
type ErrorPayload struct {
	Event   string `json:"event"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Ref     string `json:"ref,omitempty"`
}

func BuildErrorFrame(event string, err error) []byte {
	ce := errs.AsCodeError(err)
	return BuildFrame(EvError, ErrorPayload{
		Event:   event,
		Code:    ce.Code,
		Message: ce.Msg,
		Ref:     ce.Ref,
	})
}

func BuildSuccessFrame(event string, payload any) []byte {
	return BuildFrame(event+"-success", payload)
}
