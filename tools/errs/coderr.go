package errs

import (
	stderrors "errors"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// CodeError is the error type every gateway handler returns to the
// initiating connection. Code ranges follow the operation taxonomy:
//
//	1xxx validation     (missing/malformed fields, rejected before mutation)
//	2xxx authorization  (actor is not participant/member/owner/sender)
//	3xxx not-found      (referenced user/message/thread/group absent)
//	4xxx state-conflict (already friends, self-forward, creator leave, ...)
//	5xxx transport/auth (connect-time credential failures)
type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
	Ref    string `json:"ref,omitempty"` // id of the object involved, if any
}

func NewCode(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

func (e *CodeError) clone() *CodeError {
	c := *e
	return &c
}

// WithDetail returns a copy carrying extra human-readable context.
func (e *CodeError) WithDetail(detail string) *CodeError {
	c := e.clone()
	if c.Detail == "" {
		c.Detail = detail
	} else {
		c.Detail += ", " + detail
	}
	return c
}

// WithRef returns a copy carrying the id of the object involved so clients
// can target UI feedback without a full re-sync.
func (e *CodeError) WithRef(id string) *CodeError {
	c := e.clone()
	c.Ref = id
	return c
}

// Is matches by code so handlers can sentinel-compare with errors.Is even
// after WithDetail/WithRef cloning.
func (e *CodeError) Is(target error) bool {
	var ce *CodeError
	if !stderrors.As(target, &ce) {
		return false
	}
	return e.Code == ce.Code
}

// AsCodeError unwraps err down to a *CodeError, or wraps it as an internal
// error when the chain carries none.
func AsCodeError(err error) *CodeError {
	var ce *CodeError
	if stderrors.As(err, &ce) {
		return ce
	}
	return &CodeError{Code: CodeInternal, Msg: "internal error", Detail: err.Error()}
}

// New builds a plain wrapped error with a stack, for infrastructure
// failures that are not part of the handler taxonomy.
func New(msg string) error {
	return errors.New(msg)
}

// Wrap attaches a stack to err; nil-safe.
func Wrap(err error) error {
	return errors.WithStack(err)
}

// WrapMsg attaches a stack and a message to err; nil-safe.
func WrapMsg(err error, msg string) error {
	return errors.Wrap(err, msg)
}
