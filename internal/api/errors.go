package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Retcode kinds. Every *ActionFailedError matches ErrActionFailed and, for the
// known codes, one of the more specific errors.
var (
	ErrActionFailed                = errors.New("action failed")
	ErrUnknownServerError          = errors.New("unknown server error")
	ErrInvalidRequest              = errors.New("invalid request")
	ErrInsufficientPermission      = errors.New("insufficient permission")
	ErrBotNotAdded                 = errors.New("bot not added to villa")
	ErrPermissionDenied            = errors.New("permission denied")
	ErrInvalidMemberBotAccessToken = errors.New("invalid member bot access token")
	ErrInvalidBotAuthInfo          = errors.New("invalid bot auth info")
	ErrUnsupportedMsgType          = errors.New("unsupported message type")
)

// Platform retcodes
const (
	RetcodeOK                          = 0
	RetcodeUnknownServerError          = -502
	RetcodeInvalidRequest              = -1
	RetcodeInsufficientPermission      = 10318001
	RetcodeBotNotAdded                 = 10322002
	RetcodePermissionDenied            = 10322003
	RetcodeInvalidMemberBotAccessToken = 10322004
	RetcodeInvalidBotAuthInfo          = 10322005
	RetcodeUnsupportedMsgType          = 10322006
)

var retcodeKinds = map[int]error{
	RetcodeUnknownServerError:          ErrUnknownServerError,
	RetcodeInvalidRequest:              ErrInvalidRequest,
	RetcodeInsufficientPermission:      ErrInsufficientPermission,
	RetcodeBotNotAdded:                 ErrBotNotAdded,
	RetcodePermissionDenied:            ErrPermissionDenied,
	RetcodeInvalidMemberBotAccessToken: ErrInvalidMemberBotAccessToken,
	RetcodeInvalidBotAuthInfo:          ErrInvalidBotAuthInfo,
	RetcodeUnsupportedMsgType:          ErrUnsupportedMsgType,
}

// ActionFailedError is a non-zero retcode returned by a platform call
type ActionFailedError struct {
	API        string
	StatusCode int
	Retcode    int
	Message    string
	Data       json.RawMessage
	kind       error
}

func newActionFailedError(api string, statusCode, retcode int, message string, data json.RawMessage) *ActionFailedError {
	kind := retcodeKinds[retcode]
	if kind == nil {
		kind = ErrActionFailed
	}
	return &ActionFailedError{
		API:        api,
		StatusCode: statusCode,
		Retcode:    retcode,
		Message:    message,
		Data:       data,
		kind:       kind,
	}
}

func (e *ActionFailedError) Error() string {
	return fmt.Sprintf("%s: %v (status=%d, retcode=%d, message=%q)", e.API, e.kind, e.StatusCode, e.Retcode, e.Message)
}

// Unwrap exposes the specific kind and ErrActionFailed to errors.Is
func (e *ActionFailedError) Unwrap() []error {
	if e.kind == ErrActionFailed {
		return []error{ErrActionFailed}
	}
	return []error{e.kind, ErrActionFailed}
}

// Retcode returns the platform retcode carried by err, if any
func Retcode(err error) (int, bool) {
	var af *ActionFailedError
	if errors.As(err, &af) {
		return af.Retcode, true
	}
	return 0, false
}
