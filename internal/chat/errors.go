package chat

import (
	"errors"
	"fmt"

	"chatsync/internal/api"
)

// ErrValidation marks an action blocked locally before any request was made.
var ErrValidation = errors.New("validation failed")

var (
	ErrBlankText     = fmt.Errorf("%w: message text is blank", ErrValidation)
	ErrNoSession     = fmt.Errorf("%w: not signed in", ErrValidation)
	ErrNoSelection   = fmt.Errorf("%w: no conversation selected", ErrValidation)
	ErrBlankName     = fmt.Errorf("%w: group name is blank", ErrValidation)
	ErrBlankUsername = fmt.Errorf("%w: username is blank", ErrValidation)
	ErrBlankPassword = fmt.Errorf("%w: password is blank", ErrValidation)
	ErrInvalidMember = fmt.Errorf("%w: group and member ids are required", ErrValidation)
	ErrProfileClosed = fmt.Errorf("%w: profile editor is not open", ErrValidation)
)

const networkNotice = "Something went wrong, please try again"

// noticeText is what the user sees for a failed action. Validation failures
// have no notice.
func noticeText(err error) (string, bool) {
	if err == nil || errors.Is(err, ErrValidation) {
		return "", false
	}
	var authErr *api.AuthError
	if errors.As(err, &authErr) {
		return authErr.Message, true
	}
	return networkNotice, true
}
