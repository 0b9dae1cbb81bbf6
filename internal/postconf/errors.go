package postconf

import "errors"

var (
	ErrUnknownParameter = errors.New("unknown postfix parameter")
	ErrQuery            = errors.New("postfix parameter query failed")
	ErrInvalidIntent    = errors.New("invalid parameter state")
	ErrMutationFailed   = errors.New("postfix parameter update failed")
	ErrCommandFailed    = errors.New("postconf command failed")
)
