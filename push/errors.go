package push

import "github.com/pkg/errors"

var (
	errFirstFrameNotAuth = errors.New("first frame must be an auth event")
	errEmptyToken        = errors.New("auth frame carries no token")
)
