package async

import "errors"

var ErrTimeout = errors.New("waiter timed out")
