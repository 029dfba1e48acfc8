package internal

import (
	"fmt"
)

var (
	ErrNotFound       = fmt.Errorf("not found")
	ErrNotImplemented = fmt.Errorf("not implemented")
)
