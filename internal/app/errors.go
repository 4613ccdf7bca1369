package service

import (
	"fmt"

	"github.com/okian/podium/internal/domain/model"
)

// ErrLimitExceeded is returned when a page or window is larger than the
// configured maximum.
var ErrLimitExceeded = fmt.Errorf("%w: limit exceeds maximum", model.ErrInvalidArgument)
