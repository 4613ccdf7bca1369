package repository

import (
	"fmt"

	"github.com/okian/podium/internal/domain/model"
)

// Store errors wrap the domain kinds so callers can match either.
var (
	ErrNotFound = fmt.Errorf("repository: %w", model.ErrNotFound)
	ErrConflict = fmt.Errorf("repository: %w", model.ErrConflict)

	ErrInvalidLimit = fmt.Errorf("repository: %w: invalid limit", model.ErrInvalidArgument)
)
