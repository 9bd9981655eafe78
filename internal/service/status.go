package service

import (
	"fmt"
	"slices"

	"github.com/base2-shop/api/internal/enum"
)

// StatusSet is the legal status values of one record type. Any member may
// follow any other; only values outside the set are rejected.
type StatusSet []string

var (
	OrderStatuses     = StatusSet(enum.OrderStatuses)
	WorkOrderStatuses = StatusSet(enum.WorkOrderStatuses)
)

func (s StatusSet) Contains(status string) bool {
	return slices.Contains(s, status)
}

// Validate returns ErrInvalidStatus for values outside the set.
func (s StatusSet) Validate(status string) error {
	if !s.Contains(status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return nil
}
