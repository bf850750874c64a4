package tax

import "github.com/aydintd/carsi/internal/domain"

// Calculation errors. Only invalid input is rejected; configuration
// gaps (missing class, no rates) degrade to a zero-rate result with a
// signal instead of failing, so checkout never hard-fails on tax data.
var (
	// ErrInvalidAmount rejects negative amounts before any computation.
	ErrInvalidAmount = &domain.Error{
		Code:    domain.EINVALID,
		Op:      "tax.calculate",
		Message: "amount must be a non-negative number",
	}
)
