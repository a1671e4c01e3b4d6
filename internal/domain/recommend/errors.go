package recommend

import "errors"

// ErrInvalidBiomarkers is returned by ParseBiomarkers for values that are not
// finite non-negative numbers.
var ErrInvalidBiomarkers = errors.New("invalid biomarkers")
