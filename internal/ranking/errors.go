package ranking

import "errors"

// ErrEmptyQuery rejects blank search input before any external call.
var ErrEmptyQuery = errors.New("query cannot be empty")
