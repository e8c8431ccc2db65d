// Package app hosts the per-aggregate application services that sit
// between the HTTP layer and the store.
package app

import "errors"

// ErrForbidden indicates the caller is authenticated but lacks the role
// or ownership required by the operation.
var ErrForbidden = errors.New("forbidden")
