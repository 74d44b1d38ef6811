package explorer

import (
	"context"
	"errors"

	"github.com/dmagro/sol-explorer/internal/address"
	"github.com/dmagro/sol-explorer/internal/decode"
	"github.com/dmagro/sol-explorer/internal/rpc"
)

// Error categories. They are part of the CLI's output contract.
const (
	CategoryNetwork      = "network"
	CategoryNotFound     = "not_found"
	CategoryDecode       = "decode"
	CategoryInvalidInput = "invalid_input"
	CategoryInternal     = "internal"
)

// ErrInvalidInput is returned for well-formed input that names the wrong
// kind of thing, such as a token account passed where a mint is expected.
var ErrInvalidInput = address.ErrInvalidInput

// Category maps err to one of the Category constants. nil maps to "".
func Category(err error) string {
	if err == nil {
		return ""
	}

	var netErr *rpc.NetworkError
	var decErr *decode.Error
	switch {
	case errors.Is(err, address.ErrInvalidInput):
		return CategoryInvalidInput
	case errors.Is(err, rpc.ErrNotFound):
		return CategoryNotFound
	case errors.As(err, &decErr):
		return CategoryDecode
	case errors.As(err, &netErr),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return CategoryNetwork
	}
	return CategoryInternal
}
