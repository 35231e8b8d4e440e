package service

import (
	"errors"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/rollcall/internal/apperr"
)

// BlockedByHeader carries the refs of blocking obligations on a refused
// settlement.
const BlockedByHeader = "Blocked-By"

// toConnectError maps domain errors onto Connect codes.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}

	var code connect.Code
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, apperr.ErrForbidden):
		code = connect.CodePermissionDenied
	case errors.Is(err, apperr.ErrValidation):
		code = connect.CodeInvalidArgument
	case errors.Is(err, apperr.ErrConflict):
		code = connect.CodeAborted
	default:
		slog.Error("Unexpected error", "error", err)
		return connect.NewError(connect.CodeInternal, errors.New("internal error"))
	}

	connectErr := connect.NewError(code, err)
	if blocked, ok := apperr.AsBlocked(err); ok {
		connectErr.Meta().Set(BlockedByHeader, strings.Join(blocked.BlockedBy, ","))
	}
	return connectErr
}
