package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/classam/redis-tance/internal/app/schema"
	"github.com/classam/redis-tance/internal/app/set"
)

type ErrorKind string

const (
	KindInternal    ErrorKind = "internal"
	KindValidation  ErrorKind = "validation"
	KindCrossSlot   ErrorKind = "cross_slot"
	KindMigration   ErrorKind = "migration"
	KindUnsupported ErrorKind = "unsupported"
)

const (
	ExitInternal    = 1
	ExitInvalid     = 2
	ExitCrossSlot   = 3
	ExitMigration   = 4
	ExitUnsupported = 5
)

type ExitError struct {
	Code    int
	Kind    ErrorKind
	Message string
	Err     error
}

func (e ExitError) Error() string {
	return errorMessage(e)
}

func NormalizeError(err error) ExitError {
	if err == nil {
		return ExitError{Code: 0}
	}
	var exitErr ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Code == 0 {
			exitErr.Code = ExitInternal
		}
		return exitErr
	}

	switch {
	case errors.Is(err, set.ErrCrossSlot):
		return ExitError{Code: ExitCrossSlot, Kind: KindCrossSlot, Err: err}
	case errors.Is(err, schema.ErrMigration):
		return ExitError{Code: ExitMigration, Kind: KindMigration, Err: err}
	case errors.Is(err, set.ErrOnionUnsupported):
		return ExitError{Code: ExitUnsupported, Kind: KindUnsupported, Err: err}
	case errors.Is(err, schema.ErrInvalidDocument),
		errors.Is(err, set.ErrStoreRequired),
		errors.Is(err, set.ErrSchemaRequired),
		errors.Is(err, set.ErrIDGeneratorRequired),
		errors.Is(err, set.ErrNoMembers),
		errors.Is(err, set.ErrDestinationRequired):
		return ExitError{Code: ExitInvalid, Kind: KindValidation, Err: err}
	default:
		return ExitError{Code: ExitInternal, Kind: KindInternal, Err: err}
	}
}

func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return NormalizeError(err).Code
}

func writeCLIError(w io.Writer, exitErr ExitError, asJSON bool) error {
	if exitErr.Code == 0 {
		return nil
	}
	message := errorMessage(exitErr)
	if asJSON {
		payload := struct {
			Code    int    `json:"code"`
			Kind    string `json:"kind"`
			Message string `json:"message"`
		}{
			Code:    exitErr.Code,
			Kind:    string(exitErr.Kind),
			Message: message,
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(payload)
	}

	prefix := "Error"
	if exitErr.Kind != "" {
		prefix = fmt.Sprintf("Error (%s)", exitErr.Kind)
	}
	_, err := fmt.Fprintf(w, "%s: %s\n", prefix, message)
	return err
}

func errorMessage(exitErr ExitError) string {
	if exitErr.Message != "" {
		return exitErr.Message
	}
	if exitErr.Err != nil {
		return exitErr.Err.Error()
	}
	return "unknown error"
}
