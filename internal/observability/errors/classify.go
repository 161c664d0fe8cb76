// Package errors buckets errors into short class names for metric tags.
package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"

	"github.com/target/hookline/internal/domain/model"
	apperrors "github.com/target/hookline/internal/errors"
)

// Classify returns a normalized error class suitable for tagging metrics and
// logs. Known conditions map to fixed names; anything else is named after the
// innermost concrete error type in snake_case.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case goerrors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case goerrors.Is(err, context.Canceled):
		return "canceled"
	case goerrors.Is(err, model.ErrPermanentFailure):
		return "permanent"
	case goerrors.Is(err, model.ErrContactNotFound), goerrors.Is(err, model.ErrEntityNotFound):
		return "not_found"
	case goerrors.Is(err, model.ErrNotClaimed):
		return "not_claimed"
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}

	// Unwrap to the innermost error for better signal.
	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
