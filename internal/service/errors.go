package service

import (
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/hse-api/internal/repository"
	appErrors "github.com/noah-isme/hse-api/pkg/errors"
)

func invalid(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// lookupError maps sql.ErrNoRows to NOT_FOUND and anything else to INTERNAL_ERROR.
func lookupError(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Internal(err, internal)
}

// writeError maps unique violations to CONFLICT, missing rows to NOT_FOUND and the rest to INTERNAL_ERROR.
func writeError(err error, conflict, notFound, internal string) error {
	if repository.IsUniqueViolation(err) {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, conflict)
	}
	return lookupError(err, notFound, internal)
}

func defaults(validate *validator.Validate, logger *zap.Logger) (*validator.Validate, *zap.Logger) {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return validate, logger
}
