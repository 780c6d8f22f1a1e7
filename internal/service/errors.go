package service

import (
	"errors"

	"github.com/reparafacil/repair-service/internal/repository"
	"github.com/reparafacil/repair-service/pkg/util/errorutil"
)

// storeError maps store failures onto the error taxonomy.
func storeError(err error, resource, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return errorutil.NewNotFound(resource, map[string]any{"id": id})
	}
	return errorutil.NewStorageError(err)
}
