package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/sykell/seo-engine/internal/apperr"
)

// lookupErr maps a gorm lookup error onto the application taxonomy
func lookupErr(err error, op, resource, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NewNotFound(resource, id)
	}
	return apperr.NewPersistence(op, err)
}
