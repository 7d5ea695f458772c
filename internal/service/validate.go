package service

import (
	"fmt"
	"unicode/utf8"

	"github.com/weiawesome/plantpal/internal/domain"
)

// checkLen rejects values longer than max characters.
func checkLen(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return fmt.Errorf("%w: %s must be at most %d characters", ErrValidation, field, max)
	}
	return nil
}

// checkUserIDs requires each named id and bounds it to the user id column.
// Pairs are field name, value.
func checkUserIDs(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		field, id := pairs[i], pairs[i+1]
		if id == "" {
			return fmt.Errorf("%w: %s is required", ErrValidation, field)
		}
		if err := checkLen(field, id, domain.MaxUserIDLen); err != nil {
			return err
		}
	}
	return nil
}
