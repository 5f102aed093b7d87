package heatmap

import (
	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/revenuemap/pkg/errors"
)

// validate is a singleton validator instance.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the dataset structure: field limits, record ids and id
// uniqueness. Numeric plausibility is left to [Sanitize], which drops bad
// records instead of failing the whole dataset.
func (d *Dataset) Validate() error {
	if d == nil {
		return errors.New(errors.ErrCodeInvalidDataset, "dataset cannot be nil")
	}
	if err := validate.Struct(d); err != nil {
		return errors.FromValidator(errors.ErrCodeInvalidDataset, err, "dataset")
	}

	seen := make(map[string]int, len(d.Records))
	for i, r := range d.Records {
		if err := errors.ValidateRecordID(r.ID); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidDataset, err, "record %d", i)
		}
		if j, dup := seen[r.ID]; dup {
			return errors.New(errors.ErrCodeInvalidDataset, "records %d and %d share id %q", j, i, r.ID)
		}
		seen[r.ID] = i
	}
	return nil
}
