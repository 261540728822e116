package adjacency

import (
	"github.com/paulmach/orb"

	"github.com/matzehuels/geoadjacency/pkg/core/partition"
	"github.com/matzehuels/geoadjacency/pkg/errors"
)

// Config controls an analysis. The zero value analyzes the full extent
// without densification or a distance cutoff.
type Config struct {
	// BoundingBox clips all geometries before analysis.
	BoundingBox *orb.Bound `json:"bounding_box,omitempty"`
	// DensifyFeatures inserts vertices along every segment.
	DensifyFeatures bool `json:"densify_features"`
	// MaxSegmentLength is the densification interval. When nil and
	// DensifyFeatures is set, it is derived from the mean segment length.
	MaxSegmentLength *float64 `json:"max_segment_length,omitempty" validate:"omitempty,gt=0"`
	// MaxDistance drops adjacent pairs farther apart than this.
	MaxDistance *float64 `json:"max_distance,omitempty" validate:"omitempty,gte=0"`
	// Partitioner names the Voronoi backend. Empty selects the default.
	Partitioner string `json:"partitioner,omitempty"`
}

var validate = errors.NewValidator()

// Validate reports the first configuration error. All errors carry
// [errors.ErrCodeInvalidConfig].
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.FromValidation(err)
	}
	if b := c.BoundingBox; b != nil {
		if err := errors.ValidateBoundingBox(b.Min[0], b.Min[1], b.Max[0], b.Max[1]); err != nil {
			return err
		}
	}
	if c.MaxSegmentLength != nil && !c.DensifyFeatures {
		return errors.New(errors.ErrCodeInvalidConfig, "max_segment_length requires densify_features")
	}
	if c.Partitioner != "" {
		if _, err := partition.Lookup(c.Partitioner); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "partitioner")
		}
	}
	return nil
}
