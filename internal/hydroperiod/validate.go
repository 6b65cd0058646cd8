package hydroperiod

import (
	"fmt"
	"strings"

	"github.com/wetlandtools/hydroperiod/pkg/raster"
)

// ShapeMismatchError reports that the loaded stack mixes raster dimensions.
// It carries every distinct shape seen so the operator can tell which scenes
// are the odd ones out.
type ShapeMismatchError struct {
	Shapes []raster.Shape
}

func (e *ShapeMismatchError) Error() string {
	parts := make([]string, 0, len(e.Shapes))
	for _, s := range e.Shapes {
		parts = append(parts, s.String())
	}
	return fmt.Sprintf("rasters do not share a common shape: found %s", strings.Join(parts, ", "))
}

// ValidateShapes checks that every sample in the set has identical
// dimensions and returns the common shape. Exactly one distinct shape must
// be present; an empty set trivially passes with a zero shape, leaving the
// too-few-samples complaint to the accumulator where it belongs.
func ValidateShapes(samples []Sample) (raster.Shape, error) {
	seen := make(map[raster.Shape]struct{})
	order := make([]raster.Shape, 0, 1)
	for _, s := range samples {
		shape := s.Raster.Shape()
		if _, ok := seen[shape]; !ok {
			seen[shape] = struct{}{}
			order = append(order, shape)
		}
	}
	if len(order) > 1 {
		return raster.Shape{}, &ShapeMismatchError{Shapes: order}
	}
	if len(order) == 0 {
		return raster.Shape{}, nil
	}
	return order[0], nil
}
