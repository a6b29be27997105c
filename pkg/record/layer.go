package record

import "fmt"

// Layer is the durability/retention class of a memory record.
// Records move upward through layers during consolidation; Reflective
// records are only ever created by synthesis, never by promotion.
type Layer int

const (
	LayerSensory Layer = iota
	LayerWorking
	LayerLongTerm
	LayerReflective
)

// Layers lists all layers in promotion order.
var Layers = []Layer{LayerSensory, LayerWorking, LayerLongTerm, LayerReflective}

// String returns the canonical lowercase name used in storage and config.
func (l Layer) String() string {
	switch l {
	case LayerSensory:
		return "sensory"
	case LayerWorking:
		return "working"
	case LayerLongTerm:
		return "longterm"
	case LayerReflective:
		return "reflective"
	default:
		return fmt.Sprintf("layer(%d)", int(l))
	}
}

// ParseLayer converts a canonical layer name back to a Layer.
func ParseLayer(s string) (Layer, error) {
	switch s {
	case "sensory":
		return LayerSensory, nil
	case "working":
		return LayerWorking, nil
	case "longterm":
		return LayerLongTerm, nil
	case "reflective":
		return LayerReflective, nil
	default:
		return 0, fmt.Errorf("unknown layer %q", s)
	}
}

// Next returns the layer a record promotes into, and false when the layer
// has no promotion target. LongTerm has none: reflective records are
// synthesized as new entities, not promoted in place.
func (l Layer) Next() (Layer, bool) {
	switch l {
	case LayerSensory:
		return LayerWorking, true
	case LayerWorking:
		return LayerLongTerm, true
	default:
		return l, false
	}
}

// Valid reports whether l is one of the defined layers.
func (l Layer) Valid() bool {
	return l >= LayerSensory && l <= LayerReflective
}
