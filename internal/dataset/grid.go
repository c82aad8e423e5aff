package dataset

import (
	"fmt"

	"github.com/sjwhitworth/golearn/base"
)

// Grid describes the golearn attributes of a float feature matrix with an
// optional categorical class. Instances built from the same Grid share
// attribute objects, which golearn requires of training and prediction data.
type Grid struct {
	Features []*base.FloatAttribute
	Class    *base.CategoricalAttribute
}

// NewGrid names one float attribute per feature. An empty class name builds
// a grid without a class attribute.
func NewGrid(features []string, class string) *Grid {
	g := &Grid{}
	for _, n := range features {
		g.Features = append(g.Features, base.NewFloatAttribute(n))
	}
	if class != "" {
		g.Class = base.NewCategoricalAttribute()
		g.Class.SetName(class)
	}
	return g
}

// Attributes returns the feature attributes.
func (g *Grid) Attributes() []base.Attribute {
	out := make([]base.Attribute, len(g.Features))
	for i, a := range g.Features {
		out[i] = a
	}
	return out
}

// Instances packs X, and labels when the grid has a class, into dense
// golearn instances.
func (g *Grid) Instances(X [][]float64, labels []string) (*base.DenseInstances, error) {
	if g.Class != nil && len(labels) != len(X) {
		return nil, fmt.Errorf("grid: %d rows but %d labels", len(X), len(labels))
	}
	inst := base.NewDenseInstances()
	specs := make([]base.AttributeSpec, len(g.Features))
	for j, a := range g.Features {
		specs[j] = inst.AddAttribute(a)
	}
	var classSpec base.AttributeSpec
	if g.Class != nil {
		classSpec = inst.AddAttribute(g.Class)
		if err := inst.AddClassAttribute(g.Class); err != nil {
			return nil, fmt.Errorf("grid: %w", err)
		}
	}
	if err := inst.Extend(len(X)); err != nil {
		return nil, fmt.Errorf("grid: %w", err)
	}
	for i, row := range X {
		if len(row) != len(g.Features) {
			return nil, fmt.Errorf("grid: row %d has %d values, want %d", i, len(row), len(g.Features))
		}
		for j, v := range row {
			inst.Set(specs[j], i, base.PackFloatToBytes(v))
		}
		if g.Class != nil {
			inst.Set(classSpec, i, g.Class.GetSysValFromString(labels[i]))
		}
	}
	return inst, nil
}
