package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/perfgo/benchcamp/model"
)

// Matrix decodes a YAML mapping of dimension name to values. The mapping
// order is the dimension order.
type Matrix struct {
	model.Matrix
}

func (m *Matrix) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: matrix must be a mapping of dimension to values", node.Line)
	}
	dims := make([]model.Dimension, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var name string
		if err := node.Content[i].Decode(&name); err != nil {
			return err
		}
		var values Values
		if err := node.Content[i+1].Decode(&values); err != nil {
			return fmt.Errorf("dimension %s: %w", name, err)
		}
		dims = append(dims, model.Dimension{Name: name, Values: values})
	}
	m.Matrix = model.NewMatrix(dims...)
	return nil
}

// Values decodes a scalar or a sequence of scalars. Plain integers become
// integer values; everything else, including quoted numbers, is a token.
type Values []model.Value

func (v *Values) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*v = Values{scalar(node)}
	case yaml.SequenceNode:
		out := make(Values, 0, len(node.Content))
		for _, n := range node.Content {
			if n.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: values must be scalars", n.Line)
			}
			out = append(out, scalar(n))
		}
		*v = out
	default:
		return fmt.Errorf("line %d: expected a value or a list of values", node.Line)
	}
	return nil
}

func scalar(n *yaml.Node) model.Value {
	if n.ShortTag() == "!!int" {
		var i int64
		if err := n.Decode(&i); err == nil {
			return model.Int(i)
		}
	}
	return model.String(n.Value)
}

// Rule maps dimensions to rejected values.
type Rule map[string]Values
