package graph

import (
	"encoding/json"
	"fmt"
)

type graphJSON struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// MarshalJSON encodes the nodes and edges in insertion order.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(graphJSON{Nodes: g.Nodes(), Edges: g.Edges()})
}

// UnmarshalJSON replays the encoded nodes and edges in order and seals the
// result. It refuses to overwrite a graph that is already sealed.
func (g *Graph) UnmarshalJSON(data []byte) error {
	if g.sealed {
		return ErrFrozen
	}
	var wire graphJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("graph: decode: %w", err)
	}
	b := NewBuilder()
	for _, n := range wire.Nodes {
		b.g.addNode(n)
	}
	for _, e := range wire.Edges {
		b.g.addEdge(e)
	}
	*g = *b.Seal()
	return nil
}
