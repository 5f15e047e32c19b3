package graph

import "fmt"

// Builder is the mutable phase of a Graph. It is not safe for concurrent use.
type Builder struct {
	g *Graph
}

// NewBuilder returns a Builder for an empty graph.
func NewBuilder() *Builder {
	return &Builder{g: newGraph()}
}

// AddNode adds n, or replaces the attributes of the node with the same ID.
func (b *Builder) AddNode(n Node) error {
	if b.g.sealed {
		return ErrFrozen
	}
	b.g.addNode(n)
	return nil
}

// AddEdge adds e, creating bare endpoints that don't exist yet, and returns
// the edge's key among the parallel edges from e.Source to e.Target.
func (b *Builder) AddEdge(e Edge) (int, error) {
	if b.g.sealed {
		return 0, ErrFrozen
	}
	return b.g.addEdge(e), nil
}

// RemoveNode removes the node and every edge incident to it.
func (b *Builder) RemoveNode(id string) error {
	if b.g.sealed {
		return ErrFrozen
	}
	i, ok := b.g.index[id]
	if !ok {
		return fmt.Errorf("remove node %q: %w", id, ErrNotFound)
	}
	b.g.nodes = append(b.g.nodes[:i:i], b.g.nodes[i+1:]...)
	kept := b.g.edges[:0:0]
	for _, e := range b.g.edges {
		if e.Source != id && e.Target != id {
			kept = append(kept, e)
		}
	}
	b.g.edges = kept
	b.g.reindex()
	return nil
}

// RemoveEdge removes the most recently added edge from source to target.
func (b *Builder) RemoveEdge(source, target string) error {
	if b.g.sealed {
		return ErrFrozen
	}
	positions := b.g.out[source]
	for i := len(positions) - 1; i >= 0; i-- {
		pos := positions[i]
		if b.g.edges[pos].Target != target {
			continue
		}
		b.g.edges = append(b.g.edges[:pos:pos], b.g.edges[pos+1:]...)
		b.g.reindex()
		return nil
	}
	return fmt.Errorf("remove edge %q -> %q: %w", source, target, ErrNotFound)
}

// Seal ends the mutable phase and returns the graph. Calling Seal again
// returns the same graph.
func (b *Builder) Seal() *Graph {
	b.g.sealed = true
	return b.g
}
