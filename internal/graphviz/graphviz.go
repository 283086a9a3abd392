// Package graphviz renders a debug snapshot of the search tree
// (dag.Store.Export) to Graphviz dot source, supplementing main.go's
// commented-out GenerateMostVisitedPathWithAlternativesHtmlTree stub
// with a real export built on a maintained dot-generation library
// instead of hand-rolled HTML.
package graphviz

import (
	"fmt"

	"github.com/awalterschulze/gographviz"

	"github.com/brensch/tetrisbot/internal/dag"
)

const graphName = "searchtree"

// Render walks an exported tree and produces dot source for the whole
// thing, rooted at a synthetic "root" node. It seeds the graph by
// parsing an empty named digraph and analysing it into a *Graph, the
// construction path gographviz itself documents, rather than poking at
// unexported graph state directly.
func Render(tree dag.ExportNode) (string, error) {
	ast, err := gographviz.ParseString(fmt.Sprintf("digraph %s {}", graphName))
	if err != nil {
		return "", fmt.Errorf("graphviz: parse empty graph: %w", err)
	}
	graph := gographviz.NewGraph()
	if err := gographviz.Analyse(ast, graph); err != nil {
		return "", fmt.Errorf("graphviz: analyse empty graph: %w", err)
	}

	counter := 0
	rootID := nextID(&counter)
	if err := addNode(graph, rootID, tree); err != nil {
		return "", err
	}
	if err := addChildren(graph, rootID, tree, &counter); err != nil {
		return "", err
	}

	return graph.String(), nil
}

func addChildren(graph *gographviz.Graph, parentID string, node dag.ExportNode, counter *int) error {
	for _, child := range node.Children {
		childID := nextID(counter)
		if err := addNode(graph, childID, child); err != nil {
			return err
		}
		if err := graph.AddEdge(parentID, childID, true, map[string]string{"label": quote(child.Label)}); err != nil {
			return fmt.Errorf("graphviz: add edge %s->%s: %w", parentID, childID, err)
		}
		if err := addChildren(graph, childID, child, counter); err != nil {
			return err
		}
	}
	return nil
}

func addNode(graph *gographviz.Graph, id string, node dag.ExportNode) error {
	color := "black"
	switch {
	case node.Death:
		color = "red"
	case node.Marked:
		color = "blue"
	}
	attrs := map[string]string{
		"label": quote(fmt.Sprintf("%s\\n%s", node.Label, node.Eval)),
		"color": color,
	}
	if err := graph.AddNode(graphName, id, attrs); err != nil {
		return fmt.Errorf("graphviz: add node %s: %w", id, err)
	}
	return nil
}

func nextID(counter *int) string {
	id := fmt.Sprintf("n%d", *counter)
	*counter++
	return id
}

func quote(s string) string {
	return `"` + s + `"`
}
