package graphviz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brensch/tetrisbot/internal/dag"
)

func TestRenderProducesDotWithNodesAndEdges(t *testing.T) {
	tree := dag.ExportNode{
		Label: "root",
		Eval:  "{0 0}",
		Children: []dag.ExportNode{
			{Label: "T East(4,0)", Eval: "{10 2}"},
			{Label: "spec:I North(0,0)", Eval: "{5 1}", Death: true},
		},
	}

	dot, err := Render(tree)
	require.NoError(t, err)
	assert.Contains(t, dot, "digraph")
	assert.Contains(t, dot, "n0")
	assert.Contains(t, dot, "n1")
	assert.Contains(t, dot, "n2")
}

func TestRenderMarksDeadNodesRed(t *testing.T) {
	tree := dag.ExportNode{
		Label:    "root",
		Children: []dag.ExportNode{{Label: "dead branch", Death: true}},
	}

	dot, err := Render(tree)
	require.NoError(t, err)
	assert.Contains(t, dot, "red")
}
