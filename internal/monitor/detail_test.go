package monitor

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rileyhilliard/sgpu/internal/cluster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderDetail_Truncates(t *testing.T) {
	var text strings.Builder
	text.WriteString("NodeName=gpu01 Gres=gpu:8\n")
	for i := 1; i <= 20; i++ {
		fmt.Fprintf(&text, "JobId=%d JobState=RUNNING NodeList=gpu01\n", i)
	}
	snap := snapshotFrom(t, text.String())
	sel := &row{kind: cluster.KindNode, id: "gpu01"}

	lines := renderDetail(Frame{Width: 80, Now: testNow}, snap, sel, 8)
	require.Len(t, lines, 8)
	assert.Contains(t, lines[7], "more")
}

func TestRenderDetail_Vanished(t *testing.T) {
	snap := testSnapshot(t)

	lines := renderDetail(Frame{Width: 80}, snap, &row{kind: cluster.KindNode, id: "gone"}, 5)
	assert.Contains(t, strings.Join(lines, "\n"), "no longer reported")

	lines = renderDetail(Frame{Width: 80}, snap, &row{kind: cluster.KindPartition, id: "missing"}, 5)
	assert.Contains(t, strings.Join(lines, "\n"), "not in the partition report")
}

func TestRenderDetail_NothingSelected(t *testing.T) {
	assert.Nil(t, renderDetail(Frame{Width: 80}, testSnapshot(t), nil, 0))

	lines := renderDetail(Frame{Width: 80}, nil, nil, 4)
	assert.Contains(t, strings.Join(lines, "\n"), "Nothing selected")
}

func TestRenderDetail_PartitionMembers(t *testing.T) {
	snap := snapshotFrom(t, "NodeName=a Gres=gpu:2\nPartitionName=p State=UP Nodes=a,b\n")

	lines := renderDetail(Frame{Width: 80}, snap, &row{kind: cluster.KindPartition, id: "p"}, 10)
	out := strings.Join(lines, "\n")
	assert.Contains(t, out, "Nodes (2)")
	assert.Contains(t, out, orphanMarker+" b  not in the node report")
}

func TestRefList(t *testing.T) {
	assert.Equal(t, "-", refList(nil))
	assert.Equal(t, "-", refList([]cluster.Ref{}))
	assert.Equal(t, "gpu01", refList([]cluster.Ref{{Name: "gpu01"}}))
	assert.Equal(t, "a, b "+orphanMarker, refList([]cluster.Ref{{Name: "a"}, {Name: "b", Orphaned: true}}))
}

func TestRelTime(t *testing.T) {
	assert.Equal(t, "-", relTime(time.Time{}, testNow))
	assert.Equal(t, "2 hours ago", relTime(testNow.Add(-2*time.Hour), testNow))
}
