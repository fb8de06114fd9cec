package monitor

import (
	"os"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/rileyhilliard/sgpu/internal/cluster"
	"github.com/rileyhilliard/sgpu/internal/cluster/parsers"
	"github.com/rileyhilliard/sgpu/internal/logger"
	"github.com/rileyhilliard/sgpu/internal/poll"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

const clusterText = `NodeName=gpu01 State=MIXED Gres=gpu:a100:4 GresUsed=gpu:a100:2 Partitions=gpu CPUTot=64 CPUAlloc=16 RealMemory=512000 AllocMem=128000
NodeName=gpu02 State=IDLE Gres=gpu:a100:4 GresUsed=gpu:a100:0 Partitions=gpu,debug
NodeName=gpu10 State=ALLOCATED Gres=gpu:h100:8 GresUsed=gpu:h100:8 Partitions=gpu
NodeName=cpu01 State=IDLE Gres=(null) Partitions=cpu
PartitionName=gpu State=UP Nodes=gpu[01-02,10]
PartitionName=debug State=UP Default=YES Nodes=gpu02
PartitionName=cpu State=UP Nodes=cpu01
JobId=100 JobName=train UserId=alice(1001) JobState=RUNNING Partition=gpu NodeList=gpu01 ReqTRES=cpu=8,gres/gpu=2 StartTime=2025-03-01T10:00:00
JobId=101 JobName=sweep UserId=bob(1002) JobState=RUNNING Partition=gpu NodeList=gpu10,gpu99 ReqTRES=gres/gpu=8 StartTime=2025-03-01T11:30:00
JobId=102 JobName=eval UserId=carol(1003) JobState=PENDING Partition=gpu Reason=Resources ReqTRES=gres/gpu=4 SubmitTime=2025-03-01T11:55:00
`

// testSnapshot is four nodes, three partitions and three jobs. Job 101
// references gpu99, which is not in the node report.
func testSnapshot(t *testing.T) *cluster.Snapshot {
	t.Helper()
	return snapshotFrom(t, clusterText)
}

func snapshotFrom(t *testing.T, text string) *cluster.Snapshot {
	t.Helper()
	res := parsers.Parse(text, parsers.Options{Location: time.UTC})
	if len(res.Warnings) > 0 {
		t.Fatalf("fixture did not parse cleanly: %v", res.Warnings)
	}
	return cluster.Build(res.Resources, testNow, logger.Noop())
}

func testUpdate(t *testing.T) *poll.Update {
	t.Helper()
	return &poll.Update{Snapshot: testSnapshot(t), At: testNow, Took: 40 * time.Millisecond}
}

func rowIDs(rows []row) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.id
		if r.header {
			ids[i] = "#" + r.id
		}
	}
	return ids
}
