package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/rileyhilliard/sgpu/internal/config"
	"github.com/rileyhilliard/sgpu/internal/errors"
	"github.com/rileyhilliard/sgpu/internal/logger"
	"github.com/rileyhilliard/sgpu/internal/poll"
	"github.com/rileyhilliard/sgpu/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

const replayText = `NodeName=gpu01 State=MIXED Gres=gpu:a100:4 GresUsed=gpu:a100:2 Partitions=gpu CPUTot=64 CPUAlloc=16 RealMemory=512000 AllocMem=128000
NodeName=gpu02 State=IDLE Gres=gpu:a100:4 GresUsed=gpu:a100:0 Partitions=gpu
NodeName=cpu01 State=IDLE Partitions=cpu
PartitionName=gpu State=UP Default=YES Nodes=gpu[01-02]
PartitionName=cpu State=UP Nodes=cpu01
JobId=100 JobName=train UserId=alice(1001) JobState=RUNNING Partition=gpu NodeList=gpu01 ReqTRES=cpu=8,gres/gpu=2 StartTime=2025-03-01T10:00:00
JobId=101 JobName=eval UserId=bob(1002) JobState=PENDING Partition=gpu Reason=Resources ReqTRES=gres/gpu=4 NodeList=gpu99
`

func writeReplay(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runReplaySnapshot(t *testing.T, path, format string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := runSnapshot(context.Background(), config.DefaultConfig(), source.NewFileSource(path), format, &out, logger.Noop(), nil)
	return out.String(), err
}

func TestRunSnapshot_Table(t *testing.T) {
	out, err := runReplaySnapshot(t, writeReplay(t, replayText), OutputTable)
	require.NoError(t, err)

	assert.Contains(t, out, "2/8 GPUs allocated, 6 free")
	assert.Contains(t, out, "3 nodes")
	assert.Contains(t, out, "2 jobs (1 running, 1 pending)")
	assert.Contains(t, out, "Nodes (3)")
	assert.Contains(t, out, "Partitions (2)")
	assert.Contains(t, out, "Jobs (2)")
	assert.Contains(t, out, "gpu*", "default partition is starred")
	assert.Contains(t, out, "500 GiB")
	assert.Contains(t, out, "1 anomaly")
	assert.Contains(t, out, "gpu99")
}

func TestRunSnapshot_JSON(t *testing.T) {
	out, err := runReplaySnapshot(t, writeReplay(t, replayText), OutputJSON)
	require.NoError(t, err)

	var env struct {
		Success bool           `json:"success"`
		Data    SnapshotReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.True(t, env.Success)

	report := env.Data
	assert.Contains(t, report.Source, "replay ")
	assert.Equal(t, 8, report.Totals.GPUTotal)
	assert.Equal(t, 6, report.Totals.GPUFree)
	assert.Equal(t, 1, report.Totals.Running)
	require.Len(t, report.Nodes, 3)
	require.Len(t, report.Jobs, 2)
	assert.Len(t, report.Anomalies, 1)
}

func TestRunSnapshot_JSONNullCounts(t *testing.T) {
	out, err := runReplaySnapshot(t, writeReplay(t, "NodeName=n1 State=IDLE\n"), OutputJSON)
	require.NoError(t, err)

	var env struct {
		Data struct {
			Nodes []map[string]interface{} `json:"nodes"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	require.Len(t, env.Data.Nodes, 1)

	node := env.Data.Nodes[0]
	assert.Contains(t, node, "gpu_total")
	assert.Nil(t, node["gpu_total"], "an unknown count is null, not zero")
	assert.Nil(t, node["cpu_total"])
}

func TestRunSnapshot_YAML(t *testing.T) {
	out, err := runReplaySnapshot(t, writeReplay(t, replayText), OutputYAML)
	require.NoError(t, err)

	var report SnapshotReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.Totals.GPUAlloc)
	require.Len(t, report.Partitions, 2)
	assert.Equal(t, "gpu", report.Partitions[0].Name)
	assert.True(t, report.Partitions[0].Default)
	assert.Equal(t, []string{"gpu01", "gpu02"}, report.Partitions[0].Nodes)
}

func TestRunSnapshot_MissingReplay(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.txt")

	_, err := runReplaySnapshot(t, missing, OutputTable)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "Couldn't read replay file")
}

func TestRunSnapshot_MissingReplayJSON(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.txt")

	out, err := runReplaySnapshot(t, missing, OutputJSON)
	code, ok := errors.GetExitCode(err)
	require.True(t, ok, "JSON failures exit with a bare status")
	assert.Equal(t, 1, code)

	var env JSONEnvelope
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeConfigInvalid, env.Error.Code)
}

func TestRunSnapshot_EmptyReplayFails(t *testing.T) {
	_, err := runReplaySnapshot(t, writeReplay(t, "\n"), OutputTable)
	assert.Error(t, err, "a poll with no records is a failure")
}

func TestSnapshotCommand_UnknownFormat(t *testing.T) {
	var out bytes.Buffer
	err := snapshotCommand(context.Background(), SourceFlags{}, "xml", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown output format")
	assert.Empty(t, out.String())
}

func TestSnapshotCommand_FlagsConflictJSON(t *testing.T) {
	var out bytes.Buffer
	err := snapshotCommand(context.Background(), SourceFlags{SSHHost: "login1", Replay: "x.txt"}, OutputJSON, &out)

	_, ok := errors.GetExitCode(err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), `"success": false`)
	assert.Contains(t, out.String(), "cannot be used together")
}

func TestSnapshotCommand_Replay(t *testing.T) {
	path := writeReplay(t, replayText)
	cfgPath := writeConfig(t, "interval: 5s\n")

	var out bytes.Buffer
	err := snapshotCommand(context.Background(), SourceFlags{Config: cfgPath, Replay: path}, OutputYAML, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "gpu_total: 8")
}

func TestValidateOutput(t *testing.T) {
	for _, format := range []string{OutputTable, OutputJSON, OutputYAML} {
		assert.NoError(t, validateOutput(format), format)
	}
	assert.Error(t, validateOutput(""))
	assert.Error(t, validateOutput("JSON"))
}

func TestPollError(t *testing.T) {
	structured := errors.New(errors.ErrSSH, "SSH failed", "check the host")
	assert.Same(t, structured, pollError(structured))

	err := pollError(context.Canceled)
	assert.True(t, errors.IsCode(err, errors.ErrExec))
	assert.Contains(t, err.Error(), "Poll interrupted")

	err = pollError(fmt.Errorf("boom"))
	assert.True(t, errors.IsCode(err, errors.ErrExec))
	assert.Contains(t, err.Error(), "Poll failed")
	assert.Contains(t, err.Error(), "boom")
}

func TestNewSnapshotReport_EmptySlices(t *testing.T) {
	p := poll.New(source.NewFileSource(writeReplay(t, "PartitionName=p State=UP\n")), poll.NewStore(),
		poll.Options{Interval: time.Hour, Timeout: time.Second}, logger.Noop())
	u := p.PollOnce(context.Background())
	require.NoError(t, u.Err)

	report := NewSnapshotReport("test", u)
	assert.NotNil(t, report.Nodes)
	assert.NotNil(t, report.Jobs)
	assert.Empty(t, report.Nodes)
	assert.Len(t, report.Partitions, 1)
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "-", dash(""))
	assert.Equal(t, "x", dash("x"))
}
