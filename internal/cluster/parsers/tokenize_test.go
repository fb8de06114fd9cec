package parsers

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/rileyhilliard/sgpu/internal/cluster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldMap(r RawRecord) map[string]string {
	m := make(map[string]string, r.Len())
	for _, f := range r.Fields() {
		m[f.Key] = f.Value
	}
	return m
}

func TestTokenize_Empty(t *testing.T) {
	for _, input := range []string{"", "\n\n", "   \n\t\n"} {
		records, errs := Tokenize(input)
		assert.Empty(t, records)
		assert.Empty(t, errs)
	}
}

func TestTokenize_Records(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []map[string]string
	}{
		{
			name:  "single line",
			input: "NodeName=gpu01 State=IDLE Gres=gpu:4",
			want:  []map[string]string{{"NodeName": "gpu01", "State": "IDLE", "Gres": "gpu:4"}},
		},
		{
			name:  "continuation lines",
			input: "NodeName=gpu01 Arch=x86_64\n   State=MIXED\n   Gres=gpu:4\n",
			want:  []map[string]string{{"NodeName": "gpu01", "Arch": "x86_64", "State": "MIXED", "Gres": "gpu:4"}},
		},
		{
			name:  "blank line separated",
			input: "NodeName=a State=IDLE\n\nNodeName=b State=DOWN\n",
			want: []map[string]string{
				{"NodeName": "a", "State": "IDLE"},
				{"NodeName": "b", "State": "DOWN"},
			},
		},
		{
			name:  "oneliner output",
			input: "JobId=1 JobState=RUNNING\nJobId=2 JobState=PENDING\nPartitionName=gpu State=UP\n",
			want: []map[string]string{
				{"JobId": "1", "JobState": "RUNNING"},
				{"JobId": "2", "JobState": "PENDING"},
				{"PartitionName": "gpu", "State": "UP"},
			},
		},
		{
			name:  "value containing equals",
			input: "NodeName=a CfgTRES=cpu=64,mem=1G,gres/gpu=4",
			want:  []map[string]string{{"NodeName": "a", "CfgTRES": "cpu=64,mem=1G,gres/gpu=4"}},
		},
		{
			name:  "value containing spaces",
			input: "NodeName=a\n   OS=Linux 5.15.0 #101-Ubuntu SMP\n   RealMemory=1000",
			want:  []map[string]string{{"NodeName": "a", "OS": "Linux 5.15.0 #101-Ubuntu SMP", "RealMemory": "1000"}},
		},
		{
			name:  "wrapped value continues on next line",
			input: "JobId=9 Reason=waiting\n   for resources\n   JobState=PENDING",
			want:  []map[string]string{{"JobId": "9", "Reason": "waiting for resources", "JobState": "PENDING"}},
		},
		{
			name:  "repeated key is value text",
			input: "JobId=7 Comment=a JobId=8",
			want:  []map[string]string{{"JobId": "7", "Comment": "a JobId=8"}},
		},
		{
			name:  "invalid key is value text",
			input: "JobId=7 Command=run.sh --lr=0.1 -x=1",
			want:  []map[string]string{{"JobId": "7", "Command": "run.sh --lr=0.1 -x=1"}},
		},
		{
			name:  "key grammar allows slash colon and dot",
			input: "JobId=7 Socks/Node=* ReqB:S:C:T=0:0:*:* a.b=c",
			want:  []map[string]string{{"JobId": "7", "Socks/Node": "*", "ReqB:S:C:T": "0:0:*:*", "a.b": "c"}},
		},
		{
			name:  "empty value then continuation",
			input: "NodeName=a AllocTRES=\n   State=IDLE",
			want:  []map[string]string{{"NodeName": "a", "AllocTRES": "", "State": "IDLE"}},
		},
		{
			name:  "crlf line endings",
			input: "NodeName=a\r\n   State=IDLE\r\n\r\nNodeName=b\r\n",
			want: []map[string]string{
				{"NodeName": "a", "State": "IDLE"},
				{"NodeName": "b"},
			},
		},
		{
			name:  "empty report lines skipped",
			input: "No jobs in the system\nNodeName=a\n",
			want:  []map[string]string{{"NodeName": "a"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, errs := Tokenize(tt.input)
			require.Empty(t, errs)
			require.Len(t, records, len(tt.want))
			for i, rec := range records {
				assert.Equal(t, tt.want[i], fieldMap(rec))
			}
		})
	}
}

func TestTokenize_KeyOrderAndLines(t *testing.T) {
	records, errs := Tokenize("\nNodeName=gpu01 State=IDLE\n   Gres=gpu:4\n\nNodeName=gpu02\n")
	require.Empty(t, errs)
	require.Len(t, records, 2)

	assert.Equal(t, []string{"NodeName", "State", "Gres"}, records[0].Keys())
	assert.Equal(t, 2, records[0].Line)
	assert.Equal(t, 5, records[1].Line)
	assert.Equal(t, cluster.KindNode, records[0].Kind())
}

func TestTokenize_MalformedLine(t *testing.T) {
	input := "NodeName=gpu01 State=IDLE\ngarbage-no-equals\nNodeName=gpu02 State=MIXED\n"

	records, errs := Tokenize(input)
	require.Len(t, records, 2)
	require.Len(t, errs, 1)

	var malformed *MalformedRecordError
	require.True(t, errors.As(errs[0], &malformed))
	assert.Equal(t, 2, malformed.Line)
	assert.Equal(t, "garbage-no-equals", malformed.Text)
	assert.Contains(t, errs[0].Error(), "line 2")

	assert.Equal(t, "gpu01", records[0].Value("NodeName"))
	assert.Equal(t, "gpu02", records[1].Value("NodeName"))
}

func TestTokenize_MalformedSwallowsContinuation(t *testing.T) {
	input := "some banner text\n   State=IDLE\nNodeName=a\n"

	records, errs := Tokenize(input)
	require.Len(t, errs, 1)
	require.Len(t, records, 1)
	assert.Equal(t, map[string]string{"NodeName": "a"}, fieldMap(records[0]))
}

func TestTokenize_LeadingIndentedLine(t *testing.T) {
	records, errs := Tokenize("   State=IDLE\n   Gres=gpu:1\n\nNodeName=a\n")

	require.Len(t, errs, 1)
	var malformed *MalformedRecordError
	require.True(t, errors.As(errs[0], &malformed))
	assert.Equal(t, 1, malformed.Line)
	require.Len(t, records, 1)
}

func TestTokenize_LeadingJunkDropped(t *testing.T) {
	records, errs := Tokenize("warning: stale NodeName=a State=IDLE\nNodeName=b")
	require.Len(t, records, 2, "the record after the junk is kept")
	assert.Equal(t, map[string]string{"NodeName": "a", "State": "IDLE"}, fieldMap(records[0]))

	require.Len(t, errs, 1)
	var malformed *MalformedRecordError
	require.True(t, errors.As(errs[0], &malformed))
	assert.True(t, malformed.Leading)
	assert.Equal(t, 1, malformed.Line)
	assert.Equal(t, "warning: stale", malformed.Text)
	assert.Contains(t, errs[0].Error(), "dropped")
}

func TestTokenize_Fixture(t *testing.T) {
	data, err := os.ReadFile("testdata/cluster.txt")
	require.NoError(t, err)

	records, errs := Tokenize(string(data))
	require.Empty(t, errs)
	require.Len(t, records, 8)

	kinds := map[cluster.Kind]int{}
	for _, r := range records {
		kinds[r.Kind()]++
	}
	assert.Equal(t, map[cluster.Kind]int{cluster.KindNode: 3, cluster.KindPartition: 3, cluster.KindJob: 2}, kinds)

	assert.Equal(t, "Linux 5.15.0-91-generic #101-Ubuntu SMP Tue Nov 14 13:30:08 UTC 2023", records[0].Value("OS"))
	assert.Equal(t, "/home/alice/train.sh --lr=3e-4 --epochs 10", records[6].Value("Command"))
	assert.Equal(t, "eval sweep", records[7].Value("JobName"))
}

func TestTokenize_RoundTrip(t *testing.T) {
	data, err := os.ReadFile("testdata/cluster.txt")
	require.NoError(t, err)

	records, _ := Tokenize(string(data))
	require.NotEmpty(t, records)

	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = r.String()
	}
	again, errs := Tokenize(strings.Join(lines, "\n"))
	require.Empty(t, errs)
	require.Len(t, again, len(records))

	for i := range records {
		assert.Equal(t, fieldMap(records[i]), fieldMap(again[i]))
		assert.Equal(t, records[i].Keys(), again[i].Keys())
	}
}

func TestRawRecord(t *testing.T) {
	r := NewRawRecord(
		Field{Key: "JobId", Value: "5"},
		Field{Key: "JobState", Value: "PENDING"},
		Field{Key: "JobId", Value: "6"},
	)

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"JobId", "JobState"}, r.Keys())
	assert.Equal(t, "6", r.Value("JobId"))
	assert.Equal(t, "JobId=6 JobState=PENDING", r.String())
	assert.Equal(t, cluster.KindJob, r.Kind())

	_, ok := r.Get("Missing")
	assert.False(t, ok)
	assert.Equal(t, "", r.Value("Missing"))

	both := NewRawRecord(Field{Key: "NodeName", Value: "a"}, Field{Key: "JobId", Value: "1"})
	assert.Equal(t, cluster.KindUnknown, both.Kind())
	assert.Equal(t, cluster.KindUnknown, RawRecord{}.Kind())
}

func TestIsKey(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"NodeName", true},
		{"CPUs/Task", true},
		{"ReqB:S:C:T", true},
		{"a.b_c9", true},
		{"", false},
		{"9lives", false},
		{"--lr", false},
		{"has space", false},
		{"bad-dash", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, isKey(tt.in))
		})
	}
}
