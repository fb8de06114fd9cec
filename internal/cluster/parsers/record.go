// Package parsers turns the text printed by `scontrol show nodes|jobs|partitions`
// into cluster resources.
//
// Parsing happens in two passes. Tokenize splits the text into RawRecords,
// ordered key=value fields with wrapped and continuation lines merged. Decode
// maps one RawRecord onto a typed cluster.Node, cluster.Job or
// cluster.Partition. Both passes report problems per record so a single bad
// record never discards the rest of the batch.
package parsers

import (
	"strings"

	"github.com/rileyhilliard/sgpu/internal/cluster"
)

// Discriminant keys identify the resource kind of a record.
const (
	KeyNodeName      = "NodeName"
	KeyJobID         = "JobId"
	KeyPartitionName = "PartitionName"
)

// Field is one key=value pair of a record.
type Field struct {
	Key   string
	Value string
}

// RawRecord is an ordered set of fields. Keys are unique within a record.
type RawRecord struct {
	// Line is the 1-based source line the record starts on, 0 if the record
	// was not tokenized from text.
	Line int

	fields []Field
	index  map[string]int
}

// NewRawRecord builds a record from fields. A repeated key overwrites the
// earlier value but keeps its position.
func NewRawRecord(fields ...Field) RawRecord {
	var r RawRecord
	for _, f := range fields {
		r.set(f.Key, f.Value)
	}
	return r
}

func (r *RawRecord) set(key, value string) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[key]; ok {
		r.fields[i].Value = value
		return
	}
	r.index[key] = len(r.fields)
	r.fields = append(r.fields, Field{Key: key, Value: value})
}

// appendValue continues the last field's value with text.
func (r *RawRecord) appendValue(text string) {
	if len(r.fields) == 0 {
		return
	}
	last := &r.fields[len(r.fields)-1]
	if last.Value == "" {
		last.Value = text
		return
	}
	last.Value += " " + text
}

// Len is the number of fields.
func (r RawRecord) Len() int { return len(r.fields) }

// Keys returns field names in first-seen order.
func (r RawRecord) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Key
	}
	return keys
}

// Fields returns a copy of the fields in order.
func (r RawRecord) Fields() []Field {
	return append([]Field(nil), r.fields...)
}

// Get returns the value of key and whether it was present.
func (r RawRecord) Get(key string) (string, bool) {
	i, ok := r.index[key]
	if !ok {
		return "", false
	}
	return r.fields[i].Value, true
}

// Value returns the value of key, or "" when absent.
func (r RawRecord) Value(key string) string {
	v, _ := r.Get(key)
	return v
}

// Has reports whether key is present.
func (r RawRecord) Has(key string) bool {
	_, ok := r.index[key]
	return ok
}

// Kind infers the resource kind from the discriminant key. Records with no
// discriminant or more than one are KindUnknown.
func (r RawRecord) Kind() cluster.Kind {
	kind := cluster.KindUnknown
	for key, k := range discriminants {
		if !r.Has(key) {
			continue
		}
		if kind != cluster.KindUnknown {
			return cluster.KindUnknown
		}
		kind = k
	}
	return kind
}

var discriminants = map[string]cluster.Kind{
	KeyNodeName:      cluster.KindNode,
	KeyJobID:         cluster.KindJob,
	KeyPartitionName: cluster.KindPartition,
}

// String serializes the record as a single `k=v k=v` line that Tokenize
// reads back into the same fields.
func (r RawRecord) String() string {
	var b strings.Builder
	for i, f := range r.fields {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(f.Value)
	}
	return b.String()
}
