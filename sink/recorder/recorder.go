// Package recorder implements a reference rdb.Sink that turns decoded
// events into a flat, ordered log of records — useful for tests that
// want to assert on the exact event sequence spec.md §8 specifies, and
// for the CLI's default JSON-lines output.
package recorder

import (
	"encoding/json"
	"io"
	"time"

	"rdbsnap"
)

// Record is one flattened event. Kind names mirror the sink contract's
// method names (spec §4.F) so a reader can line a Record up against the
// callback that produced it.
type Record struct {
	Kind     string      `json:"kind"`
	DB       int         `json:"db,omitempty"`
	Key      string      `json:"key,omitempty"`
	Value    interface{} `json:"value,omitempty"`
	Member   interface{} `json:"member,omitempty"`
	Score    float64     `json:"score,omitempty"`
	Expiry   *time.Time  `json:"expiry,omitempty"`
	Encoding string      `json:"encoding,omitempty"`
	Length   int64       `json:"length,omitempty"`
}

// Recorder accumulates Records in event order. It also implements
// io.WriterTo-style streaming via WriteJSONLines for CLI/demo use.
type Recorder struct {
	rdbsnap.NopSink
	Records []Record
}

func New() *Recorder { return &Recorder{} }

func valueOf(v rdbsnap.Value) interface{} {
	switch v.Kind {
	case rdbsnap.KindInt:
		return v.Int
	case rdbsnap.KindFloat:
		return v.Float
	default:
		return string(v.Bytes)
	}
}

func (r *Recorder) StartRDB() { r.Records = append(r.Records, Record{Kind: "start_rdb"}) }
func (r *Recorder) EndRDB()   { r.Records = append(r.Records, Record{Kind: "end_rdb"}) }

func (r *Recorder) StartDatabase(idx int) {
	r.Records = append(r.Records, Record{Kind: "start_database", DB: idx})
}
func (r *Recorder) EndDatabase(idx int) {
	r.Records = append(r.Records, Record{Kind: "end_database", DB: idx})
}

func (r *Recorder) Set(key string, value rdbsnap.Value, expiry *time.Time, info rdbsnap.Info) {
	r.Records = append(r.Records, Record{Kind: "set", Key: key, Value: valueOf(value), Expiry: expiry, Encoding: info.Encoding})
}

func (r *Recorder) StartHash(key string, length int64, expiry *time.Time, info rdbsnap.Info) {
	r.Records = append(r.Records, Record{Kind: "start_hash", Key: key, Length: length, Expiry: expiry, Encoding: info.Encoding})
}
func (r *Recorder) HSet(key string, field, value rdbsnap.Value) {
	r.Records = append(r.Records, Record{Kind: "hset", Key: key, Member: valueOf(field), Value: valueOf(value)})
}
func (r *Recorder) EndHash(key string) {
	r.Records = append(r.Records, Record{Kind: "end_hash", Key: key})
}

func (r *Recorder) StartSet(key string, length int64, expiry *time.Time, info rdbsnap.Info) {
	r.Records = append(r.Records, Record{Kind: "start_set", Key: key, Length: length, Expiry: expiry, Encoding: info.Encoding})
}
func (r *Recorder) SAdd(key string, member rdbsnap.Value) {
	r.Records = append(r.Records, Record{Kind: "sadd", Key: key, Member: valueOf(member)})
}
func (r *Recorder) EndSet(key string) {
	r.Records = append(r.Records, Record{Kind: "end_set", Key: key})
}

func (r *Recorder) StartList(key string, length int64, expiry *time.Time, info rdbsnap.Info) {
	r.Records = append(r.Records, Record{Kind: "start_list", Key: key, Length: length, Expiry: expiry, Encoding: info.Encoding})
}
func (r *Recorder) RPush(key string, value rdbsnap.Value) {
	r.Records = append(r.Records, Record{Kind: "rpush", Key: key, Value: valueOf(value)})
}
func (r *Recorder) EndList(key string) {
	r.Records = append(r.Records, Record{Kind: "end_list", Key: key})
}

func (r *Recorder) StartSortedSet(key string, length int64, expiry *time.Time, info rdbsnap.Info) {
	r.Records = append(r.Records, Record{Kind: "start_sorted_set", Key: key, Length: length, Expiry: expiry, Encoding: info.Encoding})
}
func (r *Recorder) ZAdd(key string, member rdbsnap.Value, score float64) {
	r.Records = append(r.Records, Record{Kind: "zadd", Key: key, Member: valueOf(member), Score: score})
}
func (r *Recorder) EndSortedSet(key string) {
	r.Records = append(r.Records, Record{Kind: "end_sorted_set", Key: key})
}

// WriteJSONLines writes one JSON object per record, newline-delimited.
func (r *Recorder) WriteJSONLines(w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, rec := range r.Records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}
