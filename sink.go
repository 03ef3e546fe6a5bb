package rdbsnap

import "time"

// Info carries the encoding metadata spec §4.F requires alongside every
// start_X callback: the physical encoding name, and for packed
// encodings the byte length of the packed region.
type Info struct {
	Encoding    string
	SizeOfValue int
}

// Sink is the event-consumer contract (spec §4.F). It is deliberately
// total: every method must accept every call; a sink that only cares
// about strings is free to ignore the rest. This is the one interface
// spec.md treats as the embedder's concern — see sink/recorder and
// sink/redisload for two concrete implementations shipped for tests and
// for CLI demo use.
type Sink interface {
	StartRDB()
	EndRDB()
	StartDatabase(index int)
	EndDatabase(index int)

	Set(key string, value Value, expiry *time.Time, info Info)

	StartHash(key string, length int64, expiry *time.Time, info Info)
	HSet(key string, field, value Value)
	EndHash(key string)

	StartSet(key string, length int64, expiry *time.Time, info Info)
	SAdd(key string, member Value)
	EndSet(key string)

	StartList(key string, length int64, expiry *time.Time, info Info)
	RPush(key string, value Value)
	EndList(key string)

	StartSortedSet(key string, length int64, expiry *time.Time, info Info)
	ZAdd(key string, member Value, score float64)
	EndSortedSet(key string)
}

// NopSink implements Sink with every method a no-op. Embed it to build a
// sink that only overrides the handful of callbacks it cares about,
// instead of inheriting from a base class (spec §9 prefers composition
// over an inheritance chain here).
type NopSink struct{}

func (NopSink) StartRDB()                                                     {}
func (NopSink) EndRDB()                                                       {}
func (NopSink) StartDatabase(int)                                             {}
func (NopSink) EndDatabase(int)                                               {}
func (NopSink) Set(string, Value, *time.Time, Info)                           {}
func (NopSink) StartHash(string, int64, *time.Time, Info)                     {}
func (NopSink) HSet(string, Value, Value)                                     {}
func (NopSink) EndHash(string)                                                {}
func (NopSink) StartSet(string, int64, *time.Time, Info)                      {}
func (NopSink) SAdd(string, Value)                                            {}
func (NopSink) EndSet(string)                                                 {}
func (NopSink) StartList(string, int64, *time.Time, Info)                     {}
func (NopSink) RPush(string, Value)                                           {}
func (NopSink) EndList(string)                                                {}
func (NopSink) StartSortedSet(string, int64, *time.Time, Info)                {}
func (NopSink) ZAdd(string, Value, float64)                                   {}
func (NopSink) EndSortedSet(string)                                           {}
