// Package journal records every completed boundary call in SQLite.
//
// Each row carries the module and method, the canonical JSON of the
// arguments and result, the classified error if any, and the call's
// duration. Rows are ordered by a logical sequence number rather than wall
// time so that two runs of the same scenario produce the same journal.
//
// The journal implements bridge.Recorder through Recorder:
//
//	j, err := journal.Open(path)
//	b := bridge.New(bridge.WithRecorder(j.Recorder()))
package journal
