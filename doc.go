// Package flutterhost routes platform messages between a native host and an
// embedded Flutter engine. Named channels carry codec-framed payloads in
// both directions; plugins register channels through an Engine and answer
// method calls with one-shot response handles.
//
// The package is transport-agnostic above the embedder.RawEngine interface,
// so the dispatch layer runs identically against the real embedder library
// and against in-process fakes in tests.
package flutterhost
