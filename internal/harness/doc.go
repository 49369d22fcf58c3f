// Package harness runs declarative scenarios against the consumable host.
//
// A scenario describes one integer queue, a handful of systems that send,
// consume, mutate, observe or clear, and the rounds to run them for. The
// harness builds a real app.App from it, so every scenario exercises the
// same scheduling, boundary hooks and access checks as a production host.
//
// # Scenario Files
//
// YAML files are decoded with unknown fields rejected. CUE files must
// declare a top-level `scenario` field; it is unified with the embedded
// #Scenario definition (schema.cue) before decoding, so type errors and
// unknown fields are reported with CUE positions.
//
// # Determinism
//
// Round ids come from a fixed generator and the run id defaults to
// DefaultRunID. Two runs of the same scenario produce the same trace and
// therefore the same Result.Digest. Golden snapshots (testdata/golden)
// pin the observations and final queue counters.
package harness
