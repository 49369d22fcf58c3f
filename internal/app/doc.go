// Package app hosts consumable event queues and the systems that use them.
//
// The App owns one queue per payload type, runs systems in rounds and
// applies each queue's clearing policy at the round boundary.
//
// ROUND STRUCTURE:
//
// 1. Round-boundary hooks: auto-clear queues are emptied, compacting
// persistent queues drop consumed records
// 2. Stages run in order: First, PreUpdate, FixedUpdate (once per
// sub-round), Update, PostUpdate, Last
// 3. Systems within a stage run in the order they were added
// 4. A round_end trace event carries every queue's Stats
//
// The hooks run exactly once per outer round, never per fixed sub-round.
//
// ACCESS:
//
// Systems declare every queue they touch (Reads, Writes, Uses). The App
// holds the declared queues' locks for the whole execution, taken in
// registration order, so two systems never observe one queue at the same
// time. Asking for an undeclared queue fails with ErrCodeAccessUndeclared.
//
// ERRORS:
//
// A failing system is logged and recorded; the round continues and Update
// returns every failure joined together. Run logs the joined error and keeps
// ticking.
package app
