package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/consumable/internal/events"
)

// DomainTrace is the domain-separation prefix for trace digests.
// The version suffix allows the encoding to change later.
const DomainTrace = "consumable/trace/v1"

// CanonicalMap converts ev to a map suitable for MarshalCanonical.
//
// Run and round ids are left out on purpose: they are random in production,
// and the digest must only depend on what the scheduler did.
func CanonicalMap(ev Event) map[string]any {
	m := map[string]any{
		"round": ev.Round,
		"seq":   ev.Seq,
		"kind":  string(ev.Kind),
	}
	if ev.SubRound != 0 {
		m["sub_round"] = ev.SubRound
	}
	if ev.System != "" {
		m["system"] = ev.System
	}
	if ev.Queue != "" {
		m["queue"] = ev.Queue
	}
	if ev.Removed != 0 {
		m["removed"] = ev.Removed
	}
	if ev.Error != "" {
		m["error"] = ev.Error
	}
	if len(ev.Queues) > 0 {
		m["queues"] = QueuesMap(ev.Queues)
	}
	return m
}

// QueuesMap converts a queue snapshot to nested maps suitable for
// MarshalCanonical.
func QueuesMap(queues map[string]events.Stats) map[string]any {
	out := make(map[string]any, len(queues))
	for name, st := range queues {
		out[name] = map[string]any{
			"len":        st.Len,
			"unconsumed": st.Unconsumed,
			"next_seq":   st.NextSeq,
			"sent":       st.Sent,
			"consumed":   st.Consumed,
			"cleared":    st.Cleared,
		}
	}
	return out
}

// Digest computes a content hash over a sequence of trace events.
// Two runs that scheduled the same work produce the same digest.
//
// Format: hex(SHA256(DomainTrace + 0x00 + canonical(events))).
func Digest(evs []Event) (string, error) {
	list := make([]any, len(evs))
	for i, ev := range evs {
		list[i] = CanonicalMap(ev)
	}

	data, err := MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(DomainTrace))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
