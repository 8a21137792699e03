package internal

import (
	"crypto/sha256"
	"encoding/hex"
)

// Deduplicator is a per-chat registry of identity hashes already accepted
// into the result. It must not be shared across chats.
type Deduplicator struct {
	seen map[string]bool
}

// NewDeduplicator creates a Deduplicator, optionally pre-seeded with hashes
// persisted by earlier runs of the same chat.
func NewDeduplicator(known []string) *Deduplicator {
	seen := make(map[string]bool, len(known))
	for _, h := range known {
		seen[h] = true
	}
	return &Deduplicator{seen: seen}
}

// Admit records the message's identity hash and reports whether it was
// unseen. A false return leaves the registry unchanged.
func (d *Deduplicator) Admit(msg *Message) bool {
	if d.seen[msg.IdentityHash] {
		return false
	}
	d.seen[msg.IdentityHash] = true
	return true
}

// Len returns the number of registered hashes.
func (d *Deduplicator) Len() int {
	return len(d.seen)
}

// IdentityHash derives the deduplication key from the message's semantic
// content. Two messages with equal (author, timestamp, body) hash identically
// regardless of DOM position or discovery order. The fields are separated by
// NUL so no concatenation of differing tuples can collide.
func IdentityHash(author, timestamp, body string) string {
	h := sha256.New()
	h.Write([]byte(author))
	h.Write([]byte{0})
	h.Write([]byte(timestamp))
	h.Write([]byte{0})
	h.Write([]byte(body))
	return hex.EncodeToString(h.Sum(nil))
}
