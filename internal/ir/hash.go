package ir

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
)

// Domain prefixes for content-addressed hashes.
// The version suffix allows the encoding to change without colliding.
const (
	DomainOrder = "tlanislide/order/v1"
	DomainCue   = "tlanislide/cue/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separates domain and data unambiguously.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CueObject renders a cue as a canonical Object.
// A nil payload is encoded as an empty object.
func CueObject(c Cue) Object {
	data := c.Data
	if data == nil {
		data = Object{}
	}
	return Object{
		"id":           String(c.ID),
		"track_id":     String(c.TrackID),
		"global_index": Int(c.GlobalIndex),
		"data":         data,
	}
}

// CueHash computes the content hash of a single cue.
func CueHash(c Cue) (string, error) {
	canonical, err := MarshalCanonical(CueObject(c))
	if err != nil {
		return "", fmt.Errorf("CueHash: failed to marshal %q: %w", c.ID, err)
	}
	return hashWithDomain(DomainCue, canonical), nil
}

// CanonicalOrder returns a copy of cues sorted by GlobalIndex, then
// TrackID, then ID. Members of one group have no inherent order; this fixes
// one for hashing and storage.
func CanonicalOrder(cues []Cue) []Cue {
	sorted := slices.Clone(cues)
	slices.SortFunc(sorted, func(a, b Cue) int {
		if c := cmp.Compare(a.GlobalIndex, b.GlobalIndex); c != 0 {
			return c
		}
		if c := strings.Compare(a.TrackID, b.TrackID); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return sorted
}

// OrderHash computes the content hash of a cue collection.
//
// Cues are hashed in CanonicalOrder, so two collections have the same hash
// iff they hold the same cues at the same GlobalIndex with the same
// payloads. Callers pass reindexed snapshots.
func OrderHash(cues []Cue) (string, error) {
	arr := make(Array, len(cues))
	for i, c := range CanonicalOrder(cues) {
		arr[i] = CueObject(c)
	}
	canonical, err := MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("OrderHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainOrder, canonical), nil
}

// MustOrderHash is like OrderHash but panics on error.
// Use only in tests or when payloads are known to be valid.
func MustOrderHash(cues []Cue) string {
	h, err := OrderHash(cues)
	if err != nil {
		panic(err)
	}
	return h
}
