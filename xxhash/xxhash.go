// Package xxhash wraps the non-cryptographic hash used to derive a
// stable server index from an object name (§3: "index = hash(name) mod
// server_count"). The exact hash function is not visible on the wire,
// only its result, but it MUST be identical on client and server, which
// is why it is centralized here rather than inlined at each call site.
package xxhash

import (
	"github.com/OneOfOne/xxhash"
)

// Sum64String hashes name with xxhash64.
func Sum64String(name string) uint64 {
	return xxhash.ChecksumString64(name)
}

// ServerIndex computes index = hash(name) mod serverCount (§3). When
// serverCount is zero (no servers configured for this backend kind) it
// returns 0, matching single-backend / local-only deployments.
func ServerIndex(name string, serverCount int) int {
	if serverCount <= 0 {
		return 0
	}
	return int(Sum64String(name) % uint64(serverCount))
}
