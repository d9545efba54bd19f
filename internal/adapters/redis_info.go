// Copyright 2025 Takhin Data, Inc.

package adapters

import (
	"strconv"
	"strings"

	"github.com/takhin-data/stratum/internal/tier"
)

// parseRedisInfoStats extracts the four counters KeyValueStats needs out of
// a raw `INFO stats memory` reply.
func parseRedisInfoStats(info string) tier.KeyValueStats {
	var out tier.KeyValueStats
	for _, line := range strings.Split(info, "\r\n") {
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch k {
		case "keyspace_hits":
			out.KeyspaceHits, _ = strconv.ParseInt(v, 10, 64)
		case "keyspace_misses":
			out.KeyspaceMisses, _ = strconv.ParseInt(v, 10, 64)
		case "used_memory":
			out.UsedMemory, _ = strconv.ParseInt(v, 10, 64)
		case "maxmemory":
			out.MaxMemory, _ = strconv.ParseInt(v, 10, 64)
		}
	}
	return out
}
