package report

import (
	"strconv"
	"strings"
)

const DefaultPrefix = "build/"

// Keys lays out the state store namespace of one job.
type Keys struct {
	Prefix string
}

func NewKeys(prefix string) Keys {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return Keys{Prefix: prefix}
}

func (k Keys) State() string       { return k.Prefix + "state.json" }
func (k Keys) ChunkPrefix() string { return k.Prefix + "chunks/" }
func (k Keys) Chunk(i int) string  { return k.ChunkPrefix() + strconv.Itoa(i) + ".json" }
func (k Keys) Probe() string       { return k.Prefix + "diag/probe.json" }
func (k Keys) Agg() string         { return k.Prefix + "agg.json" }
