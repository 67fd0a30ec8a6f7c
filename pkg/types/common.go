package types

const (
	DEFAULT_PAGE_SIZE = 50
	MAX_PAGE_SIZE     = 500
)

const (
	LANGUAGE_EN_KEY = "en"
	LANGUAGE_CN_KEY = "zh-CN"
)

// GRAPH_FIELD_SEP joins merged descriptions and source ids, the same separator
// the graph exports use.
const GRAPH_FIELD_SEP = "<SEP>"

const (
	WORKSPACE_HEADER  = "WORKSPACE-ID"
	DEFAULT_WORKSPACE = "default"
)
