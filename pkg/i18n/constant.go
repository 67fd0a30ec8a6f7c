package i18n

var ALLOW_LANG = map[string]bool{
	"en":    true,
	"zh-CN": true,
}

const DEFAULT_LANG = "en"

const (
	ERROR_INTERNAL            = "error.internal"
	ERROR_NOT_FOUND           = "error.notfound"
	ERROR_INVALIDARGUMENT     = "error.invalidargument"
	ERROR_INVALID_WORKSPACE   = "error.invalid.workspace"
	ERROR_INVALID_URL         = "error.invalid.url"
	ERROR_UNSUPPORTED_FEATURE = "error.unsupported.feature"
	ERROR_BACKEND_UNAVAILABLE = "error.backend.unavailable"
	ERROR_FETCH_FAILED        = "error.fetch.failed"
	ERROR_PIPELINE_BUSY       = "error.pipeline.busy"
	ERROR_DOCUMENT_NOT_FOUND  = "error.document.notfound"
	ERROR_ENTITY_NOT_FOUND    = "error.entity.notfound"
	ERROR_CHUNK_NOT_FOUND     = "error.chunk.notfound"
)
