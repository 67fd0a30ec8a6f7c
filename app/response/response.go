package response

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	v1 "github.com/quka-ai/ragstore/app/logic/v1"
	"github.com/quka-ai/ragstore/pkg/errors"
	"github.com/quka-ai/ragstore/pkg/i18n"
	"github.com/quka-ai/ragstore/pkg/utils"
)

func ProvideResponseLocalizer(l i18n.Localizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("i18n", l)
	}
}

func InjectResponseLocalizer(c *gin.Context) i18n.Localizer {
	return c.MustGet("i18n").(i18n.Localizer)
}

const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-Id"
)

// ErrorBody is the envelope of every failed request.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// GetLangFromRequestOrDefault prefers the language negotiated by the
// AcceptLanguage middleware and falls back to the raw header.
func GetLangFromRequestOrDefault(c *gin.Context) string {
	if lang, ok := v1.InjectLanguage(c); ok && i18n.ALLOW_LANG[lang] {
		return lang
	}
	lang := c.Request.Header.Get("Accept-Language")
	if lang == "zh" {
		lang = "zh-CN"
	}
	if i18n.ALLOW_LANG[lang] {
		return lang
	}
	return i18n.DEFAULT_LANG
}

// APIError writes {detail} with the status code carried by err. Errors that are
// not CustomizedError are internal.
func APIError(c *gin.Context, err error) {
	c.Abort()

	var (
		httpStatus = http.StatusInternalServerError
		detail     = err.Error()
	)
	if cerrptr, ok := err.(*errors.CustomizedError); ok {
		httpStatus = cerrptr.GetCode()
		detail = InjectResponseLocalizer(c).Get(GetLangFromRequestOrDefault(c), cerrptr.Message())
		if httpStatus == http.StatusInternalServerError {
			// 500 responses carry the generic message only
			detail = InjectResponseLocalizer(c).Get(GetLangFromRequestOrDefault(c), i18n.ERROR_INTERNAL)
		}
	}

	c.JSON(httpStatus, ErrorBody{Detail: detail})
	printErrorLog(c, httpStatus, err)
}

func printErrorLog(c *gin.Context, code int, err error) {
	var logFields = map[string]any{
		"request_uri": c.Request.URL.Path,
		"method":      c.Request.Method,
		"end_time":    time.Now().Unix(),
		"code":        code,
		"error":       err.Error(),
		"request_id":  c.GetString(RequestIDKey),
	}
	if code >= http.StatusInternalServerError {
		slog.Error("response error", slog.Any("fields", logFields))
		return
	}
	slog.Warn("response error", slog.Any("fields", logFields))
}

func printSuccessLog(c *gin.Context) {
	slog.Debug("request success", slog.Any("fields", map[string]any{
		"request_uri": c.Request.URL.Path,
		"method":      c.Request.Method,
		"end_time":    time.Now().Unix(),
		"params":      c.Request.URL.Query().Encode(),
		"request_id":  c.GetString(RequestIDKey),
	}))
}

// APISuccess writes the payload as the response body.
func APISuccess(c *gin.Context, response interface{}) {
	c.Abort()
	if response == nil {
		response = gin.H{}
	}
	c.JSON(http.StatusOK, response)
	printSuccessLog(c)
}

// NewResponse tags every request with an id, echoed in the X-Request-Id header.
func NewResponse() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = utils.GenUniqIDStr()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
	}
}
