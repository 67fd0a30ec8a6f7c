package utils

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/holdno/snowFlakeByGo"

	"github.com/quka-ai/ragstore/pkg/errors"
	"github.com/quka-ai/ragstore/pkg/i18n"
)

var (
	// idWorker 全局唯一id生成器实例
	idWorker *snowFlakeByGo.Worker
)

func SetupIDWorker(clusterID int64) {
	idWorker, _ = snowFlakeByGo.NewWorker(clusterID)
}

func GenUniqID() int64 {
	if idWorker == nil {
		SetupIDWorker(1)
	}
	return idWorker.GetId()
}

func GenUniqIDStr() string {
	return strconv.FormatInt(GenUniqID(), 10)
}

// RandomStr 随机字符串
func RandomStr(l int) string {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	seed := "1234567890qwertyuiopasdfghjklzxcvbnmQWERTYUIOPASDFGHJKLZXCVBNM"
	var b strings.Builder
	for i := 0; i < l; i++ {
		b.WriteByte(seed[r.Intn(len(seed))])
	}
	return b.String()
}

func MD5(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// MDHashID is the content addressed id used for documents, chunks, entities
// and relations: prefix + md5(content).
func MDHashID(content, prefix string) string {
	return prefix + MD5(content)
}

func DocID(content string) string {
	return MDHashID(content, "doc-")
}

func ChunkID(docID string, order int, content string) string {
	return MDHashID(fmt.Sprintf("%s:%d:%s", docID, order, content), "chunk-")
}

func EntityID(name string) string {
	return MDHashID(name, "ent-")
}

// RelationID does not depend on the orientation of the pair.
func RelationID(src, tgt string) string {
	if tgt < src {
		src, tgt = tgt, src
	}
	return MDHashID(src+tgt, "rel-")
}

// GenTrackID builds a batch correlation id, e.g. insert_20250101_120000_1a2b3c4d.
func GenTrackID(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s", prefix, time.Now().Format("20060102_150405"), id)
}

// Summary returns the first maxRunes runes of content with whitespace collapsed.
func Summary(content string, maxRunes int) string {
	content = strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(content) <= maxRunes {
		return content
	}
	return string([]rune(content)[:maxRunes]) + "..."
}

func BindArgsWithGin(c *gin.Context, req interface{}) error {
	err := c.ShouldBindWith(req, binding.Default(c.Request.Method, c.ContentType()))
	if err != nil {
		return errors.New(fmt.Sprintf("Gin.ShouldBindWith.%s.%s", c.Request.Method, c.Request.URL.Path), i18n.ERROR_INVALIDARGUMENT, err).Code(http.StatusBadRequest)
	}
	return nil
}
