package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mediahub/backend/internal/services"
)

const (
	maxAuditBody    = 2000
	maskedValue     = "***"
	unparseableBody = "[unparseable body]"
)

var sensitiveKeys = []string{"password", "refresh_token", "access_token", "token", "secret"}

// AuditLog records write requests (POST/DELETE) to system_logs.
func AuditLog(logs *services.SystemLogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != http.MethodPost && method != http.MethodDelete {
			c.Next()
			return
		}

		var bodySnippet string
		if c.Request.Body != nil {
			bodyBytes, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			bodySnippet = maskSensitiveFields(string(bodyBytes))
			if len(bodySnippet) > maxAuditBody {
				bodySnippet = bodySnippet[:maxAuditBody] + "...[truncated]"
			}
		}

		c.Next()

		status := c.Writer.Status()
		module, action := parseRouteInfo(c.FullPath(), method)

		level := services.LogLevelInfo
		if status >= http.StatusInternalServerError {
			level = services.LogLevelError
		} else if status >= http.StatusBadRequest {
			level = services.LogLevelWarning
		}

		logs.Record(c.Request.Context(), services.LogEntry{
			Level:     level,
			Module:    module,
			Action:    action,
			Message:   formatAuditMessage(GetUsername(c), method, c.Request.URL.Path, status),
			UserID:    GetUserID(c),
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Extra: map[string]interface{}{
				"method": method,
				"path":   c.Request.URL.Path,
				"status": status,
				"body":   bodySnippet,
			},
		})
	}
}

// parseRouteInfo extracts module and action from a Gin route pattern.
// e.g. "/api/reviews/:id" + "DELETE" -> module="reviews", action="delete"
func parseRouteInfo(fullPath, method string) (module, action string) {
	path := strings.TrimPrefix(fullPath, "/api/")
	parts := strings.Split(path, "/")

	module = parts[0]
	if module == "" {
		module = "unknown"
	}

	switch {
	case module == "auth" && len(parts) > 1:
		action = parts[1]
	case method == http.MethodPost:
		action = "create"
	case method == http.MethodDelete:
		action = "delete"
	default:
		action = strings.ToLower(method)
	}
	return module, action
}

func formatAuditMessage(username, method, path string, status int) string {
	if username == "" {
		username = "anonymous"
	}
	var b strings.Builder
	b.WriteString(username)
	b.WriteString(" ")
	b.WriteString(method)
	b.WriteString(" ")
	b.WriteString(path)
	if status >= 200 && status < 300 {
		b.WriteString(" ok")
	} else {
		b.WriteString(" failed")
	}
	return b.String()
}

// maskSensitiveFields decodes a JSON body and replaces the value of every
// sensitive key, at any depth, before re-encoding it.
func maskSensitiveFields(body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil || dec.More() {
		return unparseableBody
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(maskValue(doc)); err != nil {
		return unparseableBody
	}
	return strings.TrimRight(buf.String(), "\n")
}

func maskValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, child := range val {
			if isSensitiveKey(k) {
				val[k] = maskedValue
				continue
			}
			val[k] = maskValue(child)
		}
		return val
	case []interface{}:
		for i, child := range val {
			val[i] = maskValue(child)
		}
		return val
	default:
		return v
	}
}

func isSensitiveKey(key string) bool {
	for _, k := range sensitiveKeys {
		if strings.EqualFold(key, k) {
			return true
		}
	}
	return false
}
