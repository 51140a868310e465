package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/solpet-labs/solpet/pkg/logger"
)

// Recovery 适配 pkg/logger 的异常恢复中间件
// 配置了 Sentry DSN 时，panic 会同时上报 Sentry
func Recovery(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				// 检查连接是否断开
				var brokenPipe bool
				if ne, ok := err.(*net.OpError); ok {
					if se, ok := ne.Err.(*os.SyscallError); ok {
						msg := strings.ToLower(se.Error())
						if strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer") {
							brokenPipe = true
						}
					}
				}

				httpRequest, _ := httputil.DumpRequest(c.Request, false)
				if brokenPipe {
					l.Error("http broken pipe",
						"error", err,
						"request", string(httpRequest),
					)
					if e, ok := err.(error); ok {
						c.Error(e)
					}
					c.Abort()
					return
				}

				l.Error("http recovery from panic",
					"error", err,
					"request", string(httpRequest),
				)
				if hub := sentry.CurrentHub(); hub.Client() != nil {
					hub.Recover(err)
				}

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": fmt.Sprintf("internal server error: %v", err),
				})
			}
		}()
		c.Next()
	}
}
