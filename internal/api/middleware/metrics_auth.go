package middleware

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-hall-booking/internal/pkg/logger"
)

const metricsRealm = "hall-booking metrics"

// MetricsCredentials は /metrics の Basic 認証に使う資格情報
type MetricsCredentials struct {
	User     string
	Password string
}

// Enabled はユーザーとパスワードの両方が設定されているかを返す
func (c MetricsCredentials) Enabled() bool {
	return c.User != "" && c.Password != ""
}

// MetricsAuth は /metrics を Basic 認証で保護する。資格情報が未設定なら素通しする
func MetricsAuth(creds MetricsCredentials) echo.MiddlewareFunc {
	if !creds.Enabled() {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	user, pass := []byte(creds.User), []byte(creds.Password)
	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Realm: metricsRealm,
		Validator: func(username, password string, c echo.Context) (bool, error) {
			// 両方を必ず比較して所要時間を揃える
			userOK := subtle.ConstantTimeCompare([]byte(username), user) == 1
			passOK := subtle.ConstantTimeCompare([]byte(password), pass) == 1
			if userOK && passOK {
				return true, nil
			}
			logger.FromContext(c.Request().Context()).Warn("メトリクスの認証に失敗しました",
				zap.String("remote_ip", c.RealIP()))
			return false, nil
		},
	})
}
