package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-hall-booking/internal/domain/reservation"
	"github.com/sanosuguru/go-hall-booking/internal/pkg/logger"
)

const actorContextKey = "actor"

// JWTAuth は Bearer トークン（HS256）を検証し、sub と role クレームから操作主体をコンテキストに設定する
func JWTAuth(secret, adminRole string) echo.MiddlewareFunc {
	keyFunc := func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "認証トークンが必要です")
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims := jwt.MapClaims{}
			tok, err := parser.ParseWithClaims(raw, claims, keyFunc)
			if err != nil || !tok.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "認証トークンが無効です")
			}
			sub, err := claims.GetSubject()
			if err != nil || sub == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "認証トークンに利用者IDがありません")
			}
			role, _ := claims["role"].(string)

			actor := reservation.Actor{ID: sub, Admin: role == adminRole}
			SetActor(c, actor)

			// 以降のログに操作主体を含める
			req := c.Request()
			l := logger.FromContext(req.Context()).With(zap.String("actor_id", actor.ID))
			c.SetRequest(req.WithContext(logger.WithContext(req.Context(), l)))

			return next(c)
		}
	}
}

// RequireAdmin は管理者以外を 403 で拒否する。JWTAuth の後に使う
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "認証トークンが必要です")
			}
			if !actor.Admin {
				return echo.NewHTTPError(http.StatusForbidden, "管理者権限が必要です")
			}
			return next(c)
		}
	}
}

// SetActor は認証済みの操作主体をリクエストに設定する
func SetActor(c echo.Context, actor reservation.Actor) {
	c.Set(actorContextKey, actor)
}

// ActorFrom は JWTAuth が設定した操作主体を返す
func ActorFrom(c echo.Context) (reservation.Actor, bool) {
	actor, ok := c.Get(actorContextKey).(reservation.Actor)
	return actor, ok
}

// SignToken は sub と role を持つ HS256 トークンを発行する。運用時のトークン発行は外部の認証基盤が行う
func SignToken(secret, subject, role string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("subject is required")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
