package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-hall-booking/internal/domain/slot"
)

// CustomValidator はEcho用のカスタムバリデーター
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator は新しいバリデーターを作成する。
// 日付 (YYYY-MM-DD) と時刻 (HH:MM[:SS]) の形式検証用に calendar_date と clock_time タグを登録する
func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterValidation("calendar_date", func(fl validator.FieldLevel) bool {
		_, err := slot.ParseDate(fl.Field().String())
		return err == nil
	})
	v.RegisterValidation("clock_time", func(fl validator.FieldLevel) bool {
		_, err := slot.ParseTimeOfDay(fl.Field().String())
		return err == nil
	})
	return &CustomValidator{validator: v}
}

// Validate はリクエストのバリデーションを実行する
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
