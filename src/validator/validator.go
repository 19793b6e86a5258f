package validator

import (
	"fmt"
	"strings"

	"ai-memo-app/src/domain"

	"github.com/go-playground/validator/v10"
)

// CustomValidator は拡張バリデーション機能を提供
type CustomValidator struct {
	validator *validator.Validate
}

// ValidationError はバリデーションエラーの詳細情報
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// ValidationErrors は複数のバリデーションエラー
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (ve ValidationErrors) Error() string {
	if len(ve.Errors) == 1 {
		return ve.Errors[0].Message
	}
	return fmt.Sprintf("validation failed: %d errors", len(ve.Errors))
}

// Unwrap lets callers test for domain.ErrValidation
func (ve ValidationErrors) Unwrap() error {
	return domain.ErrValidation
}

// NewCustomValidator creates a new custom validator instance
func NewCustomValidator() *CustomValidator {
	v := validator.New()
	cv := &CustomValidator{validator: v}

	// カスタムバリデーションルールを登録
	_ = v.RegisterValidation("not_blank", validateNotBlank)

	return cv
}

// Validate validates a struct and returns detailed error information
func (cv *CustomValidator) Validate(s interface{}) error {
	err := cv.validator.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	result := ValidationErrors{}
	for _, fe := range fieldErrors {
		result.Errors = append(result.Errors, ValidationError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Value:   fe.Value(),
			Message: generateErrorMessage(fe),
		})
	}
	return result
}

// NormalizeTags trims tags and drops blank or duplicate entries, keeping order
func NormalizeTags(tags []string) []string {
	result := []string{}
	for _, tag := range tags {
		result = domain.AddTag(result, tag)
	}
	return result
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// generateErrorMessage generates user-friendly error messages
func generateErrorMessage(err validator.FieldError) string {
	field := err.Field()

	switch err.Tag() {
	case "required", "not_blank":
		return fmt.Sprintf("%s は必須項目です", field)
	case "max":
		return fmt.Sprintf("%s は %s 文字以下で入力してください", field, err.Param())
	default:
		return fmt.Sprintf("%s が無効です (値: %v)", field, err.Value())
	}
}
