package validator_test

import (
	"errors"
	"strings"
	"testing"

	"ai-memo-app/src/domain"
	"ai-memo-app/src/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoDTO struct {
	Title    string  `validate:"required,not_blank,max=200"`
	Category string  `validate:"required,not_blank"`
	Summary  *string `validate:"omitempty,not_blank"`
}

func TestCustomValidator_Validate(t *testing.T) {
	v := validator.NewCustomValidator()

	t.Run("有効なDTO", func(t *testing.T) {
		assert.NoError(t, v.Validate(&memoDTO{Title: "회의록", Category: "work"}))
	})

	t.Run("未知のカテゴリも受け付ける", func(t *testing.T) {
		assert.NoError(t, v.Validate(&memoDTO{Title: "회의록", Category: "hobby"}))
	})

	tests := []struct {
		name    string
		dto     memoDTO
		wantTag string
	}{
		{"空白のみのタイトル", memoDTO{Title: "   ", Category: "work"}, "not_blank"},
		{"空白のみのカテゴリ", memoDTO{Title: "t", Category: " "}, "not_blank"},
		{"カテゴリなし", memoDTO{Title: "t"}, "required"},
		{"長すぎるタイトル", memoDTO{Title: strings.Repeat("a", 201), Category: "idea"}, "max"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.dto)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrValidation))

			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs.Errors, 1)
			assert.Equal(t, tt.wantTag, verrs.Errors[0].Tag)
			assert.NotEmpty(t, verrs.Errors[0].Message)
		})
	}

	t.Run("ポインタは省略可能", func(t *testing.T) {
		assert.NoError(t, v.Validate(&memoDTO{Title: "t", Category: "idea"}))

		blank := " "
		assert.Error(t, v.Validate(&memoDTO{Title: "t", Category: "idea", Summary: &blank}))
	})
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"go", "react"}, validator.NormalizeTags([]string{" go ", "", "react", "go"}))
	assert.Equal(t, []string{}, validator.NormalizeTags(nil))
}
