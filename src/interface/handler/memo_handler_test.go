package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ai-memo-app/src/domain"
	"ai-memo-app/src/interface/handler"
	"ai-memo-app/src/metrics"
	"ai-memo-app/src/usecase"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockMemoUsecase は MemoUsecase のモック実装
type MockMemoUsecase struct {
	mock.Mock
}

func (m *MockMemoUsecase) FetchMemos(ctx context.Context) ([]domain.Memo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Memo), args.Error(1)
}

func (m *MockMemoUsecase) CreateMemo(ctx context.Context, input domain.MemoInput) (*domain.Memo, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Memo), args.Error(1)
}

func (m *MockMemoUsecase) GetMemo(ctx context.Context, id string) (*domain.Memo, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Memo), args.Error(1)
}

func (m *MockMemoUsecase) UpdateMemo(ctx context.Context, id string, patch domain.MemoPatch) (*domain.Memo, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Memo), args.Error(1)
}

func (m *MockMemoUsecase) UpdateSummary(ctx context.Context, id string, summary string) (*domain.Memo, error) {
	args := m.Called(ctx, id, summary)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Memo), args.Error(1)
}

func (m *MockMemoUsecase) DeleteMemo(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMemoUsecase) CountMemos(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockMemoUsecase) GenerateTags(ctx context.Context, title, content string) ([]string, error) {
	args := m.Called(ctx, title, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockMemoUsecase) SummarizeMemo(ctx context.Context, id, title, content string) (*usecase.SummaryResult, error) {
	args := m.Called(ctx, id, title, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.SummaryResult), args.Error(1)
}

type recordingPublisher struct {
	paths []string
}

func (p *recordingPublisher) Invalidate(path string) {
	p.paths = append(p.paths, path)
}

var fixedTime = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func sampleMemo(id string) *domain.Memo {
	return &domain.Memo{
		ID:        id,
		Title:     "회의록",
		Content:   "분기 계획",
		Category:  "work",
		Tags:      []string{"meeting"},
		CreatedAt: fixedTime,
		UpdatedAt: fixedTime,
	}
}

func setupTestRouter(mockUsecase *MockMemoUsecase, pub *recordingPublisher, collector *metrics.Collector) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	memoHandler := handler.NewMemoHandler(mockUsecase, pub, collector, logger)

	api := r.Group("/api/memos")
	{
		api.GET("", memoHandler.ListMemos)
		api.POST("", memoHandler.CreateMemo)
		api.POST("/summary", memoHandler.SummarizeMemo)
		api.POST("/tags", memoHandler.GenerateTags)
		api.GET("/:id", memoHandler.GetMemo)
		api.PATCH("/:id", memoHandler.UpdateMemo)
		api.DELETE("/:id", memoHandler.DeleteMemo)
	}
	return r
}

func doRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewBuffer(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) handler.ErrorResponseDTO {
	t.Helper()
	var resp handler.ErrorResponseDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestMemoHandler_ListMemos(t *testing.T) {
	t.Run("一覧を返す", func(t *testing.T) {
		m := new(MockMemoUsecase)
		m.On("FetchMemos", mock.Anything).Return([]domain.Memo{*sampleMemo("a"), *sampleMemo("b")}, nil)
		r := setupTestRouter(m, &recordingPublisher{}, nil)

		w := doRequest(r, http.MethodGet, "/api/memos", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var memos []handler.MemoResponseDTO
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &memos))
		assert.Len(t, memos, 2)
		assert.Equal(t, "a", memos[0].ID)
		assert.Contains(t, w.Body.String(), `"createdAt"`)
	})

	t.Run("ストレージエラーは500", func(t *testing.T) {
		m := new(MockMemoUsecase)
		m.On("FetchMemos", mock.Anything).Return(nil, domain.ErrStorage)
		r := setupTestRouter(m, &recordingPublisher{}, nil)

		w := doRequest(r, http.MethodGet, "/api/memos", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
		assert.Equal(t, "Failed to get memos", decodeError(t, w).Error)
	})
}

func TestMemoHandler_CreateMemo(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		mockSetup      func(*MockMemoUsecase)
		expectedStatus int
		invalidated    bool
	}{
		{
			name:        "successful creation",
			requestBody: map[string]interface{}{"title": "회의록", "content": "분기 계획", "category": "work", "tags": []string{" meeting ", "meeting"}},
			mockSetup: func(m *MockMemoUsecase) {
				m.On("CreateMemo", mock.Anything, domain.MemoInput{Title: "회의록", Content: "분기 계획", Category: "work", Tags: []string{"meeting"}}).
					Return(sampleMemo("new"), nil)
			},
			expectedStatus: http.StatusCreated,
			invalidated:    true,
		},
		{
			name:           "missing title",
			requestBody:    map[string]interface{}{"content": "c", "category": "work"},
			mockSetup:      func(m *MockMemoUsecase) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing category",
			requestBody:    map[string]interface{}{"title": "t", "content": "c"},
			mockSetup:      func(m *MockMemoUsecase) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "unknown category and free-form tags are stored as given",
			requestBody: map[string]interface{}{"title": strings.Repeat("t", 250), "content": "c", "category": "hobby", "tags": []string{"a,b"}},
			mockSetup: func(m *MockMemoUsecase) {
				m.On("CreateMemo", mock.Anything, domain.MemoInput{Title: strings.Repeat("t", 250), Content: "c", Category: "hobby", Tags: []string{"a,b"}}).
					Return(sampleMemo("new"), nil)
			},
			expectedStatus: http.StatusCreated,
			invalidated:    true,
		},
		{
			name:           "blank category",
			requestBody:    map[string]interface{}{"title": "t", "content": "c", "category": "  "},
			mockSetup:      func(m *MockMemoUsecase) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed JSON",
			requestBody:    `{"title":`,
			mockSetup:      func(m *MockMemoUsecase) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "storage failure",
			requestBody: map[string]interface{}{"title": "t", "content": "c", "category": "idea"},
			mockSetup: func(m *MockMemoUsecase) {
				m.On("CreateMemo", mock.Anything, mock.Anything).Return(nil, domain.ErrStorage)
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockMemoUsecase)
			tt.mockSetup(m)
			pub := &recordingPublisher{}
			r := setupTestRouter(m, pub, nil)

			w := doRequest(r, http.MethodPost, "/api/memos", tt.requestBody)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.invalidated {
				assert.Equal(t, []string{"/"}, pub.paths)
			} else {
				assert.Empty(t, pub.paths)
			}
			m.AssertExpectations(t)
		})
	}
}

func TestMemoHandler_GetMemo(t *testing.T) {
	m := new(MockMemoUsecase)
	m.On("GetMemo", mock.Anything, "a").Return(sampleMemo("a"), nil)
	m.On("GetMemo", mock.Anything, "missing").Return(nil, domain.ErrMemoNotFound)
	r := setupTestRouter(m, &recordingPublisher{}, nil)

	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/api/memos/a", nil).Code)
	assert.Equal(t, http.StatusNotFound, doRequest(r, http.MethodGet, "/api/memos/missing", nil).Code)
}

func TestMemoHandler_UpdateMemo(t *testing.T) {
	t.Run("指定したフィールドのみ渡す", func(t *testing.T) {
		m := new(MockMemoUsecase)
		m.On("UpdateMemo", mock.Anything, "a", mock.MatchedBy(func(p domain.MemoPatch) bool {
			return p.Title != nil && *p.Title == "new" && p.Content == nil && p.Category == nil && p.Tags == nil
		})).Return(sampleMemo("a"), nil)
		pub := &recordingPublisher{}
		r := setupTestRouter(m, pub, nil)

		w := doRequest(r, http.MethodPatch, "/api/memos/a", map[string]interface{}{"title": "new"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"/"}, pub.paths)
		m.AssertExpectations(t)
	})

	t.Run("空のタグ配列はタグを消す", func(t *testing.T) {
		m := new(MockMemoUsecase)
		m.On("UpdateMemo", mock.Anything, "a", mock.MatchedBy(func(p domain.MemoPatch) bool {
			return p.Tags != nil && len(p.Tags) == 0
		})).Return(sampleMemo("a"), nil)
		r := setupTestRouter(m, &recordingPublisher{}, nil)

		w := doRequest(r, http.MethodPatch, "/api/memos/a", map[string]interface{}{"tags": []string{}})
		assert.Equal(t, http.StatusOK, w.Code)
		m.AssertExpectations(t)
	})

	t.Run("存在しないIDは404", func(t *testing.T) {
		m := new(MockMemoUsecase)
		m.On("UpdateMemo", mock.Anything, "missing", mock.Anything).Return(nil, domain.ErrMemoNotFound)
		pub := &recordingPublisher{}
		r := setupTestRouter(m, pub, nil)

		w := doRequest(r, http.MethodPatch, "/api/memos/missing", map[string]interface{}{"title": "x"})

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Empty(t, pub.paths)
	})

	t.Run("空白のカテゴリは400", func(t *testing.T) {
		m := new(MockMemoUsecase)
		r := setupTestRouter(m, &recordingPublisher{}, nil)

		w := doRequest(r, http.MethodPatch, "/api/memos/a", map[string]interface{}{"category": " "})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		m.AssertNotCalled(t, "UpdateMemo", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestMemoHandler_DeleteMemo(t *testing.T) {
	m := new(MockMemoUsecase)
	m.On("DeleteMemo", mock.Anything, "a").Return(nil)
	m.On("DeleteMemo", mock.Anything, "missing").Return(domain.ErrMemoNotFound)
	pub := &recordingPublisher{}
	collector := metrics.NewCollector()
	r := setupTestRouter(m, pub, collector)

	w := doRequest(r, http.MethodDelete, "/api/memos/a", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	w = doRequest(r, http.MethodDelete, "/api/memos/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, []string{"/"}, pub.paths)
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.MemoOps.WithLabelValues("delete", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.MemoOps.WithLabelValues("delete", "error")))
}

func TestMemoHandler_SummarizeMemo(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"success", nil, http.StatusOK},
		{"missing content", domain.ErrValidation, http.StatusBadRequest},
		{"memo not found", domain.ErrMemoNotFound, http.StatusNotFound},
		{"provider unavailable", domain.ErrProviderUnavailable, http.StatusInternalServerError},
		{"provider failure", errors.New("upstream 503"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockMemoUsecase)
			call := m.On("SummarizeMemo", mock.Anything, "a", "회의록", "분기 계획")
			if tt.err != nil {
				call.Return(nil, tt.err)
			} else {
				summary := "요약"
				memo := sampleMemo("a")
				memo.Summary = &summary
				call.Return(&usecase.SummaryResult{Summary: summary, Memo: memo}, nil)
			}
			r := setupTestRouter(m, &recordingPublisher{}, nil)

			w := doRequest(r, http.MethodPost, "/api/memos/summary", map[string]string{"id": "a", "title": "회의록", "content": "분기 계획"})

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.err == nil {
				var resp handler.SummaryResponseDTO
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, "요약", resp.Summary)
				require.NotNil(t, resp.Memo.Summary)
				assert.Equal(t, "요약", *resp.Memo.Summary)
			} else {
				assert.NotEmpty(t, decodeError(t, w).Error)
			}
		})
	}
}

func TestMemoHandler_ServerErrorHidesDetail(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantMessage string
	}{
		{"上流の接続エラー", fmt.Errorf("gemini: Post \"https://example.test/v1?key=SECRET-KEY\": dial tcp: refused"), ""},
		{"プロバイダー未設定", fmt.Errorf("summarize: %w", domain.ErrProviderUnavailable), domain.ErrProviderUnavailable.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockMemoUsecase)
			m.On("SummarizeMemo", mock.Anything, "a", "t", "c").Return(nil, tt.err)
			r := setupTestRouter(m, &recordingPublisher{}, nil)

			w := doRequest(r, http.MethodPost, "/api/memos/summary", map[string]string{"id": "a", "title": "t", "content": "c"})

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.NotContains(t, w.Body.String(), "SECRET-KEY")
			resp := decodeError(t, w)
			assert.Equal(t, "Failed to summarize memo", resp.Error)
			assert.Equal(t, tt.wantMessage, resp.Message)
		})
	}
}

func TestMemoHandler_GenerateTags(t *testing.T) {
	t.Run("タグを返す", func(t *testing.T) {
		m := new(MockMemoUsecase)
		m.On("GenerateTags", mock.Anything, "t", "c").Return([]string{"go", "web"}, nil)
		r := setupTestRouter(m, &recordingPublisher{}, nil)

		w := doRequest(r, http.MethodPost, "/api/memos/tags", map[string]string{"title": "t", "content": "c"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"tags":["go","web"]}`, w.Body.String())
	})

	t.Run("空の応答は500", func(t *testing.T) {
		m := new(MockMemoUsecase)
		m.On("GenerateTags", mock.Anything, "t", "c").Return(nil, domain.ErrProviderEmptyResponse)
		r := setupTestRouter(m, &recordingPublisher{}, nil)

		w := doRequest(r, http.MethodPost, "/api/memos/tags", map[string]string{"title": "t", "content": "c"})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestMemoHandler_UpdateMemoSummaryOnly(t *testing.T) {
	m := new(MockMemoUsecase)
	summary := "짧은 요약"
	updated := sampleMemo("a")
	updated.Summary = &summary
	m.On("UpdateSummary", mock.Anything, "a", summary).Return(updated, nil)
	r := setupTestRouter(m, &recordingPublisher{}, nil)

	w := doRequest(r, http.MethodPatch, "/api/memos/a", map[string]string{"summary": summary})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), summary)
	m.AssertNotCalled(t, "UpdateMemo", mock.Anything, mock.Anything, mock.Anything)
	m.AssertExpectations(t)
}
