package legacy

import (
	"context"
	"time"

	"ai-memo-app/src/domain"
)

type sample struct {
	title, content, category string
	tags                     []string
	createdDaysAgo           int
	updatedDaysAgo           int
}

var samples = []sample{
	{
		title:          "프로젝트 회의 준비",
		content:        "월요일 킥오프 미팅 준비:\n\n- 범위 정의서 작성\n- 역할 분담\n- 일정 계획",
		category:       "work",
		tags:           []string{"회의", "프로젝트", "준비"},
		createdDaysAgo: 2, updatedDaysAgo: 2,
	},
	{
		title:          "React 18 새로운 기능 학습",
		content:        "Concurrent Features, Automatic Batching, Suspense 개선, useId, useDeferredValue 정리하기.",
		category:       "study",
		tags:           []string{"React", "학습", "개발"},
		createdDaysAgo: 5, updatedDaysAgo: 1,
	},
	{
		title:          "새로운 앱 아이디어: 습관 트래커",
		content:        "습관 등록, 일일 체크인, 진행 상황 시각화, 목표 알림.\n\n기술 스택: React Native + Supabase",
		category:       "idea",
		tags:           []string{"앱개발", "습관", "React Native"},
		createdDaysAgo: 7, updatedDaysAgo: 3,
	},
	{
		title:          "주말 여행 계획",
		content:        "토요일 한라산 등반, 일요일 우도 관광.\n\n준비물: 등산화, 카메라, 선크림",
		category:       "personal",
		tags:           []string{"여행", "제주도", "주말"},
		createdDaysAgo: 10, updatedDaysAgo: 8,
	},
	{
		title:          "독서 목록",
		content:        "클린 코드, 리팩토링 2판, 아토믹 해빗, 미드나잇 라이브러리",
		category:       "personal",
		tags:           []string{"독서", "책", "자기계발"},
		createdDaysAgo: 15, updatedDaysAgo: 15,
	},
	{
		title:          "성능 최적화 아이디어",
		content:        "이미지 최적화, 코드 스플리팅, 쿼리 최적화, API 응답 캐싱, Core Web Vitals 측정",
		category:       "idea",
		tags:           []string{"성능", "최적화", "웹개발"},
		createdDaysAgo: 20, updatedDaysAgo: 12,
	},
}

// SampleMemos builds the demo memo set relative to now, newest first
func SampleMemos(now time.Time) []domain.Memo {
	day := 24 * time.Hour
	memos := make([]domain.Memo, 0, len(samples))
	for i, s := range samples {
		memos = append(memos, domain.Memo{
			ID:        string(rune('1' + i)),
			Title:     s.title,
			Content:   s.content,
			Category:  s.category,
			Tags:      append([]string{}, s.tags...),
			CreatedAt: now.Add(-time.Duration(s.createdDaysAgo) * day),
			UpdatedAt: now.Add(-time.Duration(s.updatedDaysAgo) * day),
		})
	}
	return memos
}

// Seed stores the sample memos when the store is empty and reports whether it did
func (s *Store) Seed(ctx context.Context, now time.Time) (bool, error) {
	existing, err := s.GetMemos(ctx)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}
	if err := s.SaveMemos(ctx, SampleMemos(now)); err != nil {
		return false, err
	}
	s.logger.WithField("count", len(samples)).Info("サンプルデータを投入しました")
	return true, nil
}

// ResetToSample clears the store and seeds it again
func (s *Store) ResetToSample(ctx context.Context, now time.Time) error {
	if err := s.ClearMemos(ctx); err != nil {
		return err
	}
	_, err := s.Seed(ctx, now)
	return err
}
