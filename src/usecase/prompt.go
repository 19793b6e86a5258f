package usecase

import "fmt"

const untitled = "(제목 없음)"

func displayTitle(title string) string {
	if title == "" {
		return untitled
	}
	return title
}

func summaryPrompt(title, content string) string {
	return fmt.Sprintf(`아래 메모의 핵심 내용과 주요 포인트를 간결하게 요약해 주세요.

제목: %s

내용:
%s

요약:`, displayTitle(title), content)
}

// tagPrompt 3〜5個のタグをカンマ区切りで返すよう指示
func tagPrompt(title, content string) string {
	return fmt.Sprintf(`아래 메모를 분석해서 관련 태그를 3~5개 추천해 주세요. 태그는 짧은 핵심 키워드로, 쉼표로 구분해서 태그만 답해 주세요.

제목: %s

내용:
%s

태그:`, displayTitle(title), content)
}
