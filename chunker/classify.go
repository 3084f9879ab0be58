package chunker

import (
	"strings"

	"rag/types"
)

// typeRules is an ordered rule table; the first group with a matching cue
// wins. Cues are matched against the lowercased content, so Latin cues are
// effectively case-insensitive.
var typeRules = []struct {
	cues []string
	kind types.ChunkType
}{
	{[]string{"란?", "정의", "이란"}, types.ChunkDefinition},
	{[]string{"vs", "비교", "차이"}, types.ChunkComparison},
	{[]string{"체크리스트", "□", "✅"}, types.ChunkChecklist},
	{[]string{"예시", "사례", "예를 들"}, types.ChunkExample},
	{[]string{"방법", "절차", "step", "단계"}, types.ChunkGuide},
	{[]string{"패턴", "pattern"}, types.ChunkPattern},
	{[]string{"주의", "안티패턴", "하지 마", "금지"}, types.ChunkWarning},
}

// tagVocabulary maps a tag to the keyword variants that trigger it.
// Keywords match as plain substrings, case-sensitive, so the Korean corpus
// terms stay exact. The slice keeps tag extraction order deterministic.
var tagVocabulary = []struct {
	tag      string
	keywords []string
}{
	{"MSA", []string{"MSA", "마이크로서비스", "Microservice"}},
	{"모놀리식", []string{"모놀리식", "monolithic", "모놀리스"}},
	{"API-Gateway", []string{"API Gateway", "gateway", "게이트웨이"}},
	{"DDD", []string{"DDD", "Domain-Driven", "도메인 주도", "도메인주도"}},
	{"Bounded-Context", []string{"Bounded Context", "바운디드 컨텍스트", "경계 컨텍스트", "바운디드컨텍스트"}},
	{"REST", []string{"REST", "RESTful"}},
	{"gRPC", []string{"gRPC"}},
	{"Event", []string{"이벤트", "event", "Event-Driven", "이벤트 기반"}},
	{"Kafka", []string{"Kafka", "카프카"}},
	{"CQRS", []string{"CQRS"}},
	{"Saga", []string{"Saga", "사가"}},
	{"Circuit-Breaker", []string{"Circuit Breaker", "서킷 브레이커", "서킷브레이커"}},
	{"서비스분리", []string{"서비스 분리", "분리 기준", "분리 방법", "서비스분리"}},
	{"데이터베이스", []string{"데이터베이스", "Database", "DB", "데이터 분리"}},
	{"통신", []string{"통신", "Communication", "동기", "비동기"}},
	{"확장성", []string{"확장성", "Scalability", "스케일"}},
	{"배포", []string{"배포", "Deploy", "CI/CD", "DevOps"}},
}

// Classify determines the chunk type from lexical cues in the content.
func Classify(content string) types.ChunkType {
	lower := strings.ToLower(content)

	for _, rule := range typeRules {
		for _, cue := range rule.cues {
			if strings.Contains(lower, cue) {
				return rule.kind
			}
		}
	}
	return types.ChunkGeneral
}

// ExtractTags collects every vocabulary tag whose keyword variants appear in
// the content. Each tag is included at most once, and an untagged chunk gets
// an empty slice rather than nil so it serializes as [].
func ExtractTags(content string) []string {
	tags := []string{}
	for _, entry := range tagVocabulary {
		for _, keyword := range entry.keywords {
			if strings.Contains(content, keyword) {
				tags = append(tags, entry.tag)
				break
			}
		}
	}
	return tags
}
