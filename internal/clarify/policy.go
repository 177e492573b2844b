// Package clarify decides which follow-up questions must be answered before
// a catalog search is worth running. Rules are data, not control flow: adding
// a product category means adding a SlotRule, not editing the policy.
package clarify

import "regexp"

// Slot is one piece of information a category needs before searching. Detect
// matches the accumulated message text; when it misses, Question is asked.
type Slot struct {
	Name     string
	Detect   *regexp.Regexp
	Question string
}

// SlotRule binds a category trigger to its required slots in priority order.
type SlotRule struct {
	Category string
	Trigger  *regexp.Regexp
	Slots    []Slot
}

// Policy evaluates merged message text against the rule table.
type Policy struct {
	rules        []SlotRule
	generic      []Slot
	maxQuestions int
}

// MaxQuestions is the most follow-ups one clarification round may ask.
const MaxQuestions = 2

// Shared slot vocabularies. Budget wants a number with a currency-ish
// suffix; usage and connectivity are closed word lists.
var (
	budgetSignal       = regexp.MustCompile(`예산|가격|원|만원|\d+\s*만|\d+\s*천|\d+\s*원`)
	usageSignal        = regexp.MustCompile(`(?i)게임|게이밍|FPS|사무|업무|문서|코딩|디자인|편집`)
	connectivitySignal = regexp.MustCompile(`(?i)무선|유선|블루투스|2\.4g|2\.4|동글`)
)

// NewPolicy builds a policy from a rule table. Generic slots apply when no
// category trigger matches.
func NewPolicy(rules []SlotRule, generic []Slot) *Policy {
	return &Policy{
		rules:        rules,
		generic:      generic,
		maxQuestions: MaxQuestions,
	}
}

// DefaultPolicy carries the built-in category rules.
func DefaultPolicy() *Policy {
	rules := []SlotRule{
		{
			Category: "mouse",
			Trigger:  regexp.MustCompile(`(?i)마우스|mouse`),
			Slots: []Slot{
				{
					Name:     "usage",
					Detect:   usageSignal,
					Question: "어떤 용도로 쓰실 마우스인가요? (예: 사무/코딩/게임(FPS)/디자인)",
				},
				{
					Name:     "budget",
					Detect:   budgetSignal,
					Question: "예산은 어느 정도로 생각하세요? (예: 5만원대 / 10만원 이하 / 20만원대)",
				},
				{
					Name:     "connectivity",
					Detect:   connectivitySignal,
					Question: "무선/유선 중 어떤 걸 선호하세요?",
				},
			},
		},
		{
			Category: "keyboard",
			Trigger:  regexp.MustCompile(`(?i)키보드|keyboard`),
			Slots: []Slot{
				{
					Name:     "usage",
					Detect:   usageSignal,
					Question: "어떤 용도로 쓰실 키보드인가요? (예: 사무/코딩/게임)",
				},
				{
					Name:     "budget",
					Detect:   budgetSignal,
					Question: "예산은 어느 정도로 생각하세요? (예: 5만원대 / 10만원 이하)",
				},
				{
					Name:     "connectivity",
					Detect:   connectivitySignal,
					Question: "무선/유선 중 어떤 걸 선호하세요?",
				},
			},
		},
	}

	generic := []Slot{
		{Name: "usage", Detect: usageSignal, Question: "주 용도는 무엇인가요?"},
		{Name: "budget", Detect: budgetSignal, Question: "예산 범위를 알려주세요."},
	}

	return NewPolicy(rules, generic)
}

// Evaluate returns at most MaxQuestions follow-up questions for the merged
// message text, in slot priority order. An empty result means the text
// carries enough signal to search.
func (p *Policy) Evaluate(merged string) []string {
	var questions []string

	matched := false
	for _, rule := range p.rules {
		if !rule.Trigger.MatchString(merged) {
			continue
		}
		matched = true
		for _, slot := range rule.Slots {
			if len(questions) >= p.maxQuestions {
				return questions
			}
			if !slot.Detect.MatchString(merged) {
				questions = append(questions, slot.Question)
			}
		}
		break
	}

	if !matched {
		for _, slot := range p.generic {
			if len(questions) >= p.maxQuestions {
				break
			}
			if !slot.Detect.MatchString(merged) {
				questions = append(questions, slot.Question)
			}
		}
	}

	return questions
}
