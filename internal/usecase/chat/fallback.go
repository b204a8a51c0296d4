package chat

import (
	"strings"

	"github.com/lumen-skin/lumenkb/internal/domain/condition"
)

// Canned answers served when the chat model is unreachable. Keyed by
// canonical condition and question type so the user still gets a relevant
// answer instead of an apology.

type questionType string

const (
	questionGeneral    questionType = "general"
	questionIngredient questionType = "ingredient"
	questionRoutine    questionType = "routine"
	questionTimeline   questionType = "timeline"
	questionPrevention questionType = "prevention"
)

var questionMarkers = map[questionType][]string{
	questionIngredient: {"ingredient", "product", "what should i use", "what to use", "recommend"},
	questionRoutine:    {"routine", "regimen", "steps", "order", "how do i"},
	questionTimeline:   {"how long", "when", "timeline", "results", "take to"},
	questionPrevention: {"prevent", "avoid", "stop"},
}

// classifyQuestion picks the first matching question type in a fixed order
// so a message like "how long should my routine take" resolves consistently.
func classifyQuestion(message string) questionType {
	m := strings.ToLower(message)
	for _, qt := range []questionType{questionIngredient, questionRoutine, questionTimeline, questionPrevention} {
		for _, marker := range questionMarkers[qt] {
			if strings.Contains(m, marker) {
				return qt
			}
		}
	}
	return questionGeneral
}

var fallbackAnswers = map[condition.Label]map[questionType]string{
	"acne": {
		questionIngredient: "Based on your analysis showing acne, the most effective ingredients are salicylic acid (1-2%) for unclogging pores, benzoyl peroxide (2.5-5%) for killing bacteria, and niacinamide (4-5%) to reduce inflammation. Look for gentle, non-comedogenic formulations. For stubborn hormonal acne, a dermatologist can prescribe spironolactone or tretinoin.",
		questionRoutine:    "For your acne, an effective routine: morning - gentle cleanser, niacinamide serum, oil-free moisturizer, SPF 30+. Evening - double cleanse if wearing makeup, salicylic acid treatment, spot treatment on active breakouts, lightweight moisturizer. Consistency is key - stick with this for 8-12 weeks.",
		questionTimeline:   "With consistent treatment you can expect initial improvement in 4-6 weeks and significant clearing in 8-12 weeks. Hormonal acne can be cyclical, so track progress weekly. If nothing changes after 8 weeks, consider a dermatologist for prescription options.",
		questionPrevention: "To prevent acne flare-ups: keep cleansing gentle (don't over-wash), use non-comedogenic products only, change pillowcases twice a week, avoid touching your face, manage stress, and stay hydrated. Prevention is about barrier support and consistent actives.",
		questionGeneral:    "Your analysis detected acne. The best approach combines gentle cleansing, targeted actives (salicylic acid, benzoyl peroxide, or niacinamide), oil-free moisturizer, and daily SPF. Avoid over-washing, which triggers more oil production. Most people see improvement in 8-12 weeks of consistent treatment.",
	},
	"dark_circles": {
		questionIngredient: "For your dark circles, the most effective ingredients are caffeine (3-5%) to constrict blood vessels and reduce puffiness, vitamin K to improve circulation, and vitamin C to brighten. This area has delicate skin, so choose gentle eye creams; if you use retinol here keep it at low concentrations (0.01-0.025%).",
		questionRoutine:    "For dark circles: morning - gently pat caffeine eye cream onto damp skin, apply vitamin C serum, lightweight eye moisturizer, SPF. Evening - remove makeup gently, apply vitamin K or retinol eye cream, finish with a hydrating eye cream. Cold compresses for 5-10 minutes in the morning reduce puffiness.",
		questionTimeline:   "Topical treatments for dark circles typically show results in 6-8 weeks of consistent use. Caffeine gives temporary improvement within hours; vitamin C and K need 8-12 weeks for visible brightening. If your dark circles are genetic, topicals help but won't fully eliminate them.",
		questionGeneral:    "Your scan detected dark circles. Causes include genetics, lack of sleep, dehydration, and aging. Use eye creams with caffeine, vitamin K, and vitamin C, get 7-8 hours of sleep, stay hydrated, and always wear SPF to prevent worsening. Results take 6-8 weeks of consistent use.",
	},
	"wrinkles": {
		questionIngredient: "For the wrinkles detected in your analysis, retinol is the gold standard - it boosts collagen and increases cell turnover. Start with 0.25% twice weekly, building to nightly. Also effective: peptides, vitamin C, niacinamide, and hyaluronic acid. Combine with daily SPF 30+, the single most important anti-aging step.",
		questionRoutine:    "Anti-aging routine: morning - gentle cleanser, vitamin C serum, eye cream with peptides, moisturizer with hyaluronic acid, SPF 30-50. Evening - cleanse, retinol serum (start twice weekly), peptide moisturizer, an occlusive like squalane to seal. Introduce retinol slowly to avoid irritation.",
		questionTimeline:   "Retinol shows initial results in 4-6 weeks (smoother texture) and visible line reduction in 12-16 weeks. Peptides work faster (4-8 weeks) but are less dramatic. Most anti-aging actives need 3-6 months of consistent use for best results - patience is essential.",
		questionGeneral:    "Your analysis detected fine lines and wrinkles. Retinol is the proven gold standard: start at 0.25-0.5% two or three nights weekly and increase gradually. Pair it with peptides, vitamin C, and hyaluronic acid, and wear SPF 30+ daily to prevent further aging. Expect visible improvement in 12-16 weeks.",
	},
	"dry_skin": {
		questionIngredient: "For your dry skin, layer these: hyaluronic acid (draws water in), ceramides (repair the barrier), glycerin (locks moisture), niacinamide (strengthens the barrier), and squalane or oils to seal everything. Avoid harsh cleansers and alcohol-based products, and apply on damp skin for better penetration.",
		questionRoutine:    "For dry skin: morning - cream cleanser (not foam), hyaluronic acid serum on damp skin, niacinamide serum, rich moisturizer with ceramides, SPF. Evening - oil cleanser, hyaluronic acid, repair serum, thick night cream, facial oil to seal. The key is layering hydrators while skin is still damp.",
		questionGeneral:    "Your analysis detected dry, dehydrated skin. Focus on hyaluronic acid, ceramides, and glycerin; apply products within 60 seconds of washing while skin is damp. Use a humidifier in dry climates and avoid harsh cleansers and hot water. Results are typically visible within 2-4 weeks.",
	},
}

var genericFallbacks = map[questionType]string{
	questionIngredient: "Based on your analysis, I recommend consulting a dermatologist for product recommendations tailored to your skin. In the meantime, keep a gentle routine: a cleanser suited to your skin type, a targeted treatment, moisturizer, and daily SPF 30+.",
	questionRoutine:    "A solid base routine: morning - gentle cleanser, treatment serum, moisturizer, SPF. Evening - cleanser, targeted treatment, night moisturizer. Introduce new products one at a time, waiting 2-4 weeks between additions to see what works.",
	questionGeneral:    "For the best results I recommend consulting a dermatologist who can build a personalized treatment plan. In the meantime, maintain a gentle skincare routine with daily SPF protection.",
}

// noAnalysisFallback is used when the model is down and no analysis exists.
const noAnalysisFallback = "I'm here to help with skincare questions! For personalized advice, try taking a skin scan first so I can give you specific recommendations based on your unique skin condition."

// smartFallback picks a canned answer for the user's condition and question
// type. Unknown conditions get a generic answer rather than nothing.
func smartFallback(message string, label condition.Label) string {
	qt := classifyQuestion(message)

	if answers, ok := fallbackAnswers[condition.Canonical(string(label))]; ok {
		if answer, ok := answers[qt]; ok {
			return answer
		}
		return answers[questionGeneral]
	}

	if answer, ok := genericFallbacks[qt]; ok {
		return answer
	}
	return genericFallbacks[questionGeneral]
}
