// Package routine turns skin-metric scores into a concrete morning and
// evening skincare plan.
package routine

import (
	"fmt"

	"github.com/lumen-skin/lumenkb/internal/domain"
)

// concernThreshold is the metric score (0-100) above which a metric
// becomes a named concern.
const concernThreshold = 60

// metricConcerns maps metric keys to the concern label shown to the user.
// Order fixes the concern ordering in the output.
var metricConcerns = []struct {
	metric  string
	concern string
}{
	{"acne_level", "breakouts"},
	{"dryness_level", "dryness"},
	{"moisture_level", "hydration"},
	{"pigmentation_level", "pigmentation"},
	{"dark_circle_level", "dark circles"},
}

// Step is one routine entry.
type Step struct {
	Step        string `json:"step"`
	ProductType string `json:"product_type"`
	Reason      string `json:"reason"`
	Icon        string `json:"icon"`
}

// Plan is a generated skincare routine.
type Plan struct {
	MorningRoutine   []Step   `json:"morning_routine"`
	EveningRoutine   []Step   `json:"evening_routine"`
	KeyConcerns      []string `json:"key_concerns"`
	OverallStrategy  string   `json:"overall_strategy"`
	ExpectedTimeline string   `json:"expected_timeline"`
	ImportantNotes   []string `json:"important_notes"`
}

// Request carries the latest analysis metrics a plan is built from.
type Request struct {
	UserID  string
	Metrics map[string]float64
	Budget  string
}

// Service generates routines.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Generate builds a plan from the latest analysis metrics.
func (s *Service) Generate(req Request) (Plan, error) {
	if req.UserID == "" || len(req.Metrics) == 0 {
		return Plan{}, fmt.Errorf("%w: user_id and latest analysis metrics are required", domain.ErrMalformedQuery)
	}
	budget := req.Budget
	if budget == "" {
		budget = "moderate"
	}

	concerns := inferConcerns(req.Metrics)
	return buildPlan(concerns, budget), nil
}

// inferConcerns names every metric above the threshold. A clear complexion
// still gets a maintenance concern so the plan is never empty.
func inferConcerns(metrics map[string]float64) []string {
	var concerns []string
	for _, mc := range metricConcerns {
		if metrics[mc.metric] >= concernThreshold {
			concerns = append(concerns, mc.concern)
		}
	}
	if len(concerns) == 0 {
		concerns = []string{"skin balance"}
	}
	return concerns
}

func buildPlan(concerns []string, budget string) Plan {
	morning := []Step{
		{Step: "Gentle cleanse", ProductType: "cleanser", Reason: "Removes overnight oil without stripping barrier.", Icon: "sparkles"},
		{Step: "Treatment serum", ProductType: "serum", Reason: "Targets your top concern with actives like niacinamide or azelaic acid.", Icon: "dropper"},
		{Step: "Moisturize + SPF", ProductType: "moisturizer", Reason: "Locks hydration and shields from UV.", Icon: "sun.max"},
	}
	evening := []Step{
		{Step: "Double cleanse", ProductType: "cleanser", Reason: "Breaks down sunscreen/makeup to prevent clogged pores.", Icon: "moon.stars"},
		{Step: "Targeted treatment", ProductType: "treatment", Reason: "Use retinol or exfoliating acids 2-3x weekly based on tolerance.", Icon: "flame"},
		{Step: "Barrier repair cream", ProductType: "moisturizer", Reason: "Seals in moisture overnight for recovery.", Icon: "shield"},
	}

	strategy := "Prioritize barrier repair while layering concern-specific actives slowly."
	if contains(concerns, "breakouts") {
		strategy = "Balance barrier-friendly hydration with consistent acne-fighting actives."
	} else if contains(concerns, "dryness") {
		strategy = "Stack humectants plus occlusives to restore moisture reservoir."
	}

	return Plan{
		MorningRoutine:   morning,
		EveningRoutine:   evening,
		KeyConcerns:      concerns,
		OverallStrategy:  strategy,
		ExpectedTimeline: "4-6 weeks",
		ImportantNotes: []string{
			"Patch test new products for 3 nights.",
			"Introduce actives gradually (every other night).",
			fmt.Sprintf("Stick with the plan for at least 4-6 weeks (%s budget).", budget),
		},
	}
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
