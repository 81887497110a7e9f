package domain

// VariantID identifies one of the preconfigured assistant personalities.
type VariantID string

const (
	VariantGeneral  VariantID = "general"
	VariantBusiness VariantID = "business"
	VariantSecurity VariantID = "security"
	VariantSupport  VariantID = "support"
)

// QuizQuestion is a single fixed question with its answer options.
type QuizQuestion struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// QuizContent holds the fixed question flow for a variant, plus the
// deterministic answer-to-recommendation mapping. The mapping is domain
// content, not logic: unknown answers fall back to Fallback.
type QuizContent struct {
	Questions       []QuizQuestion
	Recommendations map[string]string
	Fallback        string
}

// VariantConfig parameterizes the assistant engine for one widget variant.
type VariantConfig struct {
	ID                VariantID
	DomainTag         string // context tag sent to the completion service
	WelcomeText       string
	ReplyCategory     Category // category attached to model replies, empty = none
	AllowedCategories []Category
	SeverityEnabled   bool

	QuizEnabled     bool
	FeedbackEnabled bool
	VoiceEnabled    bool

	QuizTriggers     []string
	FeedbackTriggers []string
	Quiz             QuizContent
}

// AllowsCategory reports whether the variant permits the given category tag.
func (c VariantConfig) AllowsCategory(cat Category) bool {
	if cat == "" {
		return true
	}
	for _, allowed := range c.AllowedCategories {
		if allowed == cat {
			return true
		}
	}
	return false
}

var variants = map[VariantID]VariantConfig{
	VariantGeneral: {
		ID:            VariantGeneral,
		DomainTag:     "general",
		WelcomeText:   "Hi! I'm Ava, your Avelora assistant. Ask me anything about the platform, or type \"quiz\" and I'll help you find the right plan.",
		ReplyCategory: "",
		AllowedCategories: []Category{
			CategoryRecommendation, CategoryQuiz, CategoryFeedback,
			CategoryReward, CategoryInsight,
		},
		QuizEnabled:      true,
		FeedbackEnabled:  true,
		VoiceEnabled:     true,
		QuizTriggers:     []string{"quiz", "survey", "which plan"},
		FeedbackTriggers: []string{"feedback", "rate you"},
		Quiz: QuizContent{
			Questions: []QuizQuestion{
				{
					ID:      "goal",
					Prompt:  "What brings you to Avelora today?",
					Options: []string{"Just exploring", "Launching a project", "Scaling my team"},
				},
			},
			Recommendations: map[string]string{
				"just exploring":      "The free Starter plan is the best way to look around — no card required.",
				"launching a project": "The Pro plan fits new projects best: unlimited workspaces and priority support.",
				"scaling my team":     "Enterprise gives you SSO, audit logs and a dedicated success manager — ideal for growing teams.",
			},
			Fallback: "The Pro plan is our most popular choice — a good place to start.",
		},
	},
	VariantBusiness: {
		ID:            VariantBusiness,
		DomainTag:     "business",
		WelcomeText:   "Welcome! I'm your business advisor. I can help with growth strategy, operations and automation — or take a quick quiz for a tailored recommendation.",
		ReplyCategory: CategoryInsight,
		AllowedCategories: []Category{
			CategoryRecommendation, CategoryQuiz, CategoryFeedback,
			CategoryReward, CategoryStrategy, CategoryInsight, CategoryAnalysis,
		},
		QuizEnabled:      true,
		FeedbackEnabled:  true,
		VoiceEnabled:     false,
		QuizTriggers:     []string{"quiz", "survey", "assessment"},
		FeedbackTriggers: []string{"feedback", "rate you"},
		Quiz: QuizContent{
			Questions: []QuizQuestion{
				{
					ID:      "priority",
					Prompt:  "What's your top business priority right now?",
					Options: []string{"Grow revenue", "Reduce costs", "Automate workflows"},
				},
			},
			Recommendations: map[string]string{
				"grow revenue":       "Start with the Growth toolkit: pipeline analytics plus outreach automation typically lifts conversion within a quarter.",
				"reduce costs":       "The Operations audit is your best first step — most teams find 15-20% of spend they can consolidate.",
				"automate workflows": "The Automation suite connects your existing tools and removes the repetitive work first. Begin with your highest-volume process.",
			},
			Fallback: "A short discovery call with our advisors would pin down the right starting point.",
		},
	},
	VariantSecurity: {
		ID:            VariantSecurity,
		DomainTag:     "security",
		WelcomeText:   "Hello, I'm your cybersecurity assistant. Ask about threats, hardening or compliance. You can also say \"quiz\" for a quick posture check.",
		ReplyCategory: CategoryGuidance,
		AllowedCategories: []Category{
			CategoryRecommendation, CategoryQuiz, CategoryFeedback,
			CategoryReward, CategoryThreat, CategoryGuidance, CategoryBestPractice,
		},
		SeverityEnabled:  true,
		QuizEnabled:      true,
		FeedbackEnabled:  true,
		VoiceEnabled:     true,
		QuizTriggers:     []string{"quiz", "survey", "posture check"},
		FeedbackTriggers: []string{"feedback", "rate you"},
		Quiz: QuizContent{
			Questions: []QuizQuestion{
				{
					ID:      "concern",
					Prompt:  "What's your biggest security concern?",
					Options: []string{"Phishing", "Ransomware", "Compliance"},
				},
			},
			Recommendations: map[string]string{
				"phishing":   "Start with the Email Shield package: DMARC enforcement plus quarterly phishing simulations for your staff.",
				"ransomware": "The Resilience bundle is built for this — immutable backups, EDR rollout and a tested recovery runbook.",
				"compliance": "Our Compliance track maps your controls to SOC 2 and ISO 27001 and flags the gaps first.",
			},
			Fallback: "A baseline security assessment will surface your highest-risk gaps within a week.",
		},
	},
	VariantSupport: {
		ID:            VariantSupport,
		DomainTag:     "support",
		WelcomeText:   "Hi there! I'm the Avelora support assistant. Describe the issue you're seeing and I'll do my best to resolve it.",
		ReplyCategory: CategorySolution,
		AllowedCategories: []Category{
			CategorySupport, CategorySolution, CategoryFeedback, CategoryReward,
		},
		QuizEnabled:      false,
		FeedbackEnabled:  true,
		VoiceEnabled:     false,
		FeedbackTriggers: []string{"feedback", "rate you"},
	},
}

// Variant returns the configuration for the given variant ID.
// The second return value is false if the ID is unknown.
func Variant(id VariantID) (VariantConfig, bool) {
	cfg, ok := variants[id]
	return cfg, ok
}

// VariantIDs lists the preconfigured variants in a stable order.
func VariantIDs() []VariantID {
	return []VariantID{VariantGeneral, VariantBusiness, VariantSecurity, VariantSupport}
}
