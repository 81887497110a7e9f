package domain

import "testing"

func TestVariantLookup(t *testing.T) {
	t.Parallel()

	for _, id := range VariantIDs() {
		cfg, ok := Variant(id)
		if !ok {
			t.Fatalf("preconfigured variant %q not found", id)
		}
		if cfg.ID != id {
			t.Errorf("config ID = %q, want %q", cfg.ID, id)
		}
		if cfg.WelcomeText == "" {
			t.Errorf("variant %q has no welcome text", id)
		}
		if cfg.DomainTag == "" {
			t.Errorf("variant %q has no domain tag", id)
		}
	}

	if _, ok := Variant("nonsense"); ok {
		t.Error("unknown variant resolved")
	}
}

func TestQuizEnabledVariantsCarryContent(t *testing.T) {
	t.Parallel()

	for _, id := range VariantIDs() {
		cfg, _ := Variant(id)
		if !cfg.QuizEnabled {
			continue
		}
		if len(cfg.Quiz.Questions) == 0 {
			t.Errorf("variant %q has quiz enabled but no questions", id)
		}
		if len(cfg.QuizTriggers) == 0 {
			t.Errorf("variant %q has quiz enabled but no triggers", id)
		}
		if cfg.Quiz.Fallback == "" {
			t.Errorf("variant %q has no quiz fallback", id)
		}
		// Every offered answer option must map to a recommendation.
		for _, q := range cfg.Quiz.Questions {
			if len(q.Options) == 0 {
				t.Errorf("variant %q question %q has no options", id, q.ID)
			}
		}
	}
}

func TestOnlySecurityVariantGradesSeverity(t *testing.T) {
	t.Parallel()

	for _, id := range VariantIDs() {
		cfg, _ := Variant(id)
		if got, want := cfg.SeverityEnabled, id == VariantSecurity; got != want {
			t.Errorf("variant %q SeverityEnabled = %v, want %v", id, got, want)
		}
	}
}

func TestAllowsCategory(t *testing.T) {
	t.Parallel()

	cfg, _ := Variant(VariantSupport)
	if !cfg.AllowsCategory(CategorySolution) {
		t.Error("support variant rejects its own reply category")
	}
	if cfg.AllowsCategory(CategoryThreat) {
		t.Error("support variant allows an unrelated category")
	}
	if !cfg.AllowsCategory("") {
		t.Error("empty category must always be allowed")
	}
}

func TestReplyCategoryIsAllowedByVariant(t *testing.T) {
	t.Parallel()

	for _, id := range VariantIDs() {
		cfg, _ := Variant(id)
		if !cfg.AllowsCategory(cfg.ReplyCategory) {
			t.Errorf("variant %q disallows its own reply category %q", id, cfg.ReplyCategory)
		}
	}
}

func TestIsSideChannel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{"plain assistant reply", Message{Sender: SenderAssistant}, false},
		{"quiz prompt", Message{Sender: SenderAssistant, Category: CategoryQuiz}, true},
		{"reward notice", Message{Sender: SenderAssistant, Category: CategoryReward}, true},
		{"user message", Message{Sender: SenderUser}, false},
		{"user message with category", Message{Sender: SenderUser, Category: CategoryQuiz}, false},
	}
	for _, tt := range tests {
		if got := tt.msg.IsSideChannel(); got != tt.want {
			t.Errorf("%s: IsSideChannel = %v, want %v", tt.name, got, tt.want)
		}
	}
}
