package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Routing holds the externally adjustable tables that drive escalation
// detection and branch assignment, plus the budgets and thresholds of the
// webhook pipeline. Everything here ships with working defaults so the
// services run without a config file; a YAML file pointed to by
// ROUTING_CONFIG_PATH overrides them.
type Routing struct {
	EscalationPatterns  []string     `mapstructure:"escalation_patterns"`
	Branches            []Branch     `mapstructure:"branches"`
	StatesWithoutBranch []StateAlias `mapstructure:"states_without_branch"`
	ContextDocMaxBytes  int          `mapstructure:"context_doc_max_bytes"`
	ContextBudgetBytes  int          `mapstructure:"context_budget_bytes"`
	InactivityMinutes   int          `mapstructure:"inactivity_minutes"`
	SweepSchedule       string       `mapstructure:"sweep_schedule"`
}

// Branch maps free-text city mentions to a regional office. Keywords are
// matched as lowercase substrings; keep the most specific spellings first so
// "san luis potosi" wins over "slp".
type Branch struct {
	ID          string   `mapstructure:"id"`
	DisplayName string   `mapstructure:"display_name"`
	Keywords    []string `mapstructure:"keywords"`
}

// StateAlias labels a state that has no dedicated branch. A match here sends
// the customer a branch-choice menu instead of guessing an office.
type StateAlias struct {
	Label    string   `mapstructure:"label"`
	Keywords []string `mapstructure:"keywords"`
}

func (r Routing) InactivityThreshold() time.Duration {
	return time.Duration(r.InactivityMinutes) * time.Minute
}

// Load reads the routing config from path. An empty path or a missing file
// yields the defaults; a present but malformed file is an error.
func Load(path string) (Routing, error) {
	routing := Default()
	if path == "" {
		return routing, nil
	}

	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return routing, nil
		}
		return Routing{}, fmt.Errorf("read routing config %s: %w", path, err)
	}

	if err := v.Unmarshal(&routing); err != nil {
		return Routing{}, fmt.Errorf("unmarshal routing config: %w", err)
	}

	if err := routing.validate(); err != nil {
		return Routing{}, fmt.Errorf("routing config: %w", err)
	}

	return routing, nil
}

func (r Routing) validate() error {
	if len(r.EscalationPatterns) == 0 {
		return errors.New("at least one escalation pattern is required")
	}
	if r.ContextBudgetBytes <= 0 {
		return errors.New("context_budget_bytes must be positive")
	}
	if r.ContextDocMaxBytes <= 0 {
		return errors.New("context_doc_max_bytes must be positive")
	}
	if r.InactivityMinutes <= 0 {
		return errors.New("inactivity_minutes must be positive")
	}
	seen := make(map[string]bool, len(r.Branches))
	for _, branch := range r.Branches {
		if branch.ID == "" {
			return errors.New("branch id is required")
		}
		if seen[branch.ID] {
			return fmt.Errorf("duplicate branch id %q", branch.ID)
		}
		seen[branch.ID] = true
	}
	return nil
}

// Default returns the built-in routing tables.
func Default() Routing {
	return Routing{
		EscalationPatterns: []string{
			"[semáforo: rojo]",
			"[semaforo: rojo]",
			"te voy a transferir con un asesor",
			"transferir con un asesor",
			"te comunico con un asesor",
			"conectarte con un humano",
			"escalando la conversación",
			"escalando la conversacion",
		},
		Branches: []Branch{
			{ID: "gdl", DisplayName: "Guadalajara", Keywords: []string{"guadalajara", "zapopan", "tlaquepaque", "gdl"}},
			{ID: "cdmx", DisplayName: "Ciudad de México", Keywords: []string{"ciudad de mexico", "ciudad de méxico", "cdmx", "df"}},
			{ID: "mty", DisplayName: "Monterrey", Keywords: []string{"monterrey", "san pedro garza", "mty"}},
			{ID: "slp", DisplayName: "San Luis Potosí", Keywords: []string{"san luis potosi", "san luis potosí", "slp"}},
			{ID: "qro", DisplayName: "Querétaro", Keywords: []string{"queretaro", "querétaro", "qro"}},
			{ID: "leon", DisplayName: "León", Keywords: []string{"leon", "león"}},
		},
		StatesWithoutBranch: []StateAlias{
			{Label: "Chiapas", Keywords: []string{"chiapas", "tuxtla"}},
			{Label: "Oaxaca", Keywords: []string{"oaxaca"}},
			{Label: "Tabasco", Keywords: []string{"tabasco", "villahermosa"}},
			{Label: "Yucatán", Keywords: []string{"yucatan", "yucatán", "merida", "mérida"}},
			{Label: "Sonora", Keywords: []string{"sonora", "hermosillo"}},
			{Label: "Chihuahua", Keywords: []string{"chihuahua"}},
		},
		ContextDocMaxBytes: 256 * 1024,
		ContextBudgetBytes: 256 * 1024,
		InactivityMinutes:  30,
		SweepSchedule:      "*/5 * * * *",
	}
}
