package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

// ConfigBuilder builds lingoflow.yaml documents for tests. Only the keys
// that were set are written.
type ConfigBuilder struct {
	doc map[string]map[string]string
	top map[string]string
}

// NewConfigBuilder creates an empty config builder.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		doc: make(map[string]map[string]string),
		top: make(map[string]string),
	}
}

func (b *ConfigBuilder) set(section, key, value string) *ConfigBuilder {
	if b.doc[section] == nil {
		b.doc[section] = make(map[string]string)
	}
	b.doc[section][key] = value
	return b
}

// WithAPI sets the learner API address and timeout.
func (b *ConfigBuilder) WithAPI(baseURL, timeout string) *ConfigBuilder {
	b.set("api", "base_url", baseURL)
	if timeout != "" {
		b.set("api", "timeout", timeout)
	}
	return b
}

// WithPayment sets the payment provider.
func (b *ConfigBuilder) WithPayment(baseURL, key string) *ConfigBuilder {
	b.set("payment", "base_url", baseURL)
	return b.set("payment", "publishable_key", key)
}

// WithDrafts selects the draft backend.
func (b *ConfigBuilder) WithDrafts(backend, path string) *ConfigBuilder {
	b.set("drafts", "backend", backend)
	if path != "" {
		b.set("drafts", "path", path)
	}
	return b
}

// WithState sets the state file.
func (b *ConfigBuilder) WithState(path string) *ConfigBuilder {
	return b.set("state", "path", path)
}

// WithLog configures the console logger.
func (b *ConfigBuilder) WithLog(level, format string) *ConfigBuilder {
	b.set("log", "level", level)
	return b.set("log", "format", format)
}

// WithLanguage sets the interface language.
func (b *ConfigBuilder) WithLanguage(tag string) *ConfigBuilder {
	b.top["language"] = tag
	return b
}

// ToYAML renders the document.
func (b *ConfigBuilder) ToYAML(t testing.TB) string {
	t.Helper()

	out := make(map[string]interface{}, len(b.doc)+len(b.top))
	for section, values := range b.doc {
		out[section] = values
	}
	for k, v := range b.top {
		out[k] = v
	}
	data, err := yaml.Marshal(out)
	require.NoError(t, err, "failed to render config")
	return string(data)
}

// MonthlyPlan is the cheapest catalog plan used across tests.
func MonthlyPlan() ports.Plan {
	return ports.Plan{
		ID:          "monthly",
		Name:        "Monthly",
		Description: "Cancel any time",
		PriceCents:  999,
		Currency:    "eur",
		Interval:    "month",
	}
}

// YearlyPlan is the discounted catalog plan used across tests.
func YearlyPlan() ports.Plan {
	return ports.Plan{
		ID:         "yearly",
		Name:       "Yearly",
		PriceCents: 7999,
		Currency:   "eur",
		Interval:   "year",
		Features:   []string{"offline lessons"},
	}
}

// Plans returns the standard two-plan catalog.
func Plans() []ports.Plan {
	return []ports.Plan{MonthlyPlan(), YearlyPlan()}
}
