package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigBuilder_ToYAML(t *testing.T) {
	t.Parallel()

	got := NewConfigBuilder().
		WithAPI("https://api.example.com", "30s").
		WithDrafts("sqlite", "/tmp/drafts.db").
		WithLog("debug", "json").
		WithLanguage("fr").
		ToYAML(t)

	AssertYAMLEquals(t, `
api:
  base_url: https://api.example.com
  timeout: 30s
drafts:
  backend: sqlite
  path: /tmp/drafts.db
log:
  level: debug
  format: json
language: fr
`, got)
}

func TestConfigBuilder_OmitsUnsetKeys(t *testing.T) {
	t.Parallel()

	got := NewConfigBuilder().WithAPI("https://api.example.com", "").ToYAML(t)

	AssertYAMLEquals(t, "api:\n  base_url: https://api.example.com\n", got)
}

func TestPlans(t *testing.T) {
	t.Parallel()

	plans := Plans()
	assert.Len(t, plans, 2)
	assert.Equal(t, "monthly", plans[0].ID)
	assert.Less(t, plans[0].PriceCents, plans[1].PriceCents)
}
