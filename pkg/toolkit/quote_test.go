package toolkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteIdent(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		expected   string
	}{
		{name: "simple", identifier: "users", expected: `"users"`},
		{name: "embedded quote", identifier: `a"b`, expected: `"a""b"`},
		{name: "only quotes", identifier: `""`, expected: `""""""`},
		{name: "upper case and spaces", identifier: "My Table", expected: `"My Table"`},
		{name: "empty", identifier: "", expected: `""`},
		{name: "utf8", identifier: "таблица", expected: `"таблица"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, QuoteIdent(tt.identifier))
		})
	}
}

func TestQuoteQualifiedIdent(t *testing.T) {
	assert.Equal(t, `"public"."users"`, QuoteQualifiedIdent("public", "users"))
	assert.Equal(t, `"my""schema"."t"`, QuoteQualifiedIdent(`my"schema`, "t"))
	assert.Equal(t, `"users"`, QuoteQualifiedIdent("", "users"))
}

func TestQuoteFunctionSignature(t *testing.T) {
	assert.Equal(t, `"public"."add"(integer, integer)`, QuoteFunctionSignature("public", "add", "integer, integer"))
	assert.Equal(t, `"now"()`, QuoteFunctionSignature("", "now", ""))
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, `'active'`, QuoteLiteral("active"))
	assert.Equal(t, `'it''s'`, QuoteLiteral("it's"))
}
