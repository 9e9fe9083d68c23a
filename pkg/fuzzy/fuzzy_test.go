package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "Sao Paulo", Fold("São Paulo"))
	assert.Equal(t, "cafe", Fold("café"))
	assert.Equal(t, "plain", Fold("plain"))
}

func TestNormalizeToken(t *testing.T) {
	assert.Equal(t, "credit_card", NormalizeToken("Credit Card"))
	assert.Equal(t, "credit_card", NormalizeToken("credit-card"))
	assert.Equal(t, "sao_paulo", NormalizeToken("São  Paulo"))
	assert.Equal(t, "order_items", NormalizeToken("order_items"))
	assert.Equal(t, "abc123", NormalizeToken("a.b.c(123)"))
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "SP", Initials("São Paulo"))
	assert.Equal(t, "RDJ", Initials("Rio de Janeiro"))
	assert.Equal(t, "", Initials("123 456"))
}

func TestHasLetter(t *testing.T) {
	assert.True(t, HasLetter("boleto"))
	assert.True(t, HasLetter("São"))
	assert.False(t, HasLetter(">= 5"))
	assert.False(t, HasLetter("2017-01-01"))
}

func TestTokenSetRatio(t *testing.T) {
	assert.Equal(t, 100, TokenSetRatio("credit card", "card credit"))
	assert.Equal(t, 100, TokenSetRatio("Credit Card", "credit card credit"))
	assert.Equal(t, 0, TokenSetRatio("boleto", "voucher"))

	partial := TokenSetRatio("credit card payment", "credit card")
	assert.Greater(t, partial, 0)
	assert.Less(t, partial, 100)
}

func TestBestMatch(t *testing.T) {
	choices := []string{"credit_card", "boleto", "voucher", "debit_card"}
	got, score := BestMatch("credit_card", choices)
	assert.Equal(t, "credit_card", got)
	assert.Equal(t, 100, score)

	got, score = BestMatch("something else entirely", choices)
	assert.Equal(t, "something else entirely", got)
	assert.Equal(t, 0, score)

	got, score = BestMatch("anything", nil)
	assert.Equal(t, "anything", got)
	assert.Equal(t, 0, score)
}
