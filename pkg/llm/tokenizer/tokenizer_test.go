package tokenizer

import (
	"testing"

	"github.com/entrhq/surfer/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "one char", text: "a", want: 1},
		{name: "four chars", text: "abcd", want: 1},
		{name: "five chars", text: "abcde", want: 2},
		{name: "multibyte counts runes", text: "héllo", want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Estimate(tt.text))
		})
	}
}

func TestEstimatingTokenizer(t *testing.T) {
	tok := &Tokenizer{}
	assert.True(t, tok.Estimating())
	assert.Equal(t, 3, tok.CountTokens("hello world!"))
	assert.Equal(t, "hello wo", tok.Truncate("hello world!", 2))
	assert.Equal(t, "hi", tok.Truncate("hi", 2))
	assert.Equal(t, "", tok.Truncate("hi", 0))
}

func TestCountMessageTokens(t *testing.T) {
	tok := &Tokenizer{}

	text := types.NewUserMessage("abcdefgh")
	assert.Equal(t, MessageOverhead+2, tok.CountMessageTokens(text))

	img := types.NewUserImageMessage("abcdefgh", []byte{0x89, 'P', 'N', 'G'})
	assert.Equal(t, MessageOverhead+2+ImageTokens, tok.CountMessageTokens(img))

	assert.Equal(t, 2*MessageOverhead+4+ImageTokens,
		tok.CountMessagesTokens([]*types.Message{text, img}))
}

func TestNewOrEstimateNeverNil(t *testing.T) {
	tok := NewOrEstimate()
	assert.NotNil(t, tok)
	assert.Greater(t, tok.CountTokens("The quick brown fox jumps over the lazy dog"), 0)
}
