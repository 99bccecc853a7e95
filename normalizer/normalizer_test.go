package normalizer_test

import (
	"review-digest/normalizer"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"read more marker after full word", "Great product... READ MORE", "great product."},
		{"read more marker after truncated word", "Battery life is goo... READ MORE", "battery life is."},
		{"read more on new line", "Works fine ok...\nREAD MORE", "works fine."},
		{"dot runs", "Nice phone....camera is good..", "nice phone. camera is good."},
		{"emoji removed", "Loved it 😍🔥 totally worth", "loved it totally worth"},
		{"urls removed", "see https://example.com/x and www.test.in now", "see and now"},
		{"whitespace collapsed", "  too   many\n\n spaces\t", "too many spaces"},
		{"punctuation kept", `Price (50%) & "value": yes!`, `price (50%) & "value": yes!`},
		{"unicode letters kept", "Très bon produit", "très bon produit"},
		{"read more mid text", "Camera is great.READ MORE Battery is fine", "camera is great. battery is fine"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalizer.Normalize(tc.in))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"Great product... READ MORE",
		"Awesome 👍👍 phone!!! READ MORE",
		"value for money....READ MORE",
		"first..second...third....",
		"Check HTTPS://Example.COM/deal for more",
		"WWW.SHOP.COM has it cheaper ok... READ MORE",
		"Camera is great.READ MORE",
		"Camera is great.READ MORE Battery is fine",
		"Good one.READ MORE\nbad delivery though",
		"works... READ MORE then broke..READ MORE twice",
		"   \n\t  ",
		"plain sentence without artifacts",
	}

	for _, in := range inputs {
		once := normalizer.Normalize(in)
		assert.Equal(t, once, normalizer.Normalize(once), "input: %q", in)
	}
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, normalizer.WordCount(""))
	assert.Equal(t, 3, normalizer.WordCount("great  product here"))
}
