package admission_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"review-digest/admission"
	"review-digest/config"
	"review-digest/models"
)

// stubDetector 는 짧은 입력을 판별 불가로, "bonjour" 가 들어간 입력을 프랑스어로 본다.
type stubDetector struct{}

func (stubDetector) Detect(text string) (string, error) {
	if len(strings.Fields(text)) < 2 {
		return "", admission.ErrUndetectable
	}
	if strings.Contains(text, "bonjour") {
		return "fr", nil
	}
	return "en", nil
}

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = "good"
	}
	return strings.Join(w, " ")
}

func review(comment string) models.RawReview {
	return models.RawReview{UserRating: "5", Title: "Wonderful!", Comment: &comment}
}

func newFilter() *admission.Filter {
	return admission.NewFilter(stubDetector{}, config.Default().Admission)
}

func TestMinWordsThresholdSelection(t *testing.T) {
	f := newFilter()
	assert.Equal(t, 10, f.MinWords(0))
	assert.Equal(t, 10, f.MinWords(99))
	assert.Equal(t, 15, f.MinWords(100))
	assert.Equal(t, 15, f.MinWords(150))
}

func TestAdmitBoundaryIsExclusive(t *testing.T) {
	f := newFilter()

	cases := []struct {
		rawCount int
		words    int
		want     admission.Reason
	}{
		{99, 10, admission.RejectedTooShort},
		{99, 11, admission.Accepted},
		{100, 15, admission.RejectedTooShort},
		{100, 16, admission.Accepted},
	}
	for _, tc := range cases {
		_, reason := f.Admit(review(words(tc.words)), tc.rawCount)
		assert.Equal(t, tc.want, reason, "raw=%d words=%d", tc.rawCount, tc.words)
	}
}

func TestAdmitRejections(t *testing.T) {
	f := newFilter()

	_, reason := f.Admit(review("ok"), 3)
	assert.Equal(t, admission.RejectedUndetectable, reason)

	_, reason = f.Admit(models.RawReview{Title: "no comment"}, 3)
	assert.Equal(t, admission.RejectedUndetectable, reason)

	_, reason = f.Admit(review("bonjour "+words(20)), 3)
	assert.Equal(t, admission.RejectedLanguage, reason)
}

func TestAdmitKeepsRawAndCleanedText(t *testing.T) {
	f := newFilter()
	raw := "Battery lasts ALL day and the camera is superb 😍 totally worth the money... READ MORE"

	got, reason := f.Admit(review(raw), 3)
	assert.Equal(t, admission.Accepted, reason)
	assert.Equal(t, raw, got.RawComment)
	assert.Equal(t, "battery lasts all day and the camera is superb totally worth the money.", got.CleanedComment)
	assert.Equal(t, 13, got.WordCount)
	assert.Equal(t, "wonderful!", got.Title)
}

func TestWhatlangDetector(t *testing.T) {
	d := admission.NewWhatlangDetector(config.Default().Admission)

	_, err := d.Detect("")
	assert.ErrorIs(t, err, admission.ErrUndetectable)

	_, err = d.Detect("ok")
	assert.ErrorIs(t, err, admission.ErrUndetectable)

	_, err = d.Detect("👍👍🔥")
	assert.ErrorIs(t, err, admission.ErrUndetectable)

	lang, err := d.Detect("This phone has an excellent camera and the battery easily lasts the whole day without needing another charge.")
	assert.NoError(t, err)
	assert.Equal(t, "en", lang)
}
