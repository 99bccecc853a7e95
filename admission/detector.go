package admission

import (
	"errors"
	"strings"
	"unicode"

	"github.com/RadhiFadlillah/whatlanggo"

	"review-digest/config"
)

// ErrUndetectable 는 비어 있거나 너무 짧거나 문자 정보가 없어 언어를 판별할 수 없을 때 반환된다.
var ErrUndetectable = errors.New("language could not be detected")

// Detector 는 텍스트의 언어를 ISO 639-1 코드로 판별한다.
type Detector interface {
	Detect(text string) (string, error)
}

// WhatlangDetector 는 whatlanggo 기반 Detector 구현이다.
type WhatlangDetector struct {
	minLetters    int
	minConfidence float64
}

func NewWhatlangDetector(cfg config.AdmissionConfig) *WhatlangDetector {
	return &WhatlangDetector{
		minLetters:    cfg.MinLetters,
		minConfidence: cfg.MinConfidence,
	}
}

func (d *WhatlangDetector) Detect(text string) (string, error) {
	text = strings.TrimSpace(text)
	if countLetters(text) < d.minLetters {
		return "", ErrUndetectable
	}

	info := whatlanggo.Detect(text)
	if info.Lang < 0 {
		return "", ErrUndetectable
	}
	if info.Confidence < d.minConfidence {
		return "", ErrUndetectable
	}

	code := info.Lang.Iso6391()
	if code == "" {
		return "", ErrUndetectable
	}
	return code, nil
}

func countLetters(text string) int {
	n := 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
