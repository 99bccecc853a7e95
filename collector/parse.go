package collector

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"review-digest/config"
	"review-digest/models"
)

// Aggregate 는 상품 단위 평점 영역에서 읽은 원문 텍스트다.
type Aggregate struct {
	OverallRating string `json:"overall_rating"`
	TotalRatings  string `json:"total_ratings"`
}

// ParseReview 는 리뷰 블록 하나를 필드별로 한 번에 파싱한다.
// 필드가 없으면 해당 값만 비워 두고, 본문 요소가 없으면 Comment 를 nil 로 둔다.
func ParseReview(blockHTML string, sel config.SelectorConfig) (models.RawReview, error) {
	doc, err := parseFragment(blockHTML)
	if err != nil {
		return models.RawReview{}, err
	}

	review := models.RawReview{
		UserRating: firstText(doc.Selection, sel.UserRating),
		Title:      firstText(doc.Selection, sel.Title),
	}
	if c := doc.Find(sel.Comment).First(); c.Length() > 0 {
		text := visibleText(c.Nodes[0])
		review.Comment = &text
	}
	return review, nil
}

func ParseAggregate(blockHTML string, sel config.SelectorConfig) (Aggregate, error) {
	doc, err := parseFragment(blockHTML)
	if err != nil {
		return Aggregate{}, err
	}
	return Aggregate{
		OverallRating: firstText(doc.Selection, sel.OverallRating),
		TotalRatings:  firstText(doc.Selection, sel.TotalRatings),
	}, nil
}

func parseFragment(fragment string) (*goquery.Document, error) {
	root, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromNode(root), nil
}

func firstText(s *goquery.Selection, selector string) string {
	found := s.Find(selector).First()
	if found.Length() == 0 {
		return ""
	}
	return visibleText(found.Nodes[0])
}

var blockElements = map[string]bool{
	"div": true, "p": true, "li": true, "ul": true, "ol": true,
	"section": true, "article": true, "header": true, "footer": true,
}

// visibleText 는 브라우저의 innerText 처럼 블록 요소와 <br> 경계를 줄바꿈으로 남긴다.
func visibleText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style":
				return
			case "br":
				b.WriteByte('\n')
				return
			}
		}
		isBlock := n.Type == html.ElementNode && blockElements[n.Data]
		if isBlock {
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if isBlock {
			b.WriteByte('\n')
		}
	}
	walk(n)

	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
