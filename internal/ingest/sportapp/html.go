package sportapp

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxPageText = 80

// decodeFailure explains a body that is not JSON. The API answers with an
// HTML page during maintenance; its title says more than the JSON error.
func decodeFailure(body []byte, jsonErr error) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '<' {
		return jsonErr
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(trimmed))
	if err != nil {
		return jsonErr
	}
	text := strings.TrimSpace(doc.Find("title").First().Text())
	if text == "" {
		text = strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	}
	if r := []rune(text); len(r) > maxPageText {
		text = string(r[:maxPageText])
	}
	return fmt.Errorf("got an HTML page instead of JSON: %q", text)
}
