package agents

import (
	"regexp"
	"strings"
)

var relatedQuestionsRe = regexp.MustCompile(`(?i)Related Questions?:?\s*((?:\d+\.\s*[^\n]+\n*)+)`)

var numberedLineRe = regexp.MustCompile(`^\d+\.`)

// parseRAGEnvelope extracts the display answer, related questions and
// usable citations from a raw retrieval response.
func parseRAGEnvelope(env RAGEnvelope) *RAGResult {
	res := &RAGResult{Envelope: env}

	answer := finalAnswer(env.Answer)
	answer, res.Related = splitRelatedQuestions(answer)
	res.Answer = answer
	res.Citations = extractCitations(env.Answer.Documents)
	return res
}

// finalAnswer picks the last ai-typed message from the graph
// transcript, falling back to the intermediate message when the graph
// never produced a final answer.
func finalAnswer(a RAGAnswer) string {
	for i := len(a.Messages) - 1; i >= 0; i-- {
		if a.Messages[i].Type == "ai" {
			return strings.TrimSpace(a.Messages[i].Content)
		}
	}
	return strings.TrimSpace(a.IntermediateMessage)
}

// splitRelatedQuestions strips a trailing "Related Questions" block out
// of the answer and returns its numbered lines separately.
func splitRelatedQuestions(answer string) (string, []string) {
	m := relatedQuestionsRe.FindStringSubmatchIndex(answer)
	if m == nil {
		return answer, nil
	}

	block := answer[m[2]:m[3]]
	var related []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if numberedLineRe.MatchString(line) {
			related = append(related, line)
		}
	}

	stripped := strings.TrimSpace(answer[:m[0]] + answer[m[1]:])
	return stripped, related
}

// extractCitations filters retrieved documents down to those with a
// usable source reference, skipping image-description chunks.
func extractCitations(docs []RAGDocument) []Citation {
	var citations []Citation
	for _, doc := range docs {
		if doc.PageContent == "" {
			continue
		}
		if strings.Contains(doc.PageContent, "This is an image with the caption:") {
			continue
		}
		if strings.Contains(doc.PageContent, "10k_PDFs/meta/image") {
			continue
		}

		file := firstMetaString(doc.Metadata, "source_file", "file", "title", "url")
		if file == "" {
			continue
		}

		c := Citation{File: file}
		if page, ok := metaInt(doc.Metadata, "page"); ok {
			c.Page = page
		}
		if img, ok := doc.Metadata["image_url"].(string); ok && img != "" &&
			!strings.Contains(img, "10k_PDFs/meta/image") {
			c.Image = img
		}
		citations = append(citations, c)
	}
	return citations
}

func firstMetaString(meta map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := meta[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// metaInt tolerates both float64 (the JSON default) and int values.
func metaInt(meta map[string]any, key string) (int, bool) {
	switch v := meta[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}
