package inbound

import "strings"

// minClassificationScore is the floor below which a document is classified
// as unknown with zero confidence.
const minClassificationScore = 0.3

// ClassifierConfig is the injected keyword table. It is treated as immutable
// after construction; there is no runtime mutation path.
type ClassifierConfig struct {
	// KeywordSets maps a document type to the keywords that indicate it.
	// The score for a type is hits divided by set size, capped at 1.0.
	KeywordSets map[string][]string
}

// DefaultClassifierConfig returns the production keyword table.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		KeywordSets: map[string][]string{
			"authorization":   {"authorization", "approved", "certification", "auth number", "prior auth"},
			"medical_records": {"medical records", "chart", "progress notes", "discharge summary", "history and physical"},
			"denial":          {"denial", "denied", "not medically necessary", "adverse determination", "appeal rights"},
			"claim":           {"claim", "remittance", "explanation of benefits", "payment", "invoice"},
			"referral":        {"referral", "consult", "specialist", "refer to"},
		},
	}
}

// Classifier scores extracted text against keyword sets per document type.
type Classifier struct {
	cfg ClassifierConfig
}

func NewClassifier(cfg ClassifierConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify picks the highest-scoring document type for the given text.
// Empty text, or a best score below the minimum, yields unknown with
// confidence zero.
func (c *Classifier) Classify(text string) (string, float64) {
	if strings.TrimSpace(text) == "" {
		return DocTypeUnknown, 0
	}
	lowered := strings.ToLower(text)

	bestType := DocTypeUnknown
	bestScore := 0.0
	for docType, keywords := range c.cfg.KeywordSets {
		if len(keywords) == 0 {
			continue
		}
		hits := 0
		for _, keyword := range keywords {
			if strings.Contains(lowered, keyword) {
				hits++
			}
		}
		score := float64(hits) / float64(len(keywords))
		if score > 1.0 {
			score = 1.0
		}
		if score > bestScore || (score == bestScore && score > 0 && docType < bestType) {
			bestType = docType
			bestScore = score
		}
	}

	if bestScore < minClassificationScore {
		return DocTypeUnknown, 0
	}
	return bestType, bestScore
}
