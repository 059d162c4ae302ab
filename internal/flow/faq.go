package flow

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/DMPipe/internal/models"
)

// categoryShortcuts answer common question categories straight from the
// business config, before any free-text FAQ scan. Keywords cover English and
// Russian phrasings. Order is precedence.
var categoryShortcuts = []struct {
	name     string
	keywords []string
	answer   func(cfg models.BusinessConfig, locale string) string
}{
	{
		name:     "address",
		keywords: []string{"address", "location", "where are you", "адрес", "где вы", "как добраться"},
		answer: func(cfg models.BusinessConfig, locale string) string {
			if cfg.Address == "" {
				return ""
			}
			if locale == localeRU {
				return "Наш адрес: " + cfg.Address
			}
			return "Our address: " + cfg.Address
		},
	},
	{
		name:     "hours",
		keywords: []string{"hours", "open", "when are you", "часы", "режим", "когда вы", "во сколько"},
		answer: func(cfg models.BusinessConfig, locale string) string {
			if cfg.Hours == "" {
				return ""
			}
			if locale == localeRU {
				return "Часы работы: " + cfg.Hours
			}
			return "Our hours: " + cfg.Hours
		},
	},
	{
		name:     "contact",
		keywords: []string{"phone", "call", "contact", "whatsapp", "телефон", "позвонить", "контакт"},
		answer: func(cfg models.BusinessConfig, locale string) string {
			if cfg.Phone == "" {
				return ""
			}
			if locale == localeRU {
				return "Телефон: " + cfg.Phone
			}
			return "You can reach us at " + cfg.Phone
		},
	},
	{
		name:     "pricing",
		keywords: []string{"price", "prices", "pricing", "cost", "services", "catalog", "прайс", "цена", "стоимость", "услуги"},
		answer:   pricingAnswer,
	},
}

var pricingKeywords = []string{"price", "pricing", "cost", "прайс", "цен", "стоимост"}

// pricingAnswer prefers an FAQ entry whose question mentions pricing, then
// falls back to a generic nudge. Unlike the other shortcuts it always answers.
func pricingAnswer(cfg models.BusinessConfig, locale string) string {
	for _, entry := range cfg.FAQ {
		q := normalize(entry.Question)
		if q == "" || strings.TrimSpace(entry.Answer) == "" {
			continue
		}
		if containsAny(q, pricingKeywords) {
			return entry.Answer
		}
	}
	if cfg.PackageText != "" {
		return cfg.PackageText
	}
	if locale == localeRU {
		return "По прайсу: напишите, что именно вас интересует, и я сориентирую по стоимости."
	}
	return "Happy to help with pricing. Tell me what you're looking for and I'll give you the details."
}

// Lookup answers a question deterministically from the business config:
// category shortcuts first, then a scan of the configured FAQ entries. It
// returns ok=false when nothing matches, which is the signal to fall back to
// the AI composer. Lookup never calls the model.
func Lookup(cfg models.BusinessConfig, text string) (string, bool) {
	t := normalize(text)
	if t == "" {
		return "", false
	}
	locale := InferLocale(text)

	for _, shortcut := range categoryShortcuts {
		if !containsAny(t, shortcut.keywords) {
			continue
		}
		if answer := shortcut.answer(cfg, locale); answer != "" {
			return answer, true
		}
		// Shortcut matched but the field is unset; let later rules or the FAQ
		// scan have a go.
	}

	for _, entry := range cfg.FAQ {
		q := normalize(entry.Question)
		if q == "" || strings.TrimSpace(entry.Answer) == "" {
			continue
		}
		if strings.Contains(t, q) || anyTokenIn(t, q) {
			return entry.Answer, true
		}
	}
	return "", false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func containsAny(text string, keys []string) bool {
	for _, k := range keys {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// anyTokenIn reports whether any whitespace-separated token of q occurs in t.
// Short stop-words are skipped so "do you ship" does not match on "do" or "you".
func anyTokenIn(t, q string) bool {
	for _, token := range strings.Fields(q) {
		if len([]rune(token)) < 4 {
			continue
		}
		if strings.Contains(t, token) {
			return true
		}
	}
	return false
}

// FormatFAQ renders the configured FAQ as a compact context block.
func FormatFAQ(entries []models.FAQEntry, max int) string {
	var b strings.Builder
	n := 0
	for _, entry := range entries {
		if strings.TrimSpace(entry.Question) == "" || strings.TrimSpace(entry.Answer) == "" {
			continue
		}
		if n >= max {
			break
		}
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", entry.Question, entry.Answer)
		n++
	}
	return b.String()
}
