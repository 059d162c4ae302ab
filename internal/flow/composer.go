package flow

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/openai/openai-go"

	"github.com/BTreeMap/DMPipe/internal/genai"
	"github.com/BTreeMap/DMPipe/internal/models"
)

// Supported reply locales. The agent mirrors the language of the incoming
// message rather than carrying a configured locale.
const (
	localeEN = "en"
	localeRU = "ru"
)

var cyrillicPattern = regexp.MustCompile(`[\x{0400}-\x{04FF}]`)

// InferLocale guesses the reply language from the message script: any
// Cyrillic character selects Russian, everything else defaults to English.
func InferLocale(text string) string {
	if cyrillicPattern.MatchString(text) {
		return localeRU
	}
	return localeEN
}

// maxContextFAQEntries bounds how much of the FAQ is inlined into the prompt.
const maxContextFAQEntries = 10

// Composer produces free-form replies through the language model, grounded in
// the business config. Every failure path degrades to a canned placeholder;
// the conversation never surfaces an error to the end user.
type Composer struct {
	genai genai.ClientInterface
}

// NewComposer creates a composer. A nil client is allowed and means the AI is
// not configured; Answer then always returns the unavailable placeholder.
func NewComposer(client genai.ClientInterface) *Composer {
	return &Composer{genai: client}
}

// Answer generates a reply for the message in the sender's role and language.
// It never returns an error: model failures, empty completions, and a missing
// client all collapse into a locale-matched placeholder.
func (c *Composer) Answer(ctx context.Context, role models.Role, cfg models.BusinessConfig, text string) string {
	locale := InferLocale(text)
	if c.genai == nil {
		slog.Warn("Composer has no AI client configured, returning placeholder")
		return unavailablePlaceholder(locale)
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemBrief(role, locale)),
		openai.UserMessage(fmt.Sprintf("Business context:\n%s\nUser message:\n%s", buildContext(cfg), text)),
	}
	reply, err := c.genai.GenerateWithMessages(ctx, messages)
	if err != nil {
		slog.Error("Composer generation failed, returning placeholder", "error", err, "role", role, "locale", locale)
		return fallbackPlaceholder(locale)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		slog.Warn("Composer got empty completion, returning placeholder", "role", role, "locale", locale)
		return fallbackPlaceholder(locale)
	}
	slog.Debug("Composer generated reply", "role", role, "locale", locale, "length", len(reply))
	return reply
}

// buildContext renders the business config into a bounded plain-text brief.
func buildContext(cfg models.BusinessConfig) string {
	var b strings.Builder
	writeContextLine(&b, "Brand", cfg.Brand)
	writeContextLine(&b, "About", cfg.About)
	writeContextLine(&b, "Package", cfg.PackageText)
	writeContextLine(&b, "Policy", cfg.PolicyText)
	writeContextLine(&b, "Availability", cfg.AvailabilityText)
	writeContextLine(&b, "Address", cfg.Address)
	writeContextLine(&b, "Hours", cfg.Hours)
	writeContextLine(&b, "Phone", cfg.Phone)
	if faq := FormatFAQ(cfg.FAQ, maxContextFAQEntries); faq != "" {
		b.WriteString("FAQ:\n")
		b.WriteString(faq)
	}
	return b.String()
}

func writeContextLine(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}

// systemBrief selects the persona instructions. The customer brief presents
// the agent as the business's sales manager and never mentions automation;
// the owner brief is a candid setup assistant.
func systemBrief(role models.Role, locale string) string {
	if role == models.RoleOwner {
		if locale == localeRU {
			return "Ты ассистент по настройке бизнес-агента. Отвечай владельцу бизнеса кратко и по делу, помогай с настройкой профиля, режимов и ответов. Отвечай на языке пользователя."
		}
		return "You are a setup assistant for a business messaging agent. Answer the business owner concisely and practically, helping with profile, modes, and reply configuration. Mirror the user's language."
	}
	if locale == localeRU {
		return "Ты менеджер по продажам этого бизнеса. Отвечай тепло, кратко и конкретно, опираясь только на контекст бизнеса. Никогда не упоминай, что ты бот или ИИ. Если данных нет, предложи оставить контакт. Отвечай на языке пользователя."
	}
	return "You are the sales manager for this business. Reply warmly, briefly, and concretely, using only the provided business context. Never mention being a bot or AI. If the answer is not in the context, offer to take the person's contact details. Mirror the user's language."
}

func fallbackPlaceholder(locale string) string {
	if locale == localeRU {
		return "Спасибо! Вернусь с ответом чуть позже."
	}
	return "Thanks! I'll get back to you shortly."
}

func unavailablePlaceholder(locale string) string {
	if locale == localeRU {
		return "Спасибо за сообщение! Мы скоро ответим."
	}
	return "Thanks for your message! We'll reply soon."
}
