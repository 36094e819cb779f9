// Package format renders a raw verification-code message into the
// MarkdownV2 text delivered to Telegram: country detection from the
// dial code, flag and platform emoji, and code extraction for the
// quick-copy button.
package format

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mohsen-hany-dev/ivasms-otp/internal/models"
)

var (
	reGroupedCode = regexp.MustCompile(`\b\d{2,4}-\d{2,4}\b`)
	rePlainCode   = regexp.MustCompile(`\b\d{4,8}\b`)
)

// markdownV2Specials is the MarkdownV2 reserved set; '+' is included so
// phone numbers render literally in bold headers.
const markdownV2Specials = "_\\*[]()~`>#+-=|{}.!"

// unknownCountry is returned when no dial code matches.
var unknownCountry = models.Country{NameAR: "غير معروف", NameEN: "Unknown", ISO2: "UN", DialCode: ""}

// Renderer is a pure formatter over the static country and platform
// registries.
type Renderer struct {
	countries      []models.Country
	platforms      map[string]models.Platform
	useCustomEmoji bool
}

func NewRenderer(countries []models.Country, platforms []models.Platform, useCustomEmoji bool) *Renderer {
	byKey := make(map[string]models.Platform, len(platforms))
	for _, p := range platforms {
		if p.Key != "" {
			byKey[strings.ToLower(p.Key)] = p
		}
	}
	return &Renderer{countries: countries, platforms: byKey, useCustomEmoji: useCustomEmoji}
}

// Render produces the delivery text: a quoted bold header (platform
// short code, ISO2, flag, number) followed by the message body in a
// fenced block.
func (r *Renderer) Render(msg models.Message) string {
	digits := DigitsOnly(msg.Number)
	numberWithPlus := msg.Number
	if digits != "" {
		numberWithPlus = "+" + digits
	}

	short := r.ShortCode(msg.ServiceName)
	country := DetectCountry(msg.Number, r.countries)
	flag := FlagEmoji(country.ISO2)

	head := EscapeMarkdownV2(fmt.Sprintf("%s %s %s %s", short, country.ISO2, flag, numberWithPlus))
	body := EscapeCodeBlock(strings.TrimSpace(msg.Message))

	return fmt.Sprintf("> %s*%s*\n```\n%s\n```", r.emojiPrefix(msg.ServiceName), head, body)
}

// Code returns the value for the copy button: the extracted code, or the
// phone number when the body carries none.
func (r *Renderer) Code(msg models.Message) string {
	if code := ExtractCode(msg.Message); code != "" {
		return code
	}
	return msg.Number
}

// ShortCode returns the registered short code for the service, or the
// first two characters uppercased, or "NA".
func (r *Renderer) ShortCode(serviceName string) string {
	key := strings.ToLower(strings.TrimSpace(serviceName))
	if p, ok := r.platforms[key]; ok && p.Short != "" {
		return strings.ToUpper(p.Short)
	}
	runes := []rune(serviceName)
	if len(runes) > 2 {
		runes = runes[:2]
	}
	if len(runes) == 0 {
		return "NA"
	}
	return strings.ToUpper(string(runes))
}

// emojiPrefix renders a custom-emoji reference when enabled and
// registered, else the literal glyph (✨ by default). The trailing space
// separates it from the bold header.
func (r *Renderer) emojiPrefix(serviceName string) string {
	key := strings.ToLower(strings.TrimSpace(serviceName))
	p := r.platforms[key]
	alt := p.Emoji
	if alt == "" {
		alt = "✨"
	}
	if r.useCustomEmoji && p.EmojiID != "" {
		return fmt.Sprintf("![%s](tg://emoji?id=%s) ", alt, p.EmojiID)
	}
	return alt + " "
}

// DetectCountry resolves the number's country by dial-code prefix. The
// longest matching dial code wins, so "1242" beats "1"; ties keep the
// registry's file order. No match yields the Unknown country.
func DetectCountry(number string, countries []models.Country) models.Country {
	num := strings.TrimPrefix(DigitsOnly(number), "00")
	best := unknownCountry
	for _, c := range countries {
		if c.DialCode != "" && strings.HasPrefix(num, c.DialCode) && len(c.DialCode) > len(best.DialCode) {
			best = c
		}
	}
	return best
}

// FlagEmoji maps a 2-letter country code to its regional-indicator pair.
// Anything else renders the neutral white flag.
func FlagEmoji(iso2 string) string {
	code := strings.ToUpper(iso2)
	if len(code) != 2 || code[0] < 'A' || code[0] > 'Z' || code[1] < 'A' || code[1] > 'Z' {
		return "🏳️"
	}
	const base = 127397
	return string(base+rune(code[0])) + string(base+rune(code[1]))
}

// ExtractCode scans for a grouped code like 12-3456 first, then a bare
// run of 4-8 digits. Empty when the body carries neither.
func ExtractCode(message string) string {
	if m := reGroupedCode.FindString(message); m != "" {
		return m
	}
	return rePlainCode.FindString(message)
}

// EscapeMarkdownV2 escapes every reserved MarkdownV2 character.
func EscapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) * 2)
	for _, r := range text {
		if r < 128 && strings.ContainsRune(markdownV2Specials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// EscapeCodeBlock neutralizes triple backticks so the fenced block the
// body is rendered inside is never terminated early.
func EscapeCodeBlock(text string) string {
	return strings.ReplaceAll(text, "```", "'''")
}

// DigitsOnly strips every non-digit rune.
func DigitsOnly(text string) string {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
