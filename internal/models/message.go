package models

import "strings"

// Account holds credentials for one source-API login. Loaded from the
// accounts registry at startup and immutable for the run.
type Account struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Enabled  bool   `json:"enabled"`
}

// Group is a Telegram delivery target.
type Group struct {
	Name    string `json:"name"`
	ChatID  string `json:"chat_id"`
	Enabled bool   `json:"enabled"`
}

// Country is one row of the country-code registry.
type Country struct {
	NameAR   string `json:"name_ar"`
	NameEN   string `json:"name_en"`
	ISO2     string `json:"iso2"`
	DialCode string `json:"dial_code"`
}

// Platform is one row of the platform registry, keyed by the lowercase
// service name as reported by the source API.
type Platform struct {
	Key     string `json:"key"`
	NameAR  string `json:"name_ar,omitempty"`
	NameEN  string `json:"name_en,omitempty"`
	Short   string `json:"short"`
	Emoji   string `json:"emoji"`
	EmojiID string `json:"emoji_id"`
}

// Message is a verification-code notification as returned by the source
// API. Fields the formatter does not read are carried through untouched.
type Message struct {
	Number      string `json:"number"`
	ServiceName string `json:"service_name"`
	Message     string `json:"message"`
	Range       string `json:"range"`
	Revenue     string `json:"revenue"`
}

// Key is the deterministic identity of a notification. Two messages with
// the same key are the same notification no matter which account fetched
// them; the key doubles as the persisted already-delivered marker.
func (m Message) Key() string {
	return strings.Join([]string{m.Number, m.ServiceName, m.Range, m.Message}, "|")
}

// GroupDelivery records one confirmed delivery of a message to a group.
type GroupDelivery struct {
	Group     string `json:"group"`
	ChatID    string `json:"chat_id"`
	MessageID int    `json:"message_id"`
}

// DeliveryRecord is the audit entry appended to the daily store once a
// message reached at least one group.
type DeliveryRecord struct {
	Number      string          `json:"number"`
	Code        string          `json:"code"`
	ServiceName string          `json:"service_name"`
	Range       string          `json:"range"`
	Message     string          `json:"message"`
	Revenue     string          `json:"revenue"`
	Groups      []GroupDelivery `json:"groups"`
	SentAt      string          `json:"sent_at"`
}
