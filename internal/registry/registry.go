// Package registry loads and edits the human-editable JSON registries:
// accounts, groups, platforms and country codes. Files are read with
// gjson so hand-edited documents with loose typing (numeric chat ids,
// string booleans, extra fields) still load, and mutated with sjson so
// fields this program does not know about survive edits.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/mohsen-hany-dev/ivasms-otp/internal/models"
)

// LoadCountries returns registry rows that carry a dial code, sorted by
// descending dial-code length so prefix matching resolves to the most
// specific country first.
func LoadCountries(path string) ([]models.Country, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	var out []models.Country
	for _, r := range rows {
		c := models.Country{
			NameAR:   r.Get("name_ar").String(),
			NameEN:   r.Get("name_en").String(),
			ISO2:     r.Get("iso2").String(),
			DialCode: strings.TrimSpace(r.Get("dial_code").String()),
		}
		if c.DialCode != "" {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].DialCode) > len(out[j].DialCode)
	})
	return out, nil
}

// LoadPlatforms returns every platform row, including rows without a
// short code (they may still carry emoji data).
func LoadPlatforms(path string) ([]models.Platform, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	var out []models.Platform
	for _, r := range rows {
		out = append(out, models.Platform{
			Key:     strings.ToLower(strings.TrimSpace(r.Get("key").String())),
			NameAR:  r.Get("name_ar").String(),
			NameEN:  r.Get("name_en").String(),
			Short:   strings.TrimSpace(r.Get("short").String()),
			Emoji:   strings.TrimSpace(r.Get("emoji").String()),
			EmojiID: strings.TrimSpace(r.Get("emoji_id").String()),
		})
	}
	return out, nil
}

// LoadAccounts returns enabled accounts with both credentials present.
// Two legacy layouts are still accepted: an object {"accounts": [...]}
// and a plain text file of "email password" lines (one per account,
// # comments allowed).
func LoadAccounts(path string) ([]models.Account, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rows := gjson.ParseBytes(data)
	switch {
	case rows.IsArray():
		return accountRows(rows.Array()), nil
	case rows.IsObject() && rows.Get("accounts").IsArray():
		return accountRows(rows.Get("accounts").Array()), nil
	}
	return legacyAccounts(string(data)), nil
}

func accountRows(rows []gjson.Result) []models.Account {
	var out []models.Account
	for _, r := range rows {
		if !enabled(r) {
			continue
		}
		email := strings.TrimSpace(r.Get("email").String())
		password := strings.TrimSpace(r.Get("password").String())
		if email == "" || password == "" {
			continue
		}
		name := strings.TrimSpace(r.Get("name").String())
		if name == "" {
			name = email
		}
		out = append(out, models.Account{Name: name, Email: email, Password: password, Enabled: true})
	}
	return out
}

func legacyAccounts(raw string) []models.Account {
	var out []models.Account
	for idx, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		v := strings.TrimSpace(line)
		if v == "" || strings.HasPrefix(v, "#") {
			continue
		}
		parts := strings.Fields(v)
		if len(parts) < 2 {
			continue
		}
		out = append(out, models.Account{
			Name:     fmt.Sprintf("account_%d", idx+1),
			Email:    parts[0],
			Password: strings.Join(parts[1:], " "),
			Enabled:  true,
		})
	}
	return out
}

// LoadGroups returns enabled groups with a chat id. Numeric chat ids in
// the file are coerced to strings.
func LoadGroups(path string) ([]models.Group, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	var out []models.Group
	for _, r := range rows {
		if !enabled(r) {
			continue
		}
		chatID := strings.TrimSpace(r.Get("chat_id").String())
		if chatID == "" {
			continue
		}
		name := strings.TrimSpace(r.Get("name").String())
		if name == "" {
			name = chatID
		}
		out = append(out, models.Group{Name: name, ChatID: chatID, Enabled: true})
	}
	return out, nil
}

// enabled defaults to true when the field is absent, matching the
// registry contract that rows are opt-out.
func enabled(row gjson.Result) bool {
	f := row.Get("enabled")
	if !f.Exists() {
		return true
	}
	return f.Bool()
}

func readRows(path string) ([]gjson.Result, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, nil
	}
	var rows []gjson.Result
	for _, r := range doc.Array() {
		if r.IsObject() {
			rows = append(rows, r)
		}
	}
	return rows, nil
}

func readRawList(path string) string {
	data, err := os.ReadFile(path)
	if err != nil || !gjson.ParseBytes(data).IsArray() {
		return "[]"
	}
	return string(data)
}

func writeDoc(path, doc string) error {
	return os.WriteFile(path, []byte(pretty(doc)), 0o644)
}

func pretty(doc string) string {
	return gjson.Get(doc, "@pretty").Raw
}

// UpsertAccount replaces any row with the same email and appends the new
// row, preserving unrelated rows byte for byte.
func UpsertAccount(path string, acc models.Account) error {
	out := "[]"
	for _, r := range gjson.Parse(readRawList(path)).Array() {
		if r.Get("email").String() == acc.Email {
			continue
		}
		var err error
		if out, err = sjson.SetRaw(out, "-1", r.Raw); err != nil {
			return err
		}
	}
	row := fmt.Sprintf(`{"name":%s,"email":%s,"password":%s,"enabled":%t}`,
		quote(acc.Name), quote(acc.Email), quote(acc.Password), acc.Enabled)
	out, err := sjson.SetRaw(out, "-1", row)
	if err != nil {
		return err
	}
	return writeDoc(path, out)
}

// UpsertGroup replaces any row with the same chat id and appends the new
// row.
func UpsertGroup(path string, g models.Group) error {
	out := "[]"
	for _, r := range gjson.Parse(readRawList(path)).Array() {
		if r.Get("chat_id").String() == g.ChatID {
			continue
		}
		var err error
		if out, err = sjson.SetRaw(out, "-1", r.Raw); err != nil {
			return err
		}
	}
	row := fmt.Sprintf(`{"name":%s,"chat_id":%s,"enabled":%t}`,
		quote(g.Name), quote(g.ChatID), g.Enabled)
	out, err := sjson.SetRaw(out, "-1", row)
	if err != nil {
		return err
	}
	return writeDoc(path, out)
}

// SetPlatformEmojiID patches the emoji_id of the matching platform row in
// place, leaving every other field untouched. A missing platform gets a
// stub row with a derived short code.
func SetPlatformEmojiID(path, key, emojiID string) error {
	key = strings.TrimSpace(key)
	emojiID = strings.TrimSpace(emojiID)
	doc := readRawList(path)
	for i, r := range gjson.Parse(doc).Array() {
		if strings.EqualFold(strings.TrimSpace(r.Get("key").String()), key) {
			out, err := sjson.Set(doc, fmt.Sprintf("%d.emoji_id", i), emojiID)
			if err != nil {
				return err
			}
			return writeDoc(path, out)
		}
	}
	short := strings.ToUpper(firstRunes(key, 2))
	row := fmt.Sprintf(`{"key":%s,"name_ar":%s,"name_en":%s,"short":%s,"emoji":"","emoji_id":%s}`,
		quote(strings.ToLower(key)), quote(key), quote(key), quote(short), quote(emojiID))
	out, err := sjson.SetRaw(doc, "-1", row)
	if err != nil {
		return err
	}
	return writeDoc(path, out)
}

// DumpList returns the pretty-printed registry document for CLI listing.
func DumpList(path string) string {
	return pretty(readRawList(path))
}

func quote(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
