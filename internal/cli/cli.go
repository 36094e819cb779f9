// Package cli holds the operator-facing console helpers: first-run
// prompts for the forwarder and the interactive registry menu shared
// with the management binary.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/mohsen-hany-dev/ivasms-otp/internal/models"
	"github.com/mohsen-hany-dev/ivasms-otp/internal/registry"
)

type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	eof bool
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Ask prompts and returns the trimmed reply, or def on an empty reply
// or closed input.
func (p *Prompter) Ask(prompt, def string) string {
	if def == "" {
		fmt.Fprintf(p.out, "%s: ", prompt)
	} else {
		fmt.Fprintf(p.out, "%s [%s]: ", prompt, def)
	}
	line, err := p.in.ReadString('\n')
	if err != nil {
		p.eof = true
		if line == "" {
			return def
		}
	}
	if v := strings.TrimSpace(line); v != "" {
		return v
	}
	return def
}

// AskMissing prompts only when the current value is empty.
func (p *Prompter) AskMissing(prompt, current string) string {
	if v := strings.TrimSpace(current); v != "" {
		return v
	}
	return p.Ask(prompt, "")
}

// Menu runs the interactive registry editor until the operator exits or
// input closes.
func (p *Prompter) Menu(accountsPath, groupsPath string) {
	for !p.eof {
		fmt.Fprintln(p.out, "\n=== Bot CLI Menu ===")
		fmt.Fprintln(p.out, "1) Add account")
		fmt.Fprintln(p.out, "2) Add group")
		fmt.Fprintln(p.out, "3) List accounts")
		fmt.Fprintln(p.out, "4) List groups")
		fmt.Fprintln(p.out, "5) Exit")

		switch p.Ask("Choose (1-5)", "") {
		case "1":
			acc := models.Account{
				Name:     p.Ask("Account name", ""),
				Email:    p.Ask("Email", ""),
				Password: p.Ask("Password", ""),
				Enabled:  !strings.HasPrefix(strings.ToLower(p.Ask("Enabled? (y/n)", "y")), "n"),
			}
			if err := registry.UpsertAccount(accountsPath, acc); err != nil {
				fmt.Fprintf(p.out, "failed to save account: %v\n", err)
				continue
			}
			fmt.Fprintf(p.out, "added account: %s\n", acc.Email)
		case "2":
			grp := models.Group{
				Name:    p.Ask("Group name", ""),
				ChatID:  p.Ask("Telegram chat_id (example: -1001234567890)", ""),
				Enabled: !strings.HasPrefix(strings.ToLower(p.Ask("Enabled? (y/n)", "y")), "n"),
			}
			if err := registry.UpsertGroup(groupsPath, grp); err != nil {
				fmt.Fprintf(p.out, "failed to save group: %v\n", err)
				continue
			}
			fmt.Fprintf(p.out, "added group: %s\n", grp.ChatID)
			fmt.Fprintln(p.out, "group saved. Run the bot and messages will be sent to enabled groups.")
		case "3":
			fmt.Fprintln(p.out, registry.DumpList(accountsPath))
		case "4":
			fmt.Fprintln(p.out, registry.DumpList(groupsPath))
		case "5":
			fmt.Fprintln(p.out, "bye")
			return
		default:
			fmt.Fprintln(p.out, "invalid choice")
		}
	}
}
