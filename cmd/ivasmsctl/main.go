// ivasmsctl manages the forwarder's registries: accounts, groups,
// platform emoji, and the stored delivery history. Without a subcommand
// it opens an interactive menu.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mohsen-hany-dev/ivasms-otp/internal/cli"
	"github.com/mohsen-hany-dev/ivasms-otp/internal/config"
	"github.com/mohsen-hany-dev/ivasms-otp/internal/models"
	"github.com/mohsen-hany-dev/ivasms-otp/internal/registry"
	"github.com/mohsen-hany-dev/ivasms-otp/internal/store"
)

func main() {
	cfg := config.Bootstrap()

	if len(os.Args) < 2 {
		cli.NewPrompter(os.Stdin, os.Stdout).Menu(cfg.AccountsFile(), cfg.GroupsFile())
		return
	}

	switch os.Args[1] {
	case "add-account":
		fs := flag.NewFlagSet("add-account", flag.ExitOnError)
		name := fs.String("name", "", "account name")
		email := fs.String("email", "", "login email")
		password := fs.String("password", "", "login password")
		disabled := fs.Bool("disabled", false, "register the account disabled")
		fs.Parse(os.Args[2:])
		if *name == "" || *email == "" || *password == "" {
			fmt.Println("add-account requires --name, --email and --password")
			return
		}
		acc := models.Account{Name: *name, Email: *email, Password: *password, Enabled: !*disabled}
		if err := registry.UpsertAccount(cfg.AccountsFile(), acc); err != nil {
			fmt.Printf("failed to save account: %v\n", err)
			return
		}
		fmt.Printf("added account: %s\n", *email)

	case "add-group":
		fs := flag.NewFlagSet("add-group", flag.ExitOnError)
		name := fs.String("name", "", "group name")
		chatID := fs.String("chat-id", "", "telegram chat id")
		disabled := fs.Bool("disabled", false, "register the group disabled")
		fs.Parse(os.Args[2:])
		if *name == "" || *chatID == "" {
			fmt.Println("add-group requires --name and --chat-id")
			return
		}
		grp := models.Group{Name: *name, ChatID: *chatID, Enabled: !*disabled}
		if err := registry.UpsertGroup(cfg.GroupsFile(), grp); err != nil {
			fmt.Printf("failed to save group: %v\n", err)
			return
		}
		fmt.Printf("added group: %s\n", *chatID)

	case "list-accounts":
		fmt.Println(registry.DumpList(cfg.AccountsFile()))

	case "list-groups":
		fmt.Println(registry.DumpList(cfg.GroupsFile()))

	case "clear-store":
		fs := flag.NewFlagSet("clear-store", flag.ExitOnError)
		day := fs.String("start-date", "", "clear one day (YYYY-MM-DD) instead of everything")
		fs.Parse(os.Args[2:])
		if *day != "" {
			removed, err := store.ClearDay(cfg.DailyStoreDir(), *day)
			if err != nil {
				fmt.Printf("failed to clear daily store: %v\n", err)
				return
			}
			if removed {
				fmt.Printf("cleared daily store for day=%s\n", *day)
			} else {
				fmt.Printf("no daily store found for day=%s\n", *day)
			}
			return
		}
		if err := store.ClearAll(cfg.DailyStoreDir()); err != nil {
			fmt.Printf("failed to clear stored messages: %v\n", err)
			return
		}
		fmt.Println("cleared all stored messages")

	case "set-platform-emoji-id":
		fs := flag.NewFlagSet("set-platform-emoji-id", flag.ExitOnError)
		key := fs.String("key", "", "platform key (lowercase service name)")
		emojiID := fs.String("emoji-id", "", "custom emoji identifier")
		fs.Parse(os.Args[2:])
		if *key == "" || *emojiID == "" {
			fmt.Println("set-platform-emoji-id requires --key and --emoji-id")
			return
		}
		if err := registry.SetPlatformEmojiID(cfg.PlatformsFile(), *key, *emojiID); err != nil {
			fmt.Printf("failed to update platform: %v\n", err)
			return
		}
		fmt.Printf("set emoji_id for platform '%s'\n", *key)

	default:
		fmt.Printf("unknown command: %s\n", os.Args[1])
		fmt.Println("commands: add-account, add-group, list-accounts, list-groups, clear-store, set-platform-emoji-id")
	}
}
