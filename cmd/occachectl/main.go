package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/openchat-labs/occache/internal/agent"
	"github.com/openchat-labs/occache/internal/cache"
	"github.com/openchat-labs/occache/internal/config"
	"github.com/openchat-labs/occache/internal/paths"
	"github.com/openchat-labs/occache/internal/store"
)

func main() {
	principalFlag := flag.String("principal", "", "principal (overrides config default)")
	dataDirFlag := flag.String("data-dir", "", "data directory (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// config commands do not need a resolved principal.
	if args[0] == "config" {
		cmdConfig(args[1:], *jsonFlag)
		return
	}

	s, err := agent.Resolve(agent.Params{Principal: *principalFlag, DataDir: *dataDirFlag})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	switch args[0] {
	case "stats":
		cmdStats(s, *jsonFlag)
	case "chats":
		cmdChats(s, *jsonFlag)
	case "users":
		cmdUsers(s, *jsonFlag)
	case "soft-disable":
		if len(args) < 2 || (args[1] != "on" && args[1] != "off") {
			fmt.Fprintln(os.Stderr, "usage: occachectl soft-disable <on|off>")
			os.Exit(1)
		}
		cmdSoftDisable(s, args[1] == "on")
	case "purge":
		cmdPurge(s)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: occachectl [--principal <p>] [--data-dir <dir>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  stats                      Show cache database statistics")
	fmt.Fprintln(os.Stderr, "  chats                      List the cached chat summaries")
	fmt.Fprintln(os.Stderr, "  users                      List the cached users")
	fmt.Fprintln(os.Stderr, "  soft-disable <on|off>      Flip the durable cache kill switch")
	fmt.Fprintln(os.Stderr, "  purge                      Delete the principal's cache database")
	fmt.Fprintln(os.Stderr, "  config show                Show the persisted config")
	fmt.Fprintln(os.Stderr, "  config set-principal <p>   Set the default principal")
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func openChats(s agent.Settings) *cache.Chats {
	c := cache.NewChats(s.DataDir, s.Disabled, zap.NewNop(), nil)
	if err := c.Init(s.Principal); err != nil {
		fatal(err)
	}
	return c
}

func cmdStats(s agent.Settings, jsonOut bool) {
	db, err := store.Open(paths.ChatDBPath(s.DataDir, s.Principal))
	if err != nil {
		fatal(err)
	}
	defer func() { _ = db.Close() }()
	if _, err := db.Migrate(); err != nil {
		fatal(err)
	}

	stats, err := db.Stats()
	if err != nil {
		fatal(err)
	}
	soft, err := db.Flag(store.FlagSoftDisabled)
	if err != nil {
		fatal(err)
	}

	udb, err := store.OpenUsers(paths.UserDBPath(s.DataDir))
	if err != nil {
		fatal(err)
	}
	defer func() { _ = udb.Close() }()
	if _, err := udb.Migrate(); err != nil {
		fatal(err)
	}
	userCount, err := udb.UserCount()
	if err != nil {
		fatal(err)
	}

	if jsonOut {
		outputJSON(map[string]any{
			"principal":    s.Principal,
			"stats":        stats,
			"softDisabled": soft,
			"users":        userCount,
		})
		return
	}
	fmt.Printf("Principal:      %s\n", s.Principal)
	fmt.Printf("Chat events:    %d\n", stats.ChatEvents)
	fmt.Printf("Thread events:  %d\n", stats.ThreadEvents)
	fmt.Printf("Snapshots:      %d\n", stats.Snapshots)
	fmt.Printf("Group details:  %d\n", stats.GroupDetails)
	fmt.Printf("Cached users:   %d\n", userCount)
	fmt.Printf("Soft disabled:  %v\n", soft)
}

func cmdChats(s agent.Settings, jsonOut bool) {
	c := openChats(s)
	defer func() { _ = c.Close() }()

	snap := c.Snapshot()
	if snap == nil {
		fmt.Println("No cached chat list.")
		return
	}
	if jsonOut {
		outputJSON(snap)
		return
	}
	fmt.Printf("Snapshot timestamp: %d\n", snap.Timestamp)
	for _, sum := range snap.Summaries {
		fmt.Printf("%-30s %-7s latest=%d %s\n", sum.ChatID, sum.Kind, sum.LatestEventIndex, sum.Name)
	}
}

func cmdUsers(s agent.Settings, jsonOut bool) {
	u := cache.NewUsers(s.DataDir, s.Disabled, zap.NewNop())
	defer func() { _ = u.Close() }()

	users := u.AllUsers()
	if jsonOut {
		outputJSON(users)
		return
	}
	if len(users) == 0 {
		fmt.Println("No cached users.")
		return
	}
	for _, usr := range users {
		fmt.Printf("%-30s %s\n", usr.UserID, usr.Username)
	}
}

func cmdSoftDisable(s agent.Settings, value bool) {
	c := openChats(s)
	defer func() { _ = c.Close() }()

	if err := c.SetSoftDisabled(value); err != nil {
		fatal(err)
	}
	fmt.Printf("Soft disabled: %v\n", value)
}

func cmdPurge(s agent.Settings) {
	c := openChats(s)
	defer func() { _ = c.Close() }()

	if err := c.Purge(); err != nil {
		fatal(err)
	}
	fmt.Printf("Purged cache for %s\n", s.Principal)
}

func cmdConfig(args []string, jsonOut bool) {
	path := paths.ConfigPath()
	switch {
	case len(args) >= 1 && args[0] == "show":
		cfg, err := config.Load(path)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Println("No config file.")
				return
			}
			fatal(err)
		}
		if jsonOut {
			outputJSON(cfg)
			return
		}
		fmt.Printf("Principal: %s\n", cfg.Principal)
		fmt.Printf("Data dir:  %s\n", cfg.DataDir)
		fmt.Printf("No cache:  %v\n", cfg.NoCache)
	case len(args) >= 2 && args[0] == "set-principal":
		if err := paths.ValidatePrincipal(args[1]); err != nil {
			fatal(err)
		}
		cfg, err := config.Load(path)
		if err != nil {
			if !os.IsNotExist(err) {
				fatal(err)
			}
			cfg = &config.Config{}
		}
		cfg.Principal = args[1]
		if err := config.Save(path, cfg); err != nil {
			fatal(err)
		}
		fmt.Printf("Default principal set to %s\n", args[1])
	default:
		fmt.Fprintln(os.Stderr, "usage: occachectl config <show|set-principal <p>>")
		os.Exit(1)
	}
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
