package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/illarion/passwatch/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		runAdd(ctx, os.Args[2:])
	case "list", "ls":
		runList(ctx, os.Args[2:])
	case "edit":
		runEdit(ctx, os.Args[2:])
	case "rm":
		runRm(ctx, os.Args[2:])
	case "refreshed":
		runRefreshed(ctx, os.Args[2:])
	case "status":
		runStatus(ctx, os.Args[2:])
	case "export":
		runExport(ctx, os.Args[2:])
	case "import":
		runImport(ctx, os.Args[2:])
	case "diff":
		runDiff(ctx, os.Args[2:])
	case "passwd":
		runPasswd(ctx, os.Args[2:])
	case "keyring":
		runKeyring(ctx, os.Args[2:])
	case "compact":
		runCompact(ctx, os.Args[2:])
	case "completion":
		runCompletion(ctx, os.Args[2:])
	case "help", "-h", "--help":
		if len(os.Args) <= 2 {
			printUsage()
			return
		}
		printCommandHelp(os.Args[2])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// parseID converts a command's single positional argument to a record id
func parseID(fs *flag.FlagSet, command string) int64 {
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: passwatch %s [flags] <id>\n", command)
		os.Exit(1)
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || id <= 0 {
		fmt.Fprintf(os.Stderr, "Error: invalid id %q\n", fs.Arg(0))
		os.Exit(1)
	}
	return id
}

func runAdd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	url := fs.String("url", "", "Account URL")
	user := fs.String("user", "", "Username or email")
	category := fs.String("category", "", "Category (general, financial, email, social, shopping, streaming, work, gaming)")
	interval := fs.Int("interval", 0, "Rotation interval in days (1-365, default 90)")
	notes := fs.String("notes", "", "Free-form notes")
	changed := fs.String("changed", "", "Last password change: YYYY-MM-DD, RFC 3339, \"now\" or \"never\"")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: passwatch add [flags] <service>\n")
		os.Exit(1)
	}

	cmd.Add(ctx, fs.Arg(0), cmd.AddOptions{
		URL:      *url,
		Username: *user,
		Category: *category,
		Interval: *interval,
		Changed:  *changed,
		Notes:    *notes,
	})
}

func runList(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	query := fs.String("q", "", "Show only accounts matching this query")
	status := fs.String("status", "", "Show only accounts with this status (overdue, due_soon, good)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.List(ctx, cmd.ListOptions{Query: *query, Status: *status})
}

func runEdit(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	name := fs.String("name", "", "New service name")
	url := fs.String("url", "", "New account URL")
	user := fs.String("user", "", "New username or email")
	category := fs.String("category", "", "New category")
	interval := fs.Int("interval", 0, "New rotation interval in days")
	notes := fs.String("notes", "", "New notes")
	changed := fs.String("changed", "", "Last password change: YYYY-MM-DD, RFC 3339, \"now\" or \"never\"")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	id := parseID(fs, "edit")

	// Only flags the user actually set become part of the update
	var opts cmd.EditOptions
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			opts.ServiceName = name
		case "url":
			opts.URL = url
		case "user":
			opts.Username = user
		case "category":
			opts.Category = category
		case "interval":
			opts.Interval = interval
		case "notes":
			opts.Notes = notes
		case "changed":
			opts.Changed = changed
		}
	})

	cmd.Edit(ctx, id, opts)
}

func runRm(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Remove(ctx, parseID(fs, "rm"))
}

func runRefreshed(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("refreshed", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Refreshed(ctx, parseID(fs, "refreshed"))
}

func runStatus(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Status(ctx)
}

func runExport(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: passwatch export <file>\n")
		os.Exit(1)
	}
	cmd.Export(ctx, fs.Arg(0))
}

func runImport(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	replace := fs.Bool("replace", false, "Replace all existing accounts instead of merging")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: passwatch import [-replace] <file>\n")
		os.Exit(1)
	}
	cmd.Import(ctx, fs.Arg(0), *replace)
}

func runDiff(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: passwatch diff <file>\n")
		os.Exit(1)
	}
	cmd.Diff(ctx, fs.Arg(0))
}

func runPasswd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Passwd(ctx)
}

func runKeyring(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: passwatch keyring <save|rm|status>")
		os.Exit(1)
	}
	switch args[0] {
	case "save":
		cmd.KeyringSave(ctx)
	case "rm", "delete":
		cmd.KeyringDelete()
	case "status":
		cmd.KeyringStatus()
	default:
		fmt.Fprintf(os.Stderr, "Unknown keyring subcommand: %s\n", args[0])
		fmt.Fprintln(os.Stderr, "Usage: passwatch keyring <save|rm|status>")
		os.Exit(1)
	}
}

func runCompact(_ context.Context, args []string) {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Compact()
}

func runCompletion(_ context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: passwatch completion <bash|zsh|fish>")
		os.Exit(1)
	}
	cmd.Completion(args[0])
}

func printUsage() {
	fmt.Println("passwatch - Track when account passwords were last changed")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  passwatch <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  add         Track a new account")
	fmt.Println("  list, ls    List tracked accounts")
	fmt.Println("  edit        Edit an account")
	fmt.Println("  rm          Remove an account")
	fmt.Println("  refreshed   Mark an account's password as just changed")
	fmt.Println("  status      Show store state and rotation summary")
	fmt.Println("  export      Export accounts to a backup file")
	fmt.Println("  import      Import accounts from a backup file")
	fmt.Println("  diff        Compare a backup file with the store")
	fmt.Println("  passwd      Change the store passphrase")
	fmt.Println("  keyring     Manage the passphrase in the OS keyring")
	fmt.Println("  compact     Compact the database file")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  passwatch add -url https://github.com -user me github")
	fmt.Println("  passwatch list -status overdue")
	fmt.Println("  passwatch refreshed 3")
	fmt.Println("  passwatch export accounts.json")
	fmt.Println()
	fmt.Println("Use 'passwatch help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "add":
		fmt.Println("passwatch add [flags] <service>")
		fmt.Println()
		fmt.Println("Tracks a new account under the given service name.")
		fmt.Println("Only the rotation metadata is stored - never the password itself.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -url       Account URL")
		fmt.Println("  -user      Username or email on the account")
		fmt.Println("  -category  One of: general, financial, email, social, shopping, streaming, work, gaming")
		fmt.Println("  -interval  Rotation interval in days (1-365, default 90)")
		fmt.Println("  -changed   When the password was last changed: YYYY-MM-DD, RFC 3339, \"now\" or \"never\"")
		fmt.Println("  -notes     Free-form notes")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  passwatch add github")
		fmt.Println("  passwatch add -url https://github.com -user me -changed now github")
		fmt.Println("  passwatch add -category financial -interval 30 bank")
	case "list", "ls":
		fmt.Println("passwatch list [-q <query>] [-status <status>]")
		fmt.Println()
		fmt.Println("Lists tracked accounts with their rotation status.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -q        Show only accounts whose name, URL or username matches")
		fmt.Println("  -status   Show only accounts with this status (overdue, due_soon, good)")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  passwatch list")
		fmt.Println("  passwatch list -status overdue")
		fmt.Println("  passwatch list -q github")
	case "edit":
		fmt.Println("passwatch edit [flags] <id>")
		fmt.Println()
		fmt.Println("Changes an account. Only fields given as flags are touched.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -name      New service name")
		fmt.Println("  -url       New account URL")
		fmt.Println("  -user      New username or email")
		fmt.Println("  -category  New category")
		fmt.Println("  -interval  New rotation interval in days")
		fmt.Println("  -changed   Last password change: YYYY-MM-DD, RFC 3339, \"now\" or \"never\"")
		fmt.Println("  -notes     New notes")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  passwatch edit -interval 30 3")
		fmt.Println("  passwatch edit -changed never 3")
	case "rm":
		fmt.Println("passwatch rm <id>")
		fmt.Println()
		fmt.Println("Removes an account from the store.")
		fmt.Println()
		fmt.Println("Example:")
		fmt.Println("  passwatch rm 3")
	case "refreshed":
		fmt.Println("passwatch refreshed <id>")
		fmt.Println()
		fmt.Println("Records that the account's password was changed just now and")
		fmt.Println("restarts its rotation clock.")
		fmt.Println()
		fmt.Println("Example:")
		fmt.Println("  passwatch refreshed 3")
	case "status":
		fmt.Println("passwatch status")
		fmt.Println()
		fmt.Println("Shows the store state (new, legacy-unencrypted or encrypted), the")
		fmt.Println("database file details and per-status account counts.")
		fmt.Println()
		fmt.Println("Example:")
		fmt.Println("  passwatch status")
	case "export":
		fmt.Println("passwatch export <file>")
		fmt.Println()
		fmt.Println("Writes all accounts to a plaintext JSON backup file.")
		fmt.Println("Warns when the destination sits in a git repository, because the")
		fmt.Println("backup is not encrypted.")
		fmt.Println()
		fmt.Println("Example:")
		fmt.Println("  passwatch export accounts.json")
	case "import":
		fmt.Println("passwatch import [-replace] <file>")
		fmt.Println()
		fmt.Println("Loads accounts from a backup file. By default existing accounts are")
		fmt.Println("kept and incoming duplicates (same service name and URL) skipped.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -replace   Remove all existing accounts first")
		fmt.Println()
		fmt.Println("The file is validated before anything is touched; an invalid file")
		fmt.Println("never modifies the store.")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  passwatch import accounts.json")
		fmt.Println("  passwatch import -replace accounts.json")
	case "diff":
		fmt.Println("passwatch diff <file>")
		fmt.Println()
		fmt.Println("Compares a backup file with the live store and prints a unified")
		fmt.Println("diff of the two account sets.")
		fmt.Println()
		fmt.Println("Example:")
		fmt.Println("  passwatch diff accounts.json")
	case "passwd":
		fmt.Println("passwatch passwd")
		fmt.Println()
		fmt.Println("Changes the store passphrase and re-encrypts the database under a")
		fmt.Println("fresh salt. Updates the OS keyring entry if one exists, then")
		fmt.Println("compacts the database file.")
		fmt.Println()
		fmt.Println("Example:")
		fmt.Println("  passwatch passwd")
	case "keyring":
		fmt.Println("passwatch keyring <save|rm|status>")
		fmt.Println()
		fmt.Println("Manages the passphrase cached in the OS keyring. A cached")
		fmt.Println("passphrase lets commands unlock the store without prompting.")
		fmt.Println()
		fmt.Println("Subcommands:")
		fmt.Println("  save     Verify the passphrase and store it in the keyring")
		fmt.Println("  rm       Remove the stored passphrase")
		fmt.Println("  status   Show whether a passphrase is stored")
	case "compact":
		fmt.Println("passwatch compact")
		fmt.Println()
		fmt.Println("Compacts the database file to reclaim unused disk space.")
		fmt.Println("This is automatically done after 'passwd', but can be run manually.")
		fmt.Println()
		fmt.Println("Does not require the passphrase.")
		fmt.Println()
		fmt.Println("Example:")
		fmt.Println("  passwatch compact")
	case "completion":
		fmt.Println("passwatch completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Outputs shell completion script for the specified shell.")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(passwatch completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(passwatch completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  passwatch completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
