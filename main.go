package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lotas/lesezeichen/internal/analyzer"
	"github.com/lotas/lesezeichen/internal/applog"
	"github.com/lotas/lesezeichen/internal/auth"
	"github.com/lotas/lesezeichen/internal/client"
	"github.com/lotas/lesezeichen/internal/config"
	"github.com/lotas/lesezeichen/internal/export"
	"github.com/lotas/lesezeichen/internal/firefox"
	"github.com/lotas/lesezeichen/internal/pagetitle"
	"github.com/lotas/lesezeichen/internal/protocol"
	"github.com/lotas/lesezeichen/internal/server"
	"github.com/lotas/lesezeichen/internal/snapshot"
	"github.com/lotas/lesezeichen/internal/storage"
	"github.com/lotas/lesezeichen/internal/store"
	"github.com/lotas/lesezeichen/internal/tui"
	"github.com/lotas/lesezeichen/internal/types"
)

const waitTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err == nil {
		if err := applog.Init(cfg.DataDir); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
		}
	}
	defer applog.Close()

	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "", "tui":
		runTUI(cfg, args)
	case "serve":
		runServe(cfg, args)
	case "token":
		runToken(cfg, args)
	case "push":
		runPush(cfg, args)
	case "export":
		runExport(cfg, args)
	case "save":
		runSave(cfg, args)
	case "import":
		runImport(cfg, args)
	case "check":
		runCheck(cfg, args)
	case "backup":
		runBackup(cfg, args)
	case "diff":
		runDiff(cfg, args)
	case "profiles":
		runProfiles()
	case "help", "--help", "-h":
		printHelp()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q. Run 'lesezeichen help'.\n", cmd)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Print(`lesezeichen - bookmark board for the terminal

Usage:
  lesezeichen                                  Start the board (default)
    --db <path>            Local database (env: LESEZEICHEN_DB)
    --server <url>         Sync with a backend, e.g. ws://host:19292/ws
    --token <jwt>          Access token for --server (env: LESEZEICHEN_TOKEN)

  lesezeichen serve                            Run the sync backend
    --db <path>            Backend database
    --host <addr>          Listen address (default: 127.0.0.1)
    --port <n>             Listen port (default: 19292)

  lesezeichen token --user <id> [--ttl 720h]   Mint an access token

  lesezeichen push --server <url>              Upload local bookmarks to a backend

  lesezeichen export [--json] [--out file]     Export bookmarks to stdout or file
  lesezeichen save <url> [--category name]     Bookmark a URL, fetching its title
  lesezeichen import [--profile name]          Import open Firefox tab groups
  lesezeichen check [--dead]                   Report duplicates and dead links
  lesezeichen backup --out <file>              Write a compressed backup
  lesezeichen diff <backup> [backup2]          Compare a backup with current bookmarks
  lesezeichen profiles                         List Firefox profiles

  export, save, import, check, backup and diff accept --db, --server and
  --token like the board does.

Environment:
  LESEZEICHEN_DATA_DIR   Data and log directory (default: ~/.local/share/lesezeichen)
  LESEZEICHEN_DB         Local database path
  LESEZEICHEN_SERVER     Backend URL; when set the board starts in sync mode
  LESEZEICHEN_TOKEN      Access token for the backend
  LESEZEICHEN_USER       User id for 'token' (default: local)
  LESEZEICHEN_JWT_SECRET Secret for signing and verifying tokens
  LESEZEICHEN_HOST       Backend listen address
  LESEZEICHEN_PORT       Backend listen port

Values from a .env file in the working directory are loaded first.
`)
}

// bindSource registers the flags that choose between local and sync mode.
func bindSource(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Local database path")
	fs.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Backend URL (sync mode)")
	fs.StringVar(&cfg.Token, "token", cfg.Token, "Access token for --server")
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func mustOpenCLI(cfg config.Config) *session {
	s, err := openCLI(cfg, waitTimeout)
	if err != nil {
		fatal("%v", err)
	}
	return s
}

func runTUI(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("lesezeichen", flag.ExitOnError)
	bindSource(fs, &cfg)
	fs.Parse(args)

	b := tui.NewBridge()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	s, err := openSession(ctx, cfg, b.Feed, store.Options{
		Render:        b.Render,
		OnRemoteError: b.RemoteError,
	})
	cancel()
	if err != nil {
		fatal("%v", err)
	}
	if s.client != nil {
		c := s.client
		go func() {
			<-c.Done()
			b.Disconnected(c.Err())
		}()
	}

	model := tui.NewModel(s.store, s.history, s.gate, b, tui.Options{Label: s.label})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, runErr := p.Run()

	b.Close()
	s.Close()
	if runErr != nil {
		fatal("%v", runErr)
	}
}

func runServe(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	dbPath := fs.String("db", cfg.DBPath, "Backend database path")
	host := fs.String("host", cfg.Host, "Listen address")
	port := fs.Int("port", cfg.Port, "Listen port")
	fs.Parse(args)

	if cfg.Secret == "" {
		fatal("LESEZEICHEN_JWT_SECRET must be set to run the backend")
	}

	db, err := storage.OpenDB(*dbPath)
	if err != nil {
		fatal("opening database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(db, []byte(cfg.Secret), *port)
	fmt.Fprintf(os.Stderr, "Listening on ws://%s:%d/ws\n", *host, *port)
	if err := srv.ListenAndServe(ctx, *host); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal("%v", err)
	}
}

func runToken(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	user := fs.String("user", cfg.User, "User id the token is issued to")
	ttl := fs.Duration("ttl", 0, "Token lifetime, 0 for no expiry")
	fs.Parse(args)

	if cfg.Secret == "" {
		fatal("LESEZEICHEN_JWT_SECRET must be set to mint tokens")
	}
	tok, err := auth.Mint([]byte(cfg.Secret), *user, *ttl)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println(tok)
}

// runPush uploads the local database to a backend. The local copy is left
// untouched.
func runPush(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("push", flag.ExitOnError)
	bindSource(fs, &cfg)
	fs.Parse(args)

	if cfg.ServerURL == "" {
		fatal("push needs --server or LESEZEICHEN_SERVER")
	}
	local := cfg
	local.ServerURL = ""
	s := mustOpenCLI(local)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	c, err := client.Dial(ctx, cfg.ServerURL, cfg.Token, func(protocol.Message) {})
	if err != nil {
		fatal("%v", err)
	}
	defer c.Close()

	v := s.store.View()
	if err := s.store.PushLocal(ctx, c); err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Pushed %d groups, %d categories and %d bookmarks to %s\n",
		len(v.Groups), len(v.Categories), len(v.Bookmarks), cfg.ServerURL)
}

func runExport(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	bindSource(fs, &cfg)
	jsonFlag := fs.Bool("json", false, "Export as JSON instead of markdown")
	outFile := fs.String("out", "", "Output file path (default: stdout)")
	fs.Parse(args)

	s := mustOpenCLI(cfg)
	defer s.Close()
	v := s.store.View()

	var output string
	if *jsonFlag {
		var err error
		output, err = export.JSON(v)
		if err != nil {
			fatal("generating JSON: %v", err)
		}
	} else {
		output = export.Markdown(v, s.label)
	}

	if *outFile != "" {
		if err := os.WriteFile(*outFile, []byte(output), 0644); err != nil {
			fatal("writing file: %v", err)
		}
		return
	}
	fmt.Print(output)
}

func runSave(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("save", flag.ExitOnError)
	bindSource(fs, &cfg)
	categoryName := fs.String("category", "Inbox", "Category to add the bookmark to")
	title := fs.String("title", "", "Title (default: fetched from the page)")
	fs.Parse(reorderArgs(args))

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: lesezeichen save <url> [--category name] [--title text]")
		os.Exit(1)
	}
	url := fs.Arg(0)

	icon := ""
	if *title == "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		page, err := pagetitle.Fetch(ctx, url)
		cancel()
		if err != nil {
			applog.Error("save.fetch", err, "url", url)
		}
		*title, icon = page.Title, page.Icon
	}

	s := mustOpenCLI(cfg)
	defer s.Close()

	cat, ok := findCategory(s.store.View(), *categoryName)
	if !ok {
		var err error
		cat, err = s.store.CreateCategory(*categoryName)
		if err != nil {
			fatal("%v", err)
		}
	}
	bm, err := s.store.CreateBookmark(cat.ID, *title, url, icon)
	if err != nil {
		fatal("%v", err)
	}
	if err := s.finish(); err != nil {
		fatal("%v", err)
	}
	label := bm.Title
	if label == "" {
		label = bm.URL
	}
	fmt.Printf("Saved %q to %s\n", label, cat.Name)
}

func runImport(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	bindSource(fs, &cfg)
	profileName := fs.String("profile", "", "Firefox profile name (default: the default profile)")
	fs.Parse(args)

	profiles, err := firefox.DiscoverProfiles()
	if err != nil {
		fatal("discovering Firefox profiles: %v", err)
	}
	profile, err := firefox.PickProfile(profiles, *profileName)
	if err != nil {
		fatal("%v", err)
	}
	sets, err := firefox.ReadSessionFile(profile.Path)
	if err != nil {
		fatal("reading session: %v", err)
	}

	s := mustOpenCLI(cfg)
	defer s.Close()

	res, err := firefox.Import(s.store, sets)
	if err != nil {
		fatal("%v", err)
	}
	if err := s.finish(); err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Imported %d bookmarks into %d new categories from %s (%d already present)\n",
		res.Bookmarks, res.Categories, profile.Name, res.Skipped)
}

func runCheck(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	bindSource(fs, &cfg)
	dead := fs.Bool("dead", false, "Also probe every bookmark for dead links")
	concurrency := fs.Int("concurrency", 10, "Parallel link checks")
	fs.Parse(args)

	s := mustOpenCLI(cfg)
	defer s.Close()
	v := s.store.View()

	names := make(map[string]string, len(v.Categories))
	for _, c := range v.Categories {
		names[c.ID] = c.Name
	}

	dups := analyzer.Duplicates(v.Bookmarks)
	var deadLinks []analyzer.DeadLink
	if *dead {
		fmt.Fprintf(os.Stderr, "Checking %d links...\n", len(v.Bookmarks))
		deadLinks = analyzer.CheckLinks(context.Background(), v.Bookmarks, *concurrency)
	}

	stats := analyzer.ComputeStats(v, dups, deadLinks)
	fmt.Printf("%d groups, %d categories (%d empty), %d bookmarks\n",
		stats.Groups, stats.Categories, stats.EmptyCategories, stats.Bookmarks)

	if len(dups) > 0 {
		fmt.Printf("\nDuplicates (%d):\n", stats.Duplicates)
		for _, cluster := range dups {
			fmt.Printf("  %s\n", cluster[0].URL)
			for _, b := range cluster {
				fmt.Printf("    - %s\n", names[b.CategoryID])
			}
		}
	}
	if len(deadLinks) > 0 {
		fmt.Printf("\nDead links (%d):\n", len(deadLinks))
		for _, d := range deadLinks {
			fmt.Printf("  %s [%s] %s\n", d.Bookmark.URL, names[d.Bookmark.CategoryID], d.Reason)
		}
	}
}

func runBackup(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	bindSource(fs, &cfg)
	outFile := fs.String("out", "", "Backup file path")
	fs.Parse(args)

	if *outFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: lesezeichen backup --out <file>")
		os.Exit(1)
	}

	s := mustOpenCLI(cfg)
	defer s.Close()

	snap := s.store.Snapshot()
	data, err := snapshot.Encode(snap)
	if err != nil {
		fatal("%v", err)
	}
	if err := os.WriteFile(*outFile, data, 0644); err != nil {
		fatal("writing file: %v", err)
	}
	fmt.Printf("Backup written to %s: %d categories, %d bookmarks (digest %.12s)\n",
		*outFile, len(snap.Categories), len(snap.Bookmarks), s.store.Digest())
}

func readBackup(path string) types.Snapshot {
	data, err := os.ReadFile(path)
	if err != nil {
		fatal("reading backup: %v", err)
	}
	snap, err := snapshot.Decode(data)
	if err != nil {
		fatal("%s: %v", path, err)
	}
	return snap
}

func runDiff(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	bindSource(fs, &cfg)
	fs.Parse(reorderArgs(args))

	switch fs.NArg() {
	case 1:
		previous := readBackup(fs.Arg(0))
		s := mustOpenCLI(cfg)
		defer s.Close()
		fmt.Print(snapshot.FormatDiff(snapshot.Diff(previous, s.store.Snapshot())))
	case 2:
		fmt.Print(snapshot.FormatDiff(snapshot.Diff(readBackup(fs.Arg(0)), readBackup(fs.Arg(1)))))
	default:
		fmt.Fprintln(os.Stderr, "Usage: lesezeichen diff <backup> [backup2]")
		os.Exit(1)
	}
}

func runProfiles() {
	profiles, err := firefox.DiscoverProfiles()
	if err != nil {
		fatal("discovering Firefox profiles: %v", err)
	}
	if len(profiles) == 0 {
		fmt.Fprintln(os.Stderr, "No Firefox profiles with a session file found.")
		os.Exit(1)
	}
	for _, p := range profiles {
		suffix := ""
		if p.IsDefault {
			suffix = " [default]"
		}
		fmt.Printf("%s (%s)%s\n", p.Name, p.Path, suffix)
	}
}

// reorderArgs moves flag arguments before positional arguments so that
// flag.Parse handles them correctly (it stops at the first non-flag arg).
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			flags = append(flags, args[i])
			if !strings.Contains(args[i], "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				flags = append(flags, args[i+1])
				i++
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}
