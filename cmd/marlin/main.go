package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"marlin/internal/agents"
	"marlin/internal/archive"
	"marlin/internal/config"
	"marlin/internal/export"
	"marlin/internal/history"
	"marlin/internal/session"
	"marlin/internal/storage"
)

const agentTimeout = 120 * time.Second

const connectError = "Error connecting to server."

type app struct {
	cfg      *config.Config
	repo     *session.Repository
	selector *session.Selector
	index    *history.Index

	ragClient         *agents.RAGClient
	dataSourcesClient *agents.DataSourcesClient
	quantClient       *agents.QuantClient

	mode    session.Mode
	lastRAG *agents.RAGEnvelope
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	fs := flag.NewFlagSet("marlin", flag.ExitOnError)
	dataFlag := fs.String("data", "", "Path to the data directory (default: user config dir)")
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("failed to parse flags: %v", err)
	}

	manager, err := config.NewManager()
	if err != nil {
		log.Fatalf("failed to init config: %v", err)
	}
	cfg, err := manager.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *dataFlag != "" {
		cfg.DataDir = *dataFlag
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("failed to create data dir: %v", err)
	}
	store, err := storage.NewSQLiteStore(context.Background(), filepath.Join(cfg.DataDir, "sessions.db"))
	if err != nil {
		log.Fatalf("failed to open session store: %v", err)
	}
	defer store.Close()

	if _, err := session.MigrateLegacy(store); err != nil {
		log.Printf("⚠️  Legacy migration failed: %v", err)
	}

	repo := session.NewRepository(store)
	index, err := history.New()
	if err != nil {
		log.Fatalf("failed to create search index: %v", err)
	}
	defer index.Close()

	a := &app{
		cfg:               cfg,
		repo:              repo,
		selector:          session.NewSelector(repo),
		index:             index,
		ragClient:         agents.NewRAGClient(cfg.RAGURL),
		dataSourcesClient: agents.NewDataSourcesClient(cfg.DataSourcesURL),
		quantClient:       agents.NewQuantClient(cfg.QuantURL),
		mode:              session.ModeRAG,
	}
	a.run()
}

func (a *app) run() {
	log.Println("✅ marlin ready — type /help for commands")
	a.printCurrent()

	s := bufio.NewScanner(os.Stdin)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Printf("%s> ", a.mode)
		if !s.Scan() {
			break
		}
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := a.handleCommand(line); quit {
				break
			}
			continue
		}

		a.handleQuery(line)
	}
}

// handleCommand dispatches a slash command. It returns true when the
// REPL should exit.
func (a *app) handleCommand(line string) bool {
	parts := strings.SplitN(line, " ", 2)
	cmd := parts[0]
	arg := ""
	if len(parts) == 2 {
		arg = strings.TrimSpace(parts[1])
	}

	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		a.printHelp()
	case "/new":
		s := a.selector.CreateAndSwitch()
		fmt.Printf("Created session %s\n", s.ID)
	case "/sessions":
		a.printSessions()
	case "/switch":
		if arg == "" {
			fmt.Println("usage: /switch <session-id>")
			break
		}
		if _, err := a.selector.SwitchTo(arg); err != nil {
			fmt.Printf("switch failed: %v\n", err)
			break
		}
		a.printCurrent()
	case "/rename":
		cur, ok := a.selector.Current()
		if !ok {
			fmt.Println("no current session")
			break
		}
		if err := a.repo.Rename(cur.ID, arg); err != nil {
			fmt.Printf("rename failed: %v\n", err)
		}
	case "/delete":
		id := arg
		if id == "" {
			cur, ok := a.selector.Current()
			if !ok {
				fmt.Println("no current session")
				break
			}
			id = cur.ID
		}
		if err := a.selector.Delete(id); err != nil {
			fmt.Printf("delete failed: %v\n", err)
			break
		}
		a.printCurrent()
	case "/duplicate":
		cur, ok := a.selector.Current()
		if !ok {
			fmt.Println("no current session")
			break
		}
		dup, err := a.repo.Duplicate(cur.ID)
		if err != nil {
			fmt.Printf("duplicate failed: %v\n", err)
			break
		}
		fmt.Printf("Created %s (%s)\n", dup.Name, dup.ID)
	case "/mode":
		mode := session.Mode(arg)
		if !mode.Valid() {
			fmt.Printf("unknown mode %q (one of: %s)\n", arg, modeList())
			break
		}
		a.mode = mode
	case "/clear":
		a.selector.Reset()
		fmt.Println("All sessions cleared")
	case "/export":
		a.exportHistory()
	case "/report":
		a.exportReport(arg)
	case "/search":
		a.search(arg)
	case "/import":
		a.importArchive(arg)
	case "/archive":
		a.exportArchive()
	default:
		fmt.Printf("unknown command %s — type /help\n", cmd)
	}
	return false
}

func (a *app) handleQuery(query string) {
	cur, ok := a.selector.Current()
	if !ok {
		cur = a.selector.CreateAndSwitch()
	}

	msgs := append(cur.ModeMessages(a.mode), session.Message{
		Sender:    session.SenderUser,
		Text:      query,
		Timestamp: time.Now().UnixMilli(),
	})
	if _, err := a.repo.UpdateMessages(cur.ID, msgs, a.mode); err != nil {
		log.Printf("⚠️  Failed to record message: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), agentTimeout)
	defer cancel()

	reply, err := a.askAgent(ctx, query)
	if err != nil {
		log.Printf("⚠️  Agent request failed: %v", err)
		reply = connectError
	}
	fmt.Println()

	msgs = append(msgs, session.Message{
		Sender:    session.SenderAssistant,
		Text:      reply,
		Timestamp: time.Now().UnixMilli(),
	})
	if _, err := a.repo.UpdateMessages(cur.ID, msgs, a.mode); err != nil {
		log.Printf("⚠️  Failed to record reply: %v", err)
	}
}

// askAgent routes the query to the backend for the active mode and
// returns the assistant text to record.
func (a *app) askAgent(ctx context.Context, query string) (string, error) {
	switch a.mode {
	case session.ModeRAG:
		res, err := a.ragClient.Ask(ctx, query)
		if err != nil {
			return "", err
		}
		a.lastRAG = &res.Envelope
		text := res.Text()
		fmt.Println(text)
		return text, nil
	case session.ModeDataSources:
		printed := 0
		full, err := a.dataSourcesClient.Ask(ctx, query, func(acc string) {
			fmt.Print(acc[printed:])
			printed = len(acc)
		})
		if err != nil {
			return "", err
		}
		fmt.Println()
		return full, nil
	case session.ModeQuant:
		res, err := a.quantClient.Ask(ctx, query)
		if err != nil {
			return "", err
		}
		text := res.Text()
		fmt.Println(text)
		return text, nil
	}
	return "", fmt.Errorf("unknown mode: %s", a.mode)
}

func (a *app) exportHistory() {
	cur, ok := a.selector.Current()
	if !ok {
		fmt.Println("no current session")
		return
	}
	path, err := export.SessionHistory(a.cfg.DataDir, cur, a.mode)
	if err != nil {
		fmt.Printf("export failed: %v\n", err)
		return
	}
	fmt.Printf("Exported to %s\n", path)
}

func (a *app) exportReport(query string) {
	if a.lastRAG == nil {
		fmt.Println("no research response to report yet")
		return
	}
	path, err := export.RAGReport(a.cfg.DataDir, query, *a.lastRAG)
	if err != nil {
		fmt.Printf("report failed: %v\n", err)
		return
	}
	fmt.Printf("Report written to %s\n", path)
}

func (a *app) exportArchive() {
	cur, ok := a.selector.Current()
	if !ok {
		fmt.Println("no current session")
		return
	}
	path, err := archive.Export(a.cfg.DataDir, cur)
	if err != nil {
		fmt.Printf("archive failed: %v\n", err)
		return
	}
	fmt.Printf("Archived to %s\n", path)
}

func (a *app) importArchive(path string) {
	if path == "" {
		fmt.Println("usage: /import <file.json>")
		return
	}
	s, err := archive.Import(path)
	if err != nil {
		fmt.Printf("import failed: %v\n", err)
		return
	}
	adopted := a.repo.Adopt(s)
	if _, err := a.selector.SwitchTo(adopted.ID); err != nil {
		fmt.Printf("switch failed: %v\n", err)
		return
	}
	fmt.Printf("Imported %s (%s)\n", adopted.Name, adopted.ID)
}

func (a *app) search(query string) {
	if query == "" {
		fmt.Println("usage: /search <keywords>")
		return
	}
	if err := a.index.Rebuild(a.repo.List()); err != nil {
		fmt.Printf("search failed: %v\n", err)
		return
	}
	hits, err := a.index.Search(query, 10)
	if err != nil {
		fmt.Printf("search failed: %v\n", err)
		return
	}
	if len(hits) == 0 {
		fmt.Println("no matches")
		return
	}
	for _, h := range hits {
		text := h.Text
		if len(text) > 80 {
			text = text[:80] + "..."
		}
		fmt.Printf("[%s/%s] %s: %s\n", h.SessionName, h.Mode, h.Sender, text)
	}
}

func (a *app) printSessions() {
	list := a.repo.List()
	if len(list) == 0 {
		fmt.Println("no sessions")
		return
	}
	curID := a.selector.CurrentID()
	for _, s := range list {
		marker := " "
		if s.ID == curID {
			marker = "*"
		}
		updated := time.UnixMilli(s.LastUpdated).Format("2006-01-02 15:04")
		fmt.Printf("%s %s  %-30s  %s\n", marker, s.ID, s.Name, updated)
	}
}

func (a *app) printCurrent() {
	cur, ok := a.selector.Current()
	if !ok {
		fmt.Println("No current session — /new to create one")
		return
	}
	fmt.Printf("Current session: %s (%s)\n", cur.Name, cur.ID)
}

func (a *app) printHelp() {
	fmt.Print(`Commands:
  /new               create a session and switch to it
  /sessions          list sessions (* marks the current one)
  /switch <id>       switch to a session
  /rename <name>     rename the current session
  /delete [id]       delete a session (default: current)
  /duplicate         copy the current session
  /mode <m>          set the chat mode (` + modeList() + `)
  /search <words>    keyword search across all session history
  /export            write the current mode's transcript to markdown
  /report [query]    write the last research response as a report
  /archive           export the current session to a JSON archive
  /import <file>     import a session archive
  /clear             delete all sessions
  /quit              exit
`)
}

func modeList() string {
	names := make([]string, len(session.Modes))
	for i, m := range session.Modes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}
