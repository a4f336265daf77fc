// Command chat is an interactive terminal client for the relay. It drives the
// conversation engine: prompts are submitted line by line, responses stream
// into the terminal as they arrive, and every turn is persisted locally.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MegaGrindStone/gemini-web-ui/internal/api"
	"github.com/MegaGrindStone/gemini-web-ui/internal/engine"
	"github.com/MegaGrindStone/gemini-web-ui/internal/export"
	"github.com/MegaGrindStone/gemini-web-ui/internal/models"
	"github.com/MegaGrindStone/gemini-web-ui/internal/services"
)

func main() {
	serverURL := flag.String("server", "http://localhost:5000", "relay base URL")
	dbPath := flag.String("db", "", "path to the local store (defaults to the user config dir)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	path := *dbPath
	if path == "" {
		cfgDir, err := os.UserConfigDir()
		if err != nil {
			log.Fatal(fmt.Errorf("error getting user config dir: %w", err))
		}
		if err := os.MkdirAll(filepath.Join(cfgDir, "gemini-web-ui"), 0755); err != nil {
			log.Fatal(fmt.Errorf("error creating config directory: %w", err))
		}
		path = filepath.Join(cfgDir, "gemini-web-ui", "store.db")
	}

	store, err := services.NewBoltDB(path, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	client := api.NewClient(*serverURL, nil)
	eng, err := engine.New(store, client, logger)
	if err != nil {
		log.Fatal(err)
	}

	// Stream chunks to the terminal as the open assistant message grows.
	printed := 0
	eng.OnUpdate = func(msg models.Message) {
		if msg.Role != models.RoleAssistant {
			printed = 0
			return
		}
		if len(msg.Content) > printed {
			fmt.Print(msg.Content[printed:])
			printed = len(msg.Content)
		}
	}

	fmt.Println("gemini-web-ui chat — type a prompt, or /help for commands")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	ctx := context.Background()
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := runCommand(ctx, eng, client, line); quit {
				return
			}
			continue
		}

		printed = 0
		if err := eng.Submit(ctx, line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println()
	}
}

func runCommand(ctx context.Context, eng *engine.Engine, client *api.Client, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Println(`commands:
  /new                start a fresh conversation
  /list               list conversations
  /open <id>          open a conversation
  /retry              retry the last assistant response
  /rename <id> <t>    rename a conversation
  /delete <id>        delete a conversation
  /pin <id>           pin or unpin a conversation
  /attach <file>      stage a file for the next prompt
  /model <name>       set the model
  /temp <value>       set the temperature (0..2)
  /ask <prompt>       one-shot request without streaming or history
  /templates          list saved prompt templates
  /tsave <t> | <p>    save prompt p as a template titled t
  /tuse <id>          submit a saved template
  /tdel <id>          delete a template
  /export <path>      export the open conversation to HTML
  /quit               exit`)

	case "/new":
		if err := eng.NewChat(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}

	case "/list":
		for _, s := range eng.Summaries() {
			pin := " "
			if s.Pinned {
				pin = "*"
			}
			fmt.Printf("%s %s  %s\n", pin, s.ID, s.Title)
		}

	case "/open":
		msgs, err := eng.LoadChat(ctx, arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			break
		}
		if msgs == nil {
			fmt.Println("no such conversation")
			break
		}
		for _, m := range msgs {
			fmt.Printf("[%s] %s\n", m.Role, m.Content)
		}

	case "/retry":
		msgs := eng.Messages()
		for i := len(msgs) - 1; i >= 0; i-- {
			if msgs[i].Role == models.RoleAssistant {
				if err := eng.Retry(ctx, msgs[i].ID); err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
				} else {
					fmt.Println()
				}
				break
			}
		}

	case "/rename":
		id, title, ok := strings.Cut(arg, " ")
		if !ok {
			fmt.Println("usage: /rename <id> <title>")
			break
		}
		if err := eng.Rename(ctx, id, strings.TrimSpace(title)); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}

	case "/delete":
		if err := eng.Delete(ctx, arg); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}

	case "/pin":
		if err := eng.Pin(ctx, arg); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}

	case "/attach":
		data, err := os.ReadFile(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			break
		}
		if _, err := eng.Attach(filepath.Base(arg), mimeFromExt(arg), data); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			break
		}
		fmt.Printf("staged %s (%d bytes)\n", filepath.Base(arg), len(data))

	case "/model":
		cfg := eng.Config()
		cfg.Model = arg
		if err := eng.SetConfig(ctx, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}

	case "/temp":
		t, err := strconv.ParseFloat(arg, 64)
		if err != nil || t < 0 || t > 2 {
			fmt.Println("temperature must be a number in [0,2]")
			break
		}
		cfg := eng.Config()
		cfg.Temperature = t
		if err := eng.SetConfig(ctx, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}

	case "/ask":
		if arg == "" {
			fmt.Println("usage: /ask <prompt>")
			break
		}
		cfg := eng.Config()
		resp, err := client.SendChat(ctx, models.ChatRequest{
			Prompt: arg,
			Config: &models.ConfigOverride{Model: cfg.Model, Temperature: &cfg.Temperature},
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			break
		}
		if !resp.Success {
			fmt.Fprintf(os.Stderr, "error: %s\n", resp.Error)
			break
		}
		fmt.Println(resp.Response)

	case "/templates":
		for _, tm := range eng.Templates() {
			fmt.Printf("%s  %s\n", tm.ID, tm.Title)
		}

	case "/tsave":
		title, prompt, ok := strings.Cut(arg, "|")
		title, prompt = strings.TrimSpace(title), strings.TrimSpace(prompt)
		if !ok || title == "" || prompt == "" {
			fmt.Println("usage: /tsave <title> | <prompt>")
			break
		}
		tmpl, err := eng.AddTemplate(ctx, title, prompt)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			break
		}
		fmt.Printf("saved template %s\n", tmpl.ID)

	case "/tuse":
		for _, tm := range eng.Templates() {
			if tm.ID == arg {
				if err := eng.Submit(ctx, tm.Prompt); err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
				} else {
					fmt.Println()
				}
				return false
			}
		}
		fmt.Println("no such template")

	case "/tdel":
		if err := eng.DeleteTemplate(ctx, arg); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}

	case "/export":
		if arg == "" {
			fmt.Println("usage: /export <path>")
			break
		}
		conv := currentConversation(eng)
		if err := export.WriteFile(arg, conv); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			break
		}
		fmt.Printf("exported to %s\n", arg)

	default:
		fmt.Println("unknown command; try /help")
	}
	return false
}

func currentConversation(eng *engine.Engine) models.Conversation {
	conv := models.Conversation{
		ID:       eng.CurrentChatID(),
		Messages: eng.Messages(),
	}
	for _, s := range eng.Summaries() {
		if s.ID == conv.ID {
			conv.Title = s.Title
			conv.Pinned = s.Pinned
			break
		}
	}
	return conv
}

func mimeFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
