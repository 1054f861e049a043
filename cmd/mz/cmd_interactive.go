package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"mzassist/internal/chat"
	"mzassist/internal/types"
)

// runInteractiveChat is the default entrypoint: a line-based REPL over
// the conversation manager.
func runInteractiveChat() error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	mode := rt.manager.DefaultMode()

	fmt.Println("MZ — اكتب رسالتك، أو /help لعرض الأوامر.")
	conv := rt.manager.Active()
	printReply(conv.Messages[0])

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := handleCommand(rt, line, &mode)
			if err != nil {
				fmt.Println("Error:", err)
			}
			if quit {
				return nil
			}
			continue
		}

		reply, err := rt.manager.Send(ctx, []types.Part{types.TextPart(line)}, mode)
		if err != nil {
			if errors.Is(err, chat.ErrBusy) {
				fmt.Println("انتظر حتى تكتمل الرسالة الحالية.")
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			fmt.Println("Error:", err)
			continue
		}
		printReply(reply)
	}
}

// handleCommand dispatches a slash command. The returned bool requests
// exit.
func handleCommand(rt *runtime, line string, mode *types.ChatMode) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil

	case "/help":
		fmt.Println(`/new              start a new conversation
/list             list conversations
/select <n>       switch to conversation n from the list
/delete <n>       delete conversation n from the list
/mode <mode>      set response mode (default, google_search, quick_response, learning)
/creations        list created artifacts
/quit             exit`)
		return false, nil

	case "/new":
		conv, err := rt.manager.StartNew()
		if err != nil {
			return false, err
		}
		printReply(conv.Messages[0])
		return false, nil

	case "/list":
		for i, conv := range rt.manager.List() {
			marker := " "
			if conv.ID == rt.manager.Active().ID {
				marker = "*"
			}
			when := time.UnixMilli(conv.Timestamp).Format("01-02 15:04")
			fmt.Printf("%s %2d. [%s] %s\n", marker, i+1, when, conv.Title)
		}
		return false, nil

	case "/select", "/delete":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: %s <n>", fields[0])
		}
		var n int
		if _, err := fmt.Sscanf(fields[1], "%d", &n); err != nil {
			return false, fmt.Errorf("not a number: %s", fields[1])
		}
		list := rt.manager.List()
		if n < 1 || n > len(list) {
			return false, fmt.Errorf("no conversation %d", n)
		}
		if fields[0] == "/delete" {
			return false, rt.manager.Delete(list[n-1].ID)
		}
		rt.manager.Select(list[n-1].ID)
		return false, nil

	case "/mode":
		if len(fields) < 2 {
			fmt.Println("current mode:", *mode)
			return false, nil
		}
		next := types.ChatMode(fields[1])
		if !next.Valid() {
			return false, fmt.Errorf("unknown mode %q", fields[1])
		}
		*mode = next
		return false, nil

	case "/creations":
		for _, e := range rt.ledger.List() {
			fmt.Printf("%-12s %-10s %s\n", e.Type, e.Status, truncate(e.Prompt, 50))
		}
		return false, nil
	}
	return false, fmt.Errorf("unknown command %s", fields[0])
}
