package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"carebridge/client"
)

// chatcli opens one conversation from a terminal: incoming messages are
// printed as they arrive over the socket or the poll fallback, and each
// stdin line is sent as a message. With no -conversation flag it lists
// the caller's conversations instead.
func main() {
	base := flag.String("base", "http://localhost:8000", "backend base URL")
	token := flag.String("token", os.Getenv("CAREBRIDGE_TOKEN"), "bearer token (or CAREBRIDGE_TOKEN)")
	userID := flag.String("user", "", "own user id")
	role := flag.String("role", "patient", "own role (patient|doctor)")
	conv := flag.String("conversation", "", "conversation id to open; empty lists conversations")
	flag.Parse()

	if *token == "" {
		log.Fatal("[chatcli] a token is required: -token or CAREBRIDGE_TOKEN")
	}

	sess := client.NewSession(*token, *userID, *role, time.Time{})
	c := client.New(client.Config{BaseURL: *base}, sess)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *conv == "" {
		convs, err := c.Conversations(ctx)
		if err != nil {
			log.Fatalf("[chatcli] list conversations: %v", err)
		}
		if len(convs) == 0 {
			fmt.Println("no conversations")
			return
		}
		for _, cv := range convs {
			state := "chat disabled"
			if cv.ChatEnabled {
				state = "chat enabled"
			}
			fmt.Printf("%-12s %-24s %s, %d unread\n\t%s\n",
				cv.ConversationID, cv.PartnerName+" ("+cv.PartnerRole+")", state, cv.UnreadCount, cv.LastMessage)
		}
		return
	}

	c.OnMessage(func(m client.Message) {
		printMessage(m)
	})
	c.OnStateChange(func(st client.ConnState, attempt int) {
		if st == client.StateConnecting && attempt > 1 {
			log.Printf("[chatcli] socket down, reconnecting (attempt %d)", attempt)
		}
	})

	if err := c.Open(*conv); err != nil {
		log.Fatalf("[chatcli] open %s: %v", *conv, err)
	}
	defer c.Close()

	history, err := c.History(ctx, *conv)
	if err != nil {
		log.Fatalf("[chatcli] load history: %v", err)
	}
	for _, m := range history {
		printMessage(m)
	}
	if _, err := c.MarkRead(ctx, *conv); err != nil {
		log.Printf("[chatcli] mark read: %v", err)
	}

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			c.SetDraft(text)
			if _, err := c.SendDraft(ctx); err != nil {
				log.Printf("[chatcli] send failed, draft kept: %v", err)
			}
		}
		stop()
	}()

	<-ctx.Done()
}

func printMessage(m client.Message) {
	who := m.SenderName
	if who == "" {
		who = m.SenderID
	}
	body := m.Message
	if m.FileURL != "" {
		body = fmt.Sprintf("%s [%s]", m.Message, m.FileURL)
	}
	fmt.Printf("[%s] %s: %s\n", m.Timestamp.Local().Format("15:04"), who, body)
}
