package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"chatr/internal/client"
	"chatr/internal/config"
	"chatr/internal/protocol"
)

const usage = `commands:
  /open <userId>   open the conversation with userId
  /chats           list conversations
  /quit            exit
anything else is sent to the open conversation`

func main() {
	cfg := config.LoadClientConfig()

	server := flag.String("server", cfg.ServerURL, "chatr server base URL")
	phone := flag.String("phone", "", "login phone number")
	password := flag.String("password", os.Getenv("CHATR_PASSWORD"), "login password (or CHATR_PASSWORD)")
	peer := flag.String("peer", "", "user id to open on start")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	cfg.ServerURL = *server
	if *phone == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: chatr-cli -phone <phone> -password <password> [-server url] [-peer id]")
		os.Exit(2)
	}

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		logger = l
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *phone, *password, *peer, logger); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.ClientConfig, phone, password, peer string, logger *zap.Logger) error {
	login, err := client.NewAPI(cfg.ServerURL, cfg.DialTimeout).Login(ctx, phone, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	self := login.User.ID
	fmt.Printf("logged in as %s (%s)\n", login.User.FullName, self)

	c, err := client.New(cfg, self, login.Token, nil, logger)
	if err != nil {
		return err
	}

	out := &printer{self: self}
	c.OnChange(out.print)
	c.OnStateChange(func(st client.State) {
		fmt.Printf("* %s\n", st)
	})
	c.OnError(func(e protocol.Error) {
		fmt.Printf("! %s: %s\n", e.Code, e.Message)
	})

	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()

	if peer != "" {
		openConversation(ctx, c, peer, out)
	}

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	fmt.Println(usage)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-runErr:
			if errors.Is(err, client.ErrReconnectExhausted) {
				fmt.Println("* connection lost for good, messages will be sent over http")
				continue
			}
			return err
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := handleLine(ctx, c, strings.TrimSpace(line), out); quit {
				return nil
			}
		}
	}
}

func handleLine(ctx context.Context, c *client.Client, line string, out *printer) bool {
	switch {
	case line == "":
	case line == "/quit":
		return true
	case line == "/chats":
		chats, err := c.API().ListChats(ctx, c.Self())
		if err != nil {
			fmt.Printf("! %v\n", err)
			return false
		}
		for _, u := range chats {
			fmt.Printf("  %s  %s (%s)\n", u.ID, u.FullName, u.Phone)
		}
	case strings.HasPrefix(line, "/open "):
		openConversation(ctx, c, strings.TrimSpace(strings.TrimPrefix(line, "/open ")), out)
	case strings.HasPrefix(line, "/"):
		fmt.Println(usage)
	default:
		if err := c.Send(ctx, line); err != nil {
			fmt.Printf("! send failed: %v\n", err)
		}
	}
	return false
}

func openConversation(ctx context.Context, c *client.Client, peer string, out *printer) {
	out.reset()
	if err := c.Open(ctx, peer); err != nil {
		fmt.Printf("! cannot open %s: %v\n", peer, err)
		return
	}
	fmt.Printf("* chatting with %s\n", peer)
}

// printer writes the messages that were appended since the last snapshot.
type printer struct {
	self    string
	mu      sync.Mutex
	printed int
}

func (p *printer) reset() {
	p.mu.Lock()
	p.printed = 0
	p.mu.Unlock()
}

func (p *printer) print(messages []protocol.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(messages) < p.printed {
		p.printed = 0
	}
	for _, m := range messages[p.printed:] {
		who := m.SenderID
		if m.SenderID == p.self {
			who = "me"
		}
		fmt.Printf("[%s] %s: %s\n", m.Timestamp.Local().Format(time.Kitchen), who, m.Text)
	}
	p.printed = len(messages)
}
