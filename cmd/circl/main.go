// Package main is the Circl terminal chat client.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/circl-ai/circl/internal/astralis"
	"github.com/circl-ai/circl/internal/auth"
	"github.com/circl-ai/circl/internal/config"
	"github.com/circl-ai/circl/internal/ui"
	"github.com/circl-ai/circl/pkg/logger"
)

const usage = `circl - conversational career/network intelligence client

Usage:
  circl login <id-token>     exchange a Google OIDC id_token for app tokens
  circl logout               discard stored credentials
  circl whoami               show the authenticated account
  circl sessions             list chat sessions, newest first
  circl delete <session-id>  delete a session
  circl chat [session-id]    open an interactive chat (new session by default)
  circl summarize <session-id> <query...>
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()

	log, err := logger.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	store := auth.NewFileStore(cfg.TokenFile)
	authClient := auth.NewClient(cfg.AuthBaseURL, nil, store, log)
	client := astralis.New(cfg.AstralisBaseURL, cfg.SessionBaseURL, auth.HTTPClient(authClient), log)

	ctx := context.Background()

	switch os.Args[1] {
	case "login":
		err = runLogin(ctx, authClient, os.Args[2:])
	case "logout":
		err = authClient.Logout()
	case "whoami":
		err = runWhoami(ctx, authClient)
	case "sessions":
		err = runSessions(ctx, client)
	case "delete":
		err = runDelete(ctx, client, os.Args[2:])
	case "chat":
		err = runChat(ctx, cfg, authClient, client, os.Args[2:])
	case "summarize":
		err = runSummarize(ctx, client, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		if errors.Is(err, auth.ErrAuthRequired) {
			fmt.Fprintln(os.Stderr, "authentication required: run `circl login <id-token>`")
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func runLogin(ctx context.Context, authClient *auth.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: circl login <id-token>")
	}

	user, err := authClient.GoogleLogin(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Logged in as %s %s <%s>\n", user.FirstName, user.LastName, user.Email)
	return nil
}

func runWhoami(ctx context.Context, authClient *auth.Client) error {
	user, err := authClient.Validate(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s <%s>\n", user.FirstName, user.LastName, user.Email)
	return nil
}

func runSessions(ctx context.Context, client *astralis.Client) error {
	sessions, err := client.ListSessions(ctx)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("no sessions")
		return nil
	}
	for _, s := range sessions {
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%s  %s  %s\n", s.SessionID, s.CreatedAt.Local().Format("2006-01-02 15:04"), title)
	}
	return nil
}

func runDelete(ctx context.Context, client *astralis.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: circl delete <session-id>")
	}
	if err := client.DeleteSession(ctx, args[0]); err != nil {
		return err
	}
	fmt.Println("deleted")
	return nil
}

func runSummarize(ctx context.Context, client *astralis.Client, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: circl summarize <session-id> <query...>")
	}

	summary, err := client.Summarize(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Println(summary)
	return nil
}

func runChat(ctx context.Context, cfg *config.Config, authClient *auth.Client, client *astralis.Client, args []string) error {
	user, err := authClient.Validate(ctx)
	if err != nil {
		return err
	}

	var resumeID string
	if len(args) > 0 {
		resumeID = args[0]
	}

	// The chat view owns the terminal; zap would tear the alternate screen,
	// so the in-view manager gets a silent logger.
	m := ui.New(client, logger.NewNop(), user, resumeID, cfg.QueryTimeout)

	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if final, ok := final.(ui.Model); ok && final.Err() != nil {
		return final.Err()
	}
	return nil
}
