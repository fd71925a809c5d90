// Copyright 2026 The Maru Authors
// SPDX-License-Identifier: Apache-2.0

// maru-chat is a terminal client for direct messages with Maru
// sellers and the Maru support desk.
//
// First run: authenticate with --login, which prompts for the account
// password and saves a session file. Subsequent runs load the saved
// session transparently and open straight into the conversation list,
// with the support thread pinned at the top.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/maru-commerce/maru-chat/chatapi"
	"github.com/maru-commerce/maru-chat/chatui"
	"github.com/maru-commerce/maru-chat/lib/ref"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var apiURL string
	var loginAccount string
	var downloadDir string
	var logOutput string

	flagSet := pflag.NewFlagSet("maru-chat", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to config file (default: ~/.config/maru/chat.yaml)")
	flagSet.StringVar(&apiURL, "api-url", "", "base URL of the chat backend (overrides config)")
	flagSet.StringVar(&loginAccount, "login", "", "authenticate as this account ID and save the session")
	flagSet.StringVar(&downloadDir, "download-dir", "", "directory for saved attachments (overrides config)")
	flagSet.StringVar(&logOutput, "log-output", "", "write JSON log records to this file (in addition to TUI display)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	explicitConfig := configPath != ""
	if configPath == "" {
		configPath = filepath.Join(configDirectory(), "chat.yaml")
	}
	config, err := loadConfig(configPath, explicitConfig)
	if err != nil {
		return err
	}
	if apiURL != "" {
		config.APIURL = apiURL
	}
	if downloadDir != "" {
		config.DownloadDir = downloadDir
	}

	supportID, err := ref.ParseUserID(config.SupportID)
	if err != nil {
		return fmt.Errorf("invalid support_id %q in config: %w", config.SupportID, err)
	}

	if loginAccount != "" {
		return runLogin(config, loginAccount)
	}
	return runChat(config, supportID, logOutput)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Maru chat — direct messages with sellers and Maru support.

On first use, authenticate and save a session:

  maru-chat --login KH001

Then open the client with no arguments. The session file lives at
~/.config/maru/session.json (or $MARU_SESSION_FILE) with owner-only
permissions.

Usage:
  maru-chat [flags]

Examples:
  # Open the client with the saved session
  maru-chat

  # Authenticate against a staging backend
  maru-chat --login KH001 --api-url https://api.staging.maru.shop

  # Save attachment downloads somewhere specific
  maru-chat --download-dir ~/Downloads

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}

// runLogin authenticates interactively and saves the session file.
// The password is read from the terminal with echo disabled.
func runLogin(config fileConfig, account string) error {
	accountID, err := ref.ParseUserID(account)
	if err != nil {
		return fmt.Errorf("invalid account ID %q: %w", account, err)
	}

	stdinFileDescriptor := int(os.Stdin.Fd())
	if !term.IsTerminal(stdinFileDescriptor) {
		return fmt.Errorf("no terminal available for the password prompt")
	}
	fmt.Fprintf(os.Stderr, "Password for %s: ", accountID)
	passwordBytes, err := term.ReadPassword(stdinFileDescriptor)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	client, err := chatapi.NewClient(chatapi.ClientConfig{
		BaseURL:    config.APIURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	})
	if err != nil {
		return err
	}
	defer client.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	session, err := client.Login(ctx, accountID, string(passwordBytes))
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	path := sessionFilePath()
	stored := &storedSession{
		UserID:      session.UserID().String(),
		AccessToken: session.AccessToken(),
		APIURL:      config.APIURL,
	}
	if err := saveStoredSession(stored, path); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Logged in as %s\n", session.UserID())
	fmt.Fprintf(os.Stderr, "Session saved to %s\n", path)
	return nil
}

// runChat loads the saved session and runs the TUI.
//
// Background logging (from sends, downloads, and directory loads that
// fail off the key path) is routed through a ProgramLogHandler that
// surfaces warnings in the status bar instead of writing to stderr,
// which would corrupt the alt-screen display. An optional file logger
// captures all records as JSON for post-mortem debugging.
func runChat(config fileConfig, supportID ref.UserID, logOutput string) error {
	stored, err := loadStoredSession(sessionFilePath())
	if err != nil {
		return err
	}
	if stored.APIURL != "" && stored.APIURL != config.APIURL {
		return fmt.Errorf("saved session is for %s, not %s — run --login again", stored.APIURL, config.APIURL)
	}

	selfID, err := ref.ParseUserID(stored.UserID)
	if err != nil {
		return fmt.Errorf("session file has invalid user_id %q: %w", stored.UserID, err)
	}

	client, err := chatapi.NewClient(chatapi.ClientConfig{
		BaseURL:    config.APIURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	})
	if err != nil {
		return err
	}
	defer client.CloseIdleConnections()

	programHandler := chatui.NewProgramLogHandler(slog.LevelWarn)
	var logger *slog.Logger
	if logOutput != "" {
		fileHandler, fileCloser, fileErr := openFileLogHandler(logOutput)
		if fileErr != nil {
			return fmt.Errorf("cannot open log file %s: %w", logOutput, fileErr)
		}
		defer fileCloser()
		logger = slog.New(fanoutHandler{programHandler, fileHandler})
	} else {
		logger = slog.New(programHandler)
	}

	session, err := client.SessionFromToken(selfID, stored.AccessToken)
	if err != nil {
		return err
	}

	model, err := chatui.New(chatui.Config{
		Service:           session,
		SelfID:            selfID,
		SupportID:         supportID,
		Logger:            logger,
		DownloadDirectory: config.DownloadDir,
		SnapshotPath:      filepath.Join(configDirectory(), "directory.json"),
	})
	if err != nil {
		return err
	}

	program := tea.NewProgram(model, tea.WithAltScreen())
	programHandler.SetProgram(program)

	_, err = program.Run()
	return err
}

// openFileLogHandler creates a slog.JSONHandler writing to the given
// path. Returns the handler, a cleanup function that closes the file,
// and any error. The file is created or truncated.
func openFileLogHandler(path string) (slog.Handler, func(), error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	handler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
	return handler, func() { file.Close() }, nil
}

// fanoutHandler sends each record to multiple underlying handlers. A
// record is enabled if any sub-handler is enabled for that level.
type fanoutHandler []slog.Handler

func (handlers fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (handlers fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range handlers {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record); err != nil {
				return err
			}
		}
	}
	return nil
}

func (handlers fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := make(fanoutHandler, len(handlers))
	for index, handler := range handlers {
		derived[index] = handler.WithAttrs(attrs)
	}
	return derived
}

func (handlers fanoutHandler) WithGroup(name string) slog.Handler {
	derived := make(fanoutHandler, len(handlers))
	for index, handler := range handlers {
		derived[index] = handler.WithGroup(name)
	}
	return derived
}
