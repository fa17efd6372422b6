package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/PMGEECODE/destinypal-sub002/internal/config"
	"github.com/PMGEECODE/destinypal-sub002/internal/models"
	"github.com/PMGEECODE/destinypal-sub002/internal/session"
	"github.com/PMGEECODE/destinypal-sub002/pkg/httpclient"
)

const usage = `Usage: destinypal <command> [flags]

Commands:
  login             Sign in and print the account (prompts for a 2FA code when required)
  whoami            Print the account behind the current session, if any
  register-sponsor  Register a sponsor account
  verify-email      Confirm an email address with a verification token
  reset-request     Request a password reset email
  reset-confirm     Set a new password with a reset token
`

func main() {
	logLevel := slog.LevelWarn
	if strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug") {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load configuration", err)
	}

	client, err := httpclient.New(cfg.API.NormalizedBaseURL(), cfg.API.Timeout, logger)
	if err != nil {
		fatal("failed to build API client", err)
	}
	manager := session.NewManager(client, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "login":
		err = runLogin(ctx, manager, os.Args[2:])
	case "whoami":
		err = runWhoami(ctx, manager)
	case "register-sponsor":
		err = runRegisterSponsor(ctx, manager, os.Args[2:])
	case "verify-email":
		err = runVerifyEmail(ctx, manager, os.Args[2:])
	case "reset-request":
		err = runResetRequest(ctx, manager, os.Args[2:])
	case "reset-confirm":
		err = runResetConfirm(ctx, manager, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

func runLogin(ctx context.Context, manager *session.Manager, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (prompted when omitted)")
	fs.Parse(args)

	if *email == "" {
		return fmt.Errorf("-email is required")
	}
	if *password == "" {
		*password = prompt("Password: ")
	}

	result, err := manager.Login(ctx, *email, *password)
	if err != nil {
		return err
	}

	if result.RequiresTwoFactor {
		state := manager.State()
		dest := ""
		if state.PendingVerification != nil {
			dest = state.PendingVerification.Destination
		}
		fmt.Printf("Two-factor verification required (%s", state.TwoFactorMethod)
		if dest != "" {
			fmt.Printf(", sent to %s", dest)
		}
		fmt.Println(")")

		code := prompt("Code: ")
		if err := manager.VerifyTwoFactor(ctx, code); err != nil {
			return err
		}
	}

	return printAccount(os.Stdout, manager)
}

func runWhoami(ctx context.Context, manager *session.Manager) error {
	manager.Bootstrap(ctx)
	state := manager.State()
	if !state.IsAuthenticated {
		return fmt.Errorf("not signed in")
	}
	return printAccount(os.Stdout, manager)
}

func runRegisterSponsor(ctx context.Context, manager *session.Manager, args []string) error {
	fs := flag.NewFlagSet("register-sponsor", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (prompted when omitted)")
	fullName := fs.String("name", "", "full name")
	idNumber := fs.String("id-number", "", "national ID number")
	phone := fs.String("phone", "", "phone number")
	country := fs.String("country", "KE", "country code")
	county := fs.String("county", "", "county")
	fs.Parse(args)

	if *password == "" {
		*password = prompt("Password: ")
	}

	data := models.SponsorRegistration{
		Email:    *email,
		Password: *password,
		FullName: *fullName,
		IDNumber: *idNumber,
		Phone:    *phone,
		Country:  *country,
		County:   *county,
	}
	if err := manager.Register(ctx, data, models.RoleSponsor); err != nil {
		return err
	}

	state := manager.State()
	if state.PendingVerification != nil {
		fmt.Printf("Registered. Verification pending for %s.\n", state.PendingVerification.Destination)
	}
	return nil
}

func runVerifyEmail(ctx context.Context, manager *session.Manager, args []string) error {
	fs := flag.NewFlagSet("verify-email", flag.ExitOnError)
	token := fs.String("token", "", "verification token from the email")
	fs.Parse(args)

	if *token == "" {
		return fmt.Errorf("-token is required")
	}
	if err := manager.VerifyEmail(ctx, *token); err != nil {
		return err
	}
	fmt.Println("Email verified.")
	return nil
}

func runResetRequest(ctx context.Context, manager *session.Manager, args []string) error {
	fs := flag.NewFlagSet("reset-request", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	fs.Parse(args)

	if *email == "" {
		return fmt.Errorf("-email is required")
	}
	if err := manager.SendPasswordReset(ctx, *email); err != nil {
		return err
	}
	fmt.Println("If the email exists, a reset link has been sent.")
	return nil
}

func runResetConfirm(ctx context.Context, manager *session.Manager, args []string) error {
	fs := flag.NewFlagSet("reset-confirm", flag.ExitOnError)
	token := fs.String("token", "", "reset token from the email")
	password := fs.String("password", "", "new password (prompted when omitted)")
	fs.Parse(args)

	if *token == "" {
		return fmt.Errorf("-token is required")
	}
	if *password == "" {
		*password = prompt("New password: ")
	}
	if err := manager.ResetPassword(ctx, *token, *password); err != nil {
		return err
	}
	fmt.Println("Password updated.")
	return nil
}

func printAccount(w io.Writer, manager *session.Manager) error {
	state := manager.State()
	out := map[string]any{
		"user":    state.User,
		"profile": state.Profile,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func prompt(label string) string {
	fmt.Fprint(os.Stderr, label)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
