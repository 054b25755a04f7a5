package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	apiclient "github.com/ksmcod/tasky-api/pkg/api/client"
)

const defaultAPIBase = "http://localhost:3000"

type cliConfig struct {
	APIBaseURL   string `json:"api_base_url"`
	SessionToken string `json:"session_token"`
}

var buildVersion = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "register":
		err = commandRegister(args)
	case "login":
		err = commandLogin(args)
	case "logout":
		err = commandLogout()
	case "whoami":
		err = commandWhoami()
	case "team":
		err = commandTeam(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func commandRegister(args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	first := fs.String("first", "", "First name")
	last := fs.String("last", "", "Last name")
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	apiBase := fs.String("api", "", "API base URL (default "+defaultAPIBase+")")
	fs.Parse(args)

	secret, err := passwordOrPrompt(*password)
	if err != nil {
		return err
	}
	cfg, _ := loadConfig()
	if strings.TrimSpace(*apiBase) != "" {
		cfg.APIBaseURL = *apiBase
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext()
	defer cancel()
	user, err := client.Register(ctx, *first, *last, *email, secret)
	if err != nil {
		return err
	}
	fmt.Printf("registered %s <%s>\n", user.Name, user.Email)
	return saveConfig(cfg)
}

func commandLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	apiBase := fs.String("api", "", "API base URL (default "+defaultAPIBase+")")
	fs.Parse(args)

	if strings.TrimSpace(*email) == "" {
		return errors.New("--email is required")
	}
	secret, err := passwordOrPrompt(*password)
	if err != nil {
		return err
	}

	cfg, _ := loadConfig()
	if strings.TrimSpace(*apiBase) != "" {
		cfg.APIBaseURL = *apiBase
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext()
	defer cancel()
	user, err := client.Login(ctx, *email, secret)
	if err != nil {
		return err
	}
	cfg.SessionToken = client.SessionToken()
	if cfg.SessionToken == "" {
		return errors.New("server did not issue a session cookie")
	}
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Printf("logged in as %s\n", user.Name)
	return nil
}

func commandLogout() error {
	cfg, client, err := sessionClient()
	if err != nil {
		return err
	}
	ctx, cancel := requestContext()
	defer cancel()
	if err := client.Logout(ctx); err != nil {
		return err
	}
	cfg.SessionToken = ""
	return saveConfig(cfg)
}

func commandWhoami() error {
	_, client, err := sessionClient()
	if err != nil {
		return err
	}
	ctx, cancel := requestContext()
	defer cancel()
	user, err := client.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s>\n", user.Name, user.Email)
	return nil
}

func commandTeam(args []string) error {
	if len(args) == 0 {
		return errors.New("team subcommand required (list|create|join|members|leave|remove|delete)")
	}
	_, client, err := sessionClient()
	if err != nil {
		return err
	}
	ctx, cancel := requestContext()
	defer cancel()

	sub, rest := args[0], args[1:]
	switch sub {
	case "list":
		teams, err := client.ListTeams(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CODE\tNAME\tROLE\tJOINED")
		for _, t := range teams {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.JoinCode, t.Name, t.Role, t.JoinedAt.Format(time.RFC3339))
		}
		return w.Flush()
	case "create":
		fs := flag.NewFlagSet("team create", flag.ExitOnError)
		name := fs.String("name", "", "Team name")
		description := fs.String("description", "", "Team description")
		fs.Parse(rest)
		team, err := client.CreateTeam(ctx, *name, *description)
		if err != nil {
			return err
		}
		fmt.Printf("created %s (join code %s)\n", team.Name, team.JoinCode)
		return nil
	case "join":
		code, err := requireArg(rest, "join code")
		if err != nil {
			return err
		}
		msg, err := client.JoinTeam(ctx, code)
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	case "members":
		code, err := requireArg(rest, "join code")
		if err != nil {
			return err
		}
		members, err := client.ListMembers(ctx, code)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tEMAIL\tROLE")
		for _, m := range members {
			fmt.Fprintf(w, "%s\t%s\t%s\n", m.Name, m.Email, m.Role)
		}
		return w.Flush()
	case "leave":
		code, err := requireArg(rest, "join code")
		if err != nil {
			return err
		}
		return client.LeaveTeam(ctx, code)
	case "remove":
		if len(rest) < 2 {
			return errors.New("usage: tasky team remove <join-code> <email>")
		}
		return client.RemoveMember(ctx, rest[0], rest[1])
	case "delete":
		code, err := requireArg(rest, "join code")
		if err != nil {
			return err
		}
		return client.DeleteTeam(ctx, code)
	default:
		return fmt.Errorf("unknown team subcommand: %s", sub)
	}
}

func requireArg(args []string, name string) (string, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return strings.TrimSpace(args[0]), nil
}

func passwordOrPrompt(flagValue string) (string, error) {
	if secret := strings.TrimSpace(flagValue); secret != "" {
		return secret, nil
	}
	fmt.Print("Password: ")
	bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Print("\n")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(bytes), nil
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 15*time.Second)
}

func sessionClient() (cliConfig, *apiclient.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cliConfig{}, nil, err
	}
	if cfg.SessionToken == "" {
		return cliConfig{}, nil, errors.New("not logged in, run `tasky login` first")
	}
	client, err := apiclient.New(cfg.APIBaseURL, apiclient.WithSessionToken(cfg.SessionToken))
	if err != nil {
		return cliConfig{}, nil, err
	}
	return cfg, client, nil
}

func loadConfig() (cliConfig, error) {
	path, err := configPath()
	if err != nil {
		return cliConfig{APIBaseURL: defaultAPIBase}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cliConfig{APIBaseURL: defaultAPIBase}, nil
		}
		return cliConfig{APIBaseURL: defaultAPIBase}, err
	}
	var cfg cliConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cliConfig{APIBaseURL: defaultAPIBase}, err
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBase
	}
	return cfg, nil
}

func saveConfig(cfg cliConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func configPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "tasky", "config.json"), nil
}

func printUsage() {
	fmt.Printf("tasky CLI %s\n\n", buildVersion)
	fmt.Print(`Usage:
	tasky register --first Ada --last Lovelace --email ada@example.com [--password secret] [--api URL]
	tasky login --email ada@example.com [--password secret] [--api URL]
	tasky logout
	tasky whoami
	tasky team list
	tasky team create --name <name> [--description <text>]
	tasky team join <join-code>
	tasky team members <join-code>
	tasky team leave <join-code>
	tasky team remove <join-code> <email>
	tasky team delete <join-code>
	tasky version
`)
}

func printVersion() {
	fmt.Println(strings.TrimSpace(buildVersion))
}
