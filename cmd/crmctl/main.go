// Package main provides the CLI entry point for crmctl, a terminal client
// for the CRM backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/yashgupta8707/jubilant-system/internal/api"
	"github.com/yashgupta8707/jubilant-system/internal/config"
	"github.com/yashgupta8707/jubilant-system/internal/logger"
	"github.com/yashgupta8707/jubilant-system/internal/metrics"
	"github.com/yashgupta8707/jubilant-system/internal/route"
	"github.com/yashgupta8707/jubilant-system/internal/session"
)

// Version information (populated at build time)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// errUsage marks errors caused by invalid command lines
var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app carries the state shared by the subcommands
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	in      io.Reader
	out     io.Writer
	errOut  io.Writer
	format  string

	sess   *session.Session
	client *api.Client
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("crmctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath  string
		baseURL     string
		tokenFile   string
		verbose     bool
		format      string
		showVersion bool
	)
	fs.StringVar(&configPath, "config", "", "Path to the configuration file")
	fs.StringVar(&configPath, "c", "", "Path to the configuration file (shorthand)")
	fs.StringVar(&baseURL, "base-url", "", "Override the backend base URL")
	fs.StringVar(&tokenFile, "token-file", "", "Override the token file path")
	fs.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	fs.BoolVar(&verbose, "v", false, "Enable debug logging (shorthand)")
	fs.StringVar(&format, "output", formatTable, "Output format: table, json or yaml")
	fs.BoolVar(&showVersion, "version", false, "Show version information")
	fs.Usage = func() { printUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if showVersion {
		printVersion(stdout)
		return 0
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "Error: a command is required")
		fmt.Fprintln(stderr)
		printUsage(stderr)
		return 2
	}
	if !validFormat(format) {
		fmt.Fprintf(stderr, "Error: unknown output format %q\n", format)
		return 2
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading configuration: %v\n", err)
		return 1
	}
	if baseURL != "" {
		cfg.API.BaseURL = baseURL
	}
	if tokenFile != "" {
		cfg.Session.TokenFile = tokenFile
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	command, rest := fs.Arg(0), fs.Args()[1:]
	logCfg := &logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output}
	if command == "serve-mock" && configPath == "" && !verbose {
		logCfg = logger.ServerConfig()
	}
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error creating logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	a := &app{
		cfg:     cfg,
		logger:  log,
		metrics: metrics.New(),
		in:      stdin,
		out:     stdout,
		errOut:  stderr,
		format:  format,
	}

	if cfg.Metrics.Addr != "" && command != "serve-mock" {
		go func() {
			if err := a.metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
				log.Warn("metrics endpoint stopped", zap.Error(err))
			}
		}()
	}

	var cmdErr error
	switch command {
	case "login":
		cmdErr = a.login(ctx, rest)
	case "logout":
		cmdErr = a.logout(ctx, rest)
	case "search":
		cmdErr = a.search(ctx, rest)
	case "party":
		cmdErr = a.party(ctx, rest)
	case "quotation":
		cmdErr = a.quotation(ctx, rest)
	case "serve-mock":
		cmdErr = a.serveMock(ctx, rest)
	case "version":
		printVersion(stdout)
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n", command)
		printUsage(stderr)
		return 2
	}

	if cmdErr != nil {
		if errors.Is(cmdErr, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", cmdErr)
		if errors.Is(cmdErr, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

// api returns the client, creating the session and client on first use.
func (a *app) api() (*api.Client, error) {
	if a.client != nil {
		return a.client, nil
	}

	var store session.TokenStore
	if a.cfg.Session.TokenFile != "" {
		store = session.NewFileStore(a.cfg.Session.TokenFile)
	}
	nav := route.NavigatorFunc(func(path string) {
		if path == route.Login {
			fmt.Fprintln(a.errOut, "Session expired or not authorized. Run 'crmctl login' to sign in.")
		}
	})
	sess := session.New(store, session.WithNavigator(nav), session.WithLogger(a.logger))
	if err := sess.Init(); err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	client, err := api.NewClient(api.Config{
		BaseURL:        a.cfg.API.BaseURL,
		Prefix:         a.cfg.API.Prefix,
		Timeout:        a.cfg.API.Timeout,
		RateLimitQPS:   a.cfg.API.RateLimitQPS,
		RateLimitBurst: a.cfg.API.RateLimitBurst,
		MaxRetries:     a.cfg.API.MaxRetries,
		RetryDelay:     a.cfg.API.RetryDelay,
	},
		api.WithSession(sess),
		api.WithLogger(a.logger),
		api.WithMetrics(a.metrics),
	)
	if err != nil {
		return nil, err
	}
	a.sess = sess
	a.client = client
	return client, nil
}

// usageError wraps a command-line problem
func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// newFlagSet creates a subcommand flag set writing to the error output
func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("crmctl "+name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "crmctl %s\n", version)
	fmt.Fprintf(w, "  Build time: %s\n", buildTime)
	fmt.Fprintf(w, "  Git commit: %s\n", gitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `crmctl - CRM terminal client

USAGE:
    crmctl [global options] <command> [command options]

GLOBAL OPTIONS:
    -config, -c <path>    Configuration file (crmctl.toml|yaml|json)
    -base-url <url>       Override the backend base URL
    -token-file <path>    Override the token file
    -output <format>      table, json or yaml (default table)
    -verbose, -v          Enable debug logging
    -version              Show version information

COMMANDS:
    login -user <name> [-password <pw>]
                          Sign in and store the token
    logout                Sign out and remove the stored token
    search                Interactive catalog search. Each input line updates
                          the query; lines starting with ':' are commands
                          (:help lists them)
    party get -id <id>
    party list [-search <text>]
    party create -name -phone -address [-email -source -priority
                 -deal-status -requirements -tag <t>... -comment]
    party edit -id <id> [same fields as create] [-untag <t>...]
    party delete -id <id>
    party comment -id <id> -text <text>
    quotation list [-party <id>]
    quotation get -id <id>
    serve-mock [-addr <addr>] [-models N] [-parties N] [-seed N] [-require-auth]
                          Run the in-memory mock backend

ENVIRONMENT:
    Every configuration key can be set with the CRM_ prefix, for example
    CRM_API_BASE_URL or CRM_SESSION_TOKEN_FILE. A .env file is read first.

EXAMPLES:
    crmctl serve-mock -addr :5000
    crmctl login -user admin -password admin
    crmctl party list -search acme -output json
    crmctl party edit -id P-1001 -untag Urgent -comment "no longer urgent"
    echo "router" | crmctl search
`)
}
