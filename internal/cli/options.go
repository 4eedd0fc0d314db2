package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"shoe_pos/internal/config"
)

const usageText = `Usage: pos-admin [flags] <command> [args]

Commands:
  login --email <email> [--password <password>]
  logout
  whoami
  pos                         ring up sales (scan, adjust, checkout)
  labels barcode|qr [flags]   render printable barcode labels or QR sheets
  sales list|show|summary|trend
  stock list|history|adjust
  dashboard
  product <subcommand>        create or edit a product draft
  ask [question]              ask the sales assistant

Flags:
`

// Globals are the flags accepted before the command. Set values override
// the loaded configuration.
type Globals struct {
	JSON       bool
	Debug      bool
	APIBaseURL string
	StateFile  string
	LogFile    string
	Timeout    time.Duration
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	Args []string
}

// ParseGlobals parses the global flags and leaves the command and its
// arguments in Args. It returns flag.ErrHelp after printing usage for -h.
func ParseGlobals(args []string, stderr io.Writer) (Globals, error) {
	var (
		g              Globals
		timeoutSeconds int
	)

	fs := flag.NewFlagSet("pos-admin", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usageText)
		fs.PrintDefaults()
	}

	fs.BoolVar(&g.JSON, "json", false, "Output JSON")
	fs.BoolVar(&g.Debug, "debug", false, "Enable debug logging (DEBUG)")
	fs.StringVar(&g.APIBaseURL, "api", "", "Backend base URL (API_BASE_URL)")
	fs.StringVar(&g.StateFile, "state-file", "", "Session and draft state file (STATE_FILE)")
	fs.StringVar(&g.LogFile, "log-file", "", "Log file path (LOG_FILE)")
	fs.IntVar(&timeoutSeconds, "timeout", 0, "Request timeout in seconds (TIMEOUT)")
	fs.StringVar(&g.LLMBaseURL, "llm-base-url", "", "LLM base URL (LLM_BASE_URL)")
	fs.StringVar(&g.LLMAPIKey, "llm-api-key", "", "LLM API key (LLM_API_KEY)")
	fs.StringVar(&g.LLMModel, "llm-model", "", "LLM model (LLM_MODEL)")

	if err := fs.Parse(args); err != nil {
		return Globals{}, err
	}
	if timeoutSeconds < 0 {
		return Globals{}, fmt.Errorf("timeout must not be negative, got %d", timeoutSeconds)
	}
	g.Timeout = time.Duration(timeoutSeconds) * time.Second
	g.Args = fs.Args()
	if len(g.Args) == 0 {
		fs.Usage()
		return Globals{}, flag.ErrHelp
	}
	return g, nil
}

// Apply returns cfg with every flag that was given on the command line.
func (g Globals) Apply(cfg config.Config) config.Config {
	if g.Debug {
		cfg.Debug = true
	}
	if g.Timeout > 0 {
		cfg.Timeout = g.Timeout
	}
	override(&cfg.APIBaseURL, g.APIBaseURL)
	override(&cfg.StateFile, g.StateFile)
	override(&cfg.LogFile, g.LogFile)
	override(&cfg.LLMBaseURL, g.LLMBaseURL)
	override(&cfg.LLMAPIKey, g.LLMAPIKey)
	override(&cfg.LLMModel, g.LLMModel)
	return cfg
}

func override(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}
