package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/cloo-solutions/nl2sparql/internal/cli/client"
	"github.com/cloo-solutions/nl2sparql/internal/config"
	"github.com/cloo-solutions/nl2sparql/internal/logging"
	"github.com/cloo-solutions/nl2sparql/internal/render"
	"github.com/cloo-solutions/nl2sparql/internal/service"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// Asker is the slice of the pipeline the console needs.
type Asker interface {
	Ask(ctx context.Context, question string, opts service.AskOptions) (*service.Answer, error)
}

// NewRootCmd returns the nl2sparql command tree. Without a subcommand it runs
// the interactive console.
func NewRootCmd(version string) *cobra.Command {
	var (
		question string
		verbose  bool
		noExec   bool
	)

	rootCmd := &cobra.Command{
		Use:   "nl2sparql",
		Short: "Ask DBpedia questions in natural language",
		Long: `nl2sparql links entities, retrieves ontology terms, asks a language model
for a SPARQL query, validates it and runs it against DBpedia.

Environment variables:
  GROQ_API_KEY             Completion API key (required)
  OPENAI_API_KEY           Embedding API key
  DBPEDIA_SPARQL_ENDPOINT  SPARQL endpoint (default: https://dbpedia.org/sparql)
  NL2SPARQL_SERVER_URL     Same as --server
  NL2SPARQL_API_TOKEN      Same as --token
  NL2SPARQL_VERBOSE=1      Same as --verbose
  NL2SPARQL_NO_BANNER      Skip the console banner
  NO_COLOR                 Disable ANSI colour`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			if os.Getenv("NL2SPARQL_VERBOSE") == "1" {
				verbose = true
			}
			return runRoot(cmd, version, question, consoleOptions{
				Verbose:    verbose,
				Execute:    !noExec,
				OutputJSON: outputJSON,
			})
		},
	}

	rootCmd.Flags().StringVarP(&question, "question", "q", "", "Run a single question and exit")
	rootCmd.Flags().BoolVar(&verbose, "verbose", false, "Show linking and schema retrieval details")
	rootCmd.Flags().BoolVar(&noExec, "no-exec", false, "Generate the query without executing it")
	rootCmd.Flags().String("server", "", "Ask a running nl2sparql server instead of answering locally")
	rootCmd.Flags().String("token", "", "Bearer token for --server")
	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	AddHelpJSONFlag(rootCmd)

	bindEnv(rootCmd, "verbose", "NL2SPARQL_VERBOSE")
	bindEnv(rootCmd, "server", "NL2SPARQL_SERVER_URL")
	bindEnv(rootCmd, "token", "NL2SPARQL_API_TOKEN")

	rootCmd.AddCommand(ServeCmd(version))
	rootCmd.AddCommand(MCPCmd(version))
	rootCmd.AddCommand(CatalogCmd())

	return rootCmd
}

func runRoot(cmd *cobra.Command, version, question string, opts consoleOptions) error {
	asker, info, cleanup, err := newAsker(cmd, version, opts.Verbose)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	opts.Color = !opts.OutputJSON && shouldColor(out)
	console := newConsole(asker, out, opts)

	if cmd.Flags().Changed("question") {
		question = strings.TrimSpace(question)
		if question == "" {
			return nil
		}
		return console.Ask(ctx, question)
	}

	if !opts.OutputJSON && os.Getenv("NL2SPARQL_NO_BANNER") == "" {
		writeBanner(out, console.style, info)
	}
	return console.REPL(ctx, cmd.InOrStdin())
}

// newAsker answers remotely when a server is configured and wires the local
// pipeline otherwise.
func newAsker(cmd *cobra.Command, version string, verbose bool) (Asker, bannerInfo, func(), error) {
	remote, err := client.NewAPIClientWithCmd(cmd)
	switch {
	case err == nil:
		info := bannerInfo{
			Model:      "remote",
			Endpoint:   remote.BaseURL(),
			TimeoutSec: int(remote.Timeout().Seconds()),
		}
		return remote, info, func() {}, nil
	case !errors.Is(err, client.ErrNoServer):
		return nil, bannerInfo{}, nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, bannerInfo{}, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Info-level pipeline logs would interleave with answers.
	level := "warn"
	if cfg.Debug {
		level = "debug"
	} else if verbose {
		level = cfg.LogLevel
	}
	logger := logging.New(level, cfg.LogFormat, cmd.ErrOrStderr())

	app, err := NewApp(cfg, logger, version)
	if err != nil {
		return nil, bannerInfo{}, nil, err
	}

	info := bannerInfo{
		Model:      cfg.GroqModel,
		Endpoint:   cfg.SPARQLEndpoint,
		TimeoutSec: cfg.RequestTimeoutSec,
	}
	return app.Pipeline, info, app.Close, nil
}

// shouldColor is true for a terminal when NO_COLOR is unset.
func shouldColor(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type consoleOptions struct {
	Verbose    bool
	Execute    bool
	OutputJSON bool
	Color      bool
}

type console struct {
	asker Asker
	out   io.Writer
	opts  consoleOptions
	style render.Style
}

func newConsole(asker Asker, out io.Writer, opts consoleOptions) *console {
	return &console{asker: asker, out: out, opts: opts, style: render.Style{Color: opts.Color}}
}

// Ask answers one question and prints it.
func (c *console) Ask(ctx context.Context, question string) error {
	answer, err := c.asker.Ask(ctx, question, service.AskOptions{Execute: c.opts.Execute})
	if err != nil {
		return err
	}

	if c.opts.OutputJSON {
		output, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode answer: %w", err)
		}
		fmt.Fprintln(c.out, string(output))
		return nil
	}

	render.Answer(c.out, answer, render.Options{Style: c.style, Verbose: c.opts.Verbose})
	return nil
}

// REPL reads questions line by line until EOF, "exit" or "quit". A failed
// question is reported and the loop continues.
func (c *console) REPL(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		if !c.opts.OutputJSON {
			fmt.Fprintf(c.out, "\n%s ", c.style.Accent(">>"))
		}
		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if lower := strings.ToLower(question); lower == "exit" || lower == "quit" {
			return nil
		}

		if err := c.Ask(ctx, question); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintln(c.out, c.style.Error("Error: "+err.Error()))
		}
		if ctx.Err() != nil {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}
