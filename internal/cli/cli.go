// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command-line parsing for bqprobe.
package cli

import (
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/bqprobe/internal/config"
)

// ProgramName is used in usage and error hints.
const ProgramName = "bqprobe"

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdSummary Command = iota
	CmdUpload
	CmdRead
	CmdPipeline
	CmdConfig
	CmdVersion
	CmdHelp
)

var commandNames = map[Command]string{
	CmdSummary:  "summary",
	CmdUpload:   "upload",
	CmdRead:     "read",
	CmdPipeline: "pipeline",
	CmdConfig:   "config",
	CmdVersion:  "version",
	CmdHelp:     "help",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "Command(" + strconv.Itoa(int(c)) + ")"
}

// commandAliases maps every accepted spelling to its command.
var commandAliases = map[string]Command{
	"summary":  CmdSummary,
	"s":        CmdSummary,
	"upload":   CmdUpload,
	"write":    CmdUpload,
	"read":     CmdRead,
	"pipeline": CmdPipeline,
	"ml":       CmdPipeline,
	"config":   CmdConfig,
	"version":  CmdVersion,
	"help":     CmdHelp,
}

// Args holds parsed CLI arguments.
type Args struct {
	Command Command

	// Target and connection. Empty means "use the config value".
	ProjectID   string
	DatasetID   string
	TableID     string
	Location    string
	Credentials string
	ConfigPath  string

	// Timeout bounds each probe. Zero means "use the config value".
	Timeout time.Duration

	// Command-specific
	TestWrite bool
	Monitor   bool
	Seed      int64
	HasSeed   bool

	// Output
	JSON      bool
	Verbose   bool
	LogFormat string
	Output    string
}

const usageText = `bqprobe - BigQuery dataset access diagnostics

Probes what the current Google Cloud identity may do on a dataset and
reports the effective access level (NONE, READER, WRITER or OWNER).

Usage:
  bqprobe [command] [flags]

Commands:
  summary, s        Run the permission probes and report the access level (default)
  upload, write     Insert test rows and read them back (WRITER check)
  read              Preview, aggregate and inspect the probe table (READER check)
  pipeline, ml      Read, derive features, load results back (pipeline WRITER check)
  config            Show the effective configuration
  version           Show version information
  help              Show this help

Target:
  -p, --project-id ID      Google Cloud project (env BQPROBE_PROJECT_ID, GOOGLE_CLOUD_PROJECT)
  -d, --dataset-id ID      Dataset to probe (default: test_data)
  -t, --table-id ID        Table read and written by the probes (default: transcripts)
      --location LOC       Job location, e.g. US or EU

Connection:
      --credentials FILE   Service account key or external account file
                           (default: Application Default Credentials)
      --timeout DURATION   Per-probe timeout, e.g. 30s (default: 30s)
  -c, --config FILE        Config file (default: ./bqprobe.toml, ~/.bqprobe/config.toml)

Command options:
      --test-write         read: also attempt a write to confirm read-only access
      --monitor            pipeline: also query the recent processing history
      --seed N             pipeline: seed the simulated model outputs

Output:
      --json               Print the result as a JSON document on stdout
  -o, --output FILE        Write the report to FILE instead of stdout
  -v, --verbose            Debug logging on stderr
      --log-format FORMAT  console or json (default: console)
  -h, --help               Show this help

Exit status:
  0  access level is not NONE, or the access test passed
  1  no access, the access test failed, or the connection failed
  2  invalid arguments or configuration values
  3  unreadable config file

Examples:
  bqprobe --project-id acme-mlops-dev
  bqprobe read --project-id acme-mlops-dev --test-write
  bqprobe pipeline -p acme-mlops-dev --monitor --json
  GOOGLE_APPLICATION_CREDENTIALS=key.json bqprobe upload -p acme-mlops-dev
`

// boolFlags never take the following argument as a value.
var boolFlags = []string{"test-write", "monitor", "json", "verbose", "v", "help", "h", "version"}

// stringFlags lists every flag that takes a value, including short aliases.
var stringFlags = []string{
	"project-id", "p",
	"dataset-id", "d",
	"table-id", "t",
	"location",
	"credentials",
	"config", "c",
	"timeout",
	"seed",
	"output", "o",
	"log-format",
}

// PrintUsage writes the help text to w.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, usageText)
}

// PrintVersion writes version information to w.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "%s %s\n", ProgramName, Version)
	fmt.Fprintf(w, "  Commit:     %s\n", GitCommit)
	fmt.Fprintf(w, "  Built:      %s\n", BuildDate)
	fmt.Fprintf(w, "  Go version: %s\n", runtime.Version())
}

// NewVersionData returns the version payload for JSON output.
func NewVersionData() VersionData {
	return VersionData{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

// Parse parses the arguments after the program name. With no command the
// access summary runs. On error the returned Args still carries JSON so the
// error can be reported in the requested format.
func Parse(argv []string) (Args, error) {
	p := NewArgParser(argv, boolFlags...)
	args := Args{Command: CmdSummary, JSON: p.BoolFlag("json")}

	if err := checkFlags(p); err != nil {
		return args, err
	}

	if sub := p.Subcommand(); sub != "" {
		cmd, ok := commandAliases[strings.ToLower(sub)]
		if !ok {
			return args, &ValidationError{Field: "command", Value: sub, Reason: "unknown command", Example: suggestion(SuggestCommand(sub), "")}
		}
		args.Command = cmd
	}
	if p.PositionalCount() > 1 {
		return args, &ValidationError{Field: "arguments", Value: strings.Join(p.positional[1:], " "), Reason: "unexpected extra arguments"}
	}

	switch {
	case p.BoolFlag("help", "h"):
		args.Command = CmdHelp
	case p.BoolFlag("version"):
		args.Command = CmdVersion
	}

	args.ProjectID = p.FirstFlag("project-id", "p")
	args.DatasetID = p.FirstFlag("dataset-id", "d")
	args.TableID = p.FirstFlag("table-id", "t")
	args.Location = p.Flag("location")
	args.Credentials = p.Flag("credentials")
	args.ConfigPath = p.FirstFlag("config", "c")
	args.Output = p.FirstFlag("output", "o")
	args.LogFormat = p.Flag("log-format")

	args.TestWrite = p.BoolFlag("test-write")
	args.Monitor = p.BoolFlag("monitor")
	args.Verbose = p.BoolFlag("verbose", "v")

	timeout, _, err := p.FlagDuration("timeout")
	if err != nil {
		return args, &ValidationError{Field: "--timeout", Value: p.Flag("timeout"), Reason: err.Error(), Example: "--timeout 45s"}
	}
	args.Timeout = timeout

	if s := p.Flag("seed"); s != "" {
		seed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return args, &ValidationError{Field: "--seed", Value: s, Reason: "must be an integer"}
		}
		args.Seed, args.HasSeed = seed, true
	}

	for _, name := range []string{"project-id", "dataset-id", "table-id", "credentials", "config", "output", "location", "log-format"} {
		if p.HasFlag(name) && p.Flag(name) == "" {
			return args, &ValidationError{Field: "--" + name, Reason: "requires a value"}
		}
	}

	return args, nil
}

// checkFlags rejects flags bqprobe does not know.
func checkFlags(p *ArgParser) error {
	known := make(map[string]bool, len(boolFlags)+len(stringFlags))
	for _, name := range boolFlags {
		known[name] = true
	}
	for _, name := range stringFlags {
		known[name] = true
	}
	for _, name := range p.Names() {
		if !known[name] {
			return &ValidationError{Field: "flag", Value: "--" + name, Reason: "unknown flag", Example: suggestion(SuggestFlag(name), "--")}
		}
	}
	return nil
}

// suggestion formats a "did you mean" hint, falling back to the help command.
func suggestion(match, prefix string) string {
	if match == "" {
		return ProgramName + " help"
	}
	return "did you mean " + prefix + match + "?"
}

// Apply overlays the command-line flags onto cfg. Flags win over the
// config file and the environment.
func (a Args) Apply(cfg *config.Config) {
	if a.ProjectID != "" {
		cfg.ProjectID = a.ProjectID
	}
	if a.DatasetID != "" {
		cfg.DatasetID = a.DatasetID
	}
	if a.TableID != "" {
		cfg.TableID = a.TableID
	}
	if a.Location != "" {
		cfg.Location = a.Location
	}
	if a.Credentials != "" {
		cfg.CredentialsFile = a.Credentials
	}
	if a.Timeout > 0 {
		cfg.Probe.Timeout = a.Timeout
	}
	if a.Verbose {
		cfg.Log.Level = "debug"
	}
	if a.LogFormat != "" {
		cfg.Log.Format = a.LogFormat
	}
}
