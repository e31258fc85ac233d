// FILE: logship/src/cmd/logship/flags.go
package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// flagConfig holds the parsed command line
type flagConfig struct {
	ConfigFile  string
	DumpConfig  string
	ShowVersion bool
	Quiet       bool

	LogOutput  string
	LogLevel   string
	LogDir     string
	LogConsole string

	// key=value overrides of any configuration path
	Overrides []string
}

func parseFlags(args []string, errOut io.Writer) (*flagConfig, error) {
	fc := &flagConfig{}
	fs := flag.NewFlagSet("logship", flag.ContinueOnError)
	fs.SetOutput(errOut)

	fs.StringVar(&fc.ConfigFile, "config", "", "Config file path")
	fs.StringVar(&fc.DumpConfig, "dump-config", "", "Write the effective configuration to this path and exit")
	fs.BoolVar(&fc.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&fc.Quiet, "quiet", false, "Suppress all console output")

	fs.StringVar(&fc.LogOutput, "log-output", "", "Log output: file, stdout, stderr, split, all, none (overrides config)")
	fs.StringVar(&fc.LogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	fs.StringVar(&fc.LogDir, "log-dir", "", "Log directory (when using file output)")
	fs.StringVar(&fc.LogConsole, "log-console", "", "Console target: stdout, stderr, split (overrides config)")

	fs.Usage = func() { customUsage(errOut, fs) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if fc.LogOutput != "" {
		validOutputs := map[string]bool{
			"file": true, "stdout": true, "stderr": true,
			"split": true, "all": true, "none": true,
		}
		if !validOutputs[fc.LogOutput] {
			return nil, fmt.Errorf("invalid log-output: %s (valid: file, stdout, stderr, split, all, none)", fc.LogOutput)
		}
	}

	if fc.LogLevel != "" {
		if _, err := parseLogLevel(fc.LogLevel); err != nil {
			return nil, fmt.Errorf("invalid log-level: %s (valid: debug, info, warn, error)", fc.LogLevel)
		}
	}

	if fc.LogConsole != "" {
		validTargets := map[string]bool{"stdout": true, "stderr": true, "split": true}
		if !validTargets[fc.LogConsole] {
			return nil, fmt.Errorf("invalid log-console: %s (valid: stdout, stderr, split)", fc.LogConsole)
		}
	}

	for _, arg := range fs.Args() {
		key, _, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid override '%s' (expected key=value)", arg)
		}
		fc.Overrides = append(fc.Overrides, arg)
	}

	return fc, nil
}

// cliArgs converts the flags into configuration overrides
func (fc *flagConfig) cliArgs() []string {
	var args []string
	if fc.LogOutput != "" {
		args = append(args, "--logging.output="+fc.LogOutput)
	}
	if fc.LogLevel != "" {
		args = append(args, "--logging.level="+strings.ToLower(fc.LogLevel))
	}
	if fc.LogDir != "" {
		args = append(args, "--logging.file.directory="+fc.LogDir)
	}
	if fc.LogConsole != "" {
		args = append(args, "--logging.console.target="+fc.LogConsole)
	}
	for _, o := range fc.Overrides {
		args = append(args, "--"+o)
	}
	return args
}

func customUsage(w io.Writer, fs *flag.FlagSet) {
	name := fs.Name()
	fmt.Fprintf(w, "logship - ships logs to a CloudWatch Logs compatible service\n\n")
	fmt.Fprintf(w, "Usage: %s [options] [key=value ...]\n\n", name)
	fmt.Fprintf(w, "Options:\n")
	fs.PrintDefaults()

	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  # Ship stdin using the config file\n")
	fmt.Fprintf(w, "  app | %s -config /etc/logship.toml\n\n", name)
	fmt.Fprintf(w, "  # Override destination settings from the command line\n")
	fmt.Fprintf(w, "  %s appender.log_group=prod appender.log_stream=web-%%instance_id appender.region=eu-west-1\n\n", name)
	fmt.Fprintf(w, "  # Write the effective configuration\n")
	fmt.Fprintf(w, "  %s -dump-config ./logship.toml\n\n", name)

	fmt.Fprintf(w, "Environment Variables:\n")
	fmt.Fprintf(w, "  LOGSHIP_CONFIG_FILE              Config file path\n")
	fmt.Fprintf(w, "  LOGSHIP_CONFIG_DIR               Config directory\n")
	fmt.Fprintf(w, "  LOGSHIP_<SECTION>_<KEY>          Any configuration key, e.g. LOGSHIP_APPENDER_REGION\n")
	fmt.Fprintf(w, "  AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, AWS_SESSION_TOKEN\n")
	fmt.Fprintf(w, "                                   Credentials when none are configured\n")
}
