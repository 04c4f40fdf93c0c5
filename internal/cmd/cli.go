// Package cmd holds the hiddump command tree: Kong subcommands bound against
// the logger and report tracer main() sets up.
package cmd

// LogConfig groups the logging flags shared by every subcommand.
type LogConfig struct {
	Level   string `help:"Log level: trace, debug, info, warn, error" default:"info" env:"HIDDUMP_LOG_LEVEL"`
	File    string `help:"Also write logs to this file; console logs then all go to stderr" env:"HIDDUMP_LOG_FILE"`
	RawFile string `help:"Write a hex trace of every report to this file" env:"HIDDUMP_RAW_FILE"`
}

// ConfigCommand groups config-related subcommands.
type ConfigCommand struct {
	Init ConfigInitCmd `cmd:"" help:"Generate a configuration file template."`
}

// CLI is the root Kong command set for hiddump.
type CLI struct {
	Log    LogConfig     `embed:"" prefix:"log."`
	Dump   DumpCmd       `cmd:"" help:"Parse a report descriptor and print its structure."`
	Trace  TraceCmd      `cmd:"" help:"Replay a captured report stream through the bus core and trace it."`
	Config ConfigCommand `cmd:"" help:"Configuration file management."`
}
