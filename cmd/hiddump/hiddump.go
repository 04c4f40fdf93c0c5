// Command hiddump parses HID report descriptors and replays captured report
// streams through the bus core, for inspecting a device's field layout or
// watching how a mapper would decode it without any real hardware attached.
package main

import (
	"os"
	"strings"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"

	"github.com/quillhid/hidcore/internal/cmd"
	"github.com/quillhid/hidcore/internal/configpaths"
	"github.com/quillhid/hidcore/internal/log"
)

func main() {
	userCfg := findUserConfig(os.Args[1:])
	jsonPaths, yamlPaths, tomlPaths := configpaths.ConfigCandidatePaths(userCfg)

	var cli cmd.CLI
	kctx := kong.Parse(&cli,
		kong.Name("hiddump"),
		kong.Description("Inspect and replay HID report descriptors and report streams"),
		kong.UsageOnError(),
		// Flags/env override config values; later loaders win ties within a format.
		kong.Configuration(kong.JSON, jsonPaths...),
		kong.Configuration(kongyaml.Loader, yamlPaths...),
		kong.Configuration(kongtoml.Loader, tomlPaths...),
	)

	logger, closeFiles, err := log.Setup(cli.Log.Level, cli.Log.File)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer func() {
		for _, c := range closeFiles {
			_ = c.Close()
		}
	}()

	var tracer log.ReportTracer
	if cli.Log.RawFile != "" {
		f, err := os.OpenFile(cli.Log.RawFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Error("failed to open raw trace file", "file", cli.Log.RawFile, "error", err)
			tracer = log.NewTracer(nil)
		} else {
			tracer = log.NewTracer(f)
			closeFiles = append(closeFiles, f)
		}
	} else if cli.Log.Level == "trace" {
		tracer = log.NewTracer(os.Stdout)
	} else {
		tracer = log.NewTracer(nil)
	}

	kctx.Bind(logger)
	kctx.BindTo(tracer, (*log.ReportTracer)(nil))

	err = kctx.Run()
	kctx.FatalIfErrorf(err)
}

// findUserConfig scans args for --config before Kong has parsed anything, the
// way configpaths needs to know the user's config path up front to build its
// candidate list.
func findUserConfig(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if strings.HasPrefix(a, "--config=") {
			return a[len("--config="):]
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	if v := os.Getenv("HIDDUMP_CONFIG"); v != "" {
		return v
	}
	return ""
}
