package cmd

import (
	"encoding/json"
	"errors"
	"os"
	"reflect"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"

	"github.com/quillhid/hidcore/internal/configpaths"
)

// ConfigInitCmd scaffolds a configuration file template for the CLI's own
// flag set, reflecting over the Kong struct tags the same way Kong itself
// reads them, so the template always matches whatever flags this build
// actually understands.
type ConfigInitCmd struct {
	Format string `help:"Output format" enum:"json,yaml,toml" default:"toml"`
	Output string `help:"Destination file path (defaults to the working directory)"`
	Force  bool   `help:"Overwrite the destination if it already exists"`
}

// Run generates a config template for CLI and writes it to Output.
func (c *ConfigInitCmd) Run() error {
	format := normalizeFormat(c.Format)
	if format == "" {
		return errors.New("unsupported format: " + c.Format)
	}

	root := buildMapFromStruct(reflect.TypeOf(CLI{}))
	// Subcommands aren't config state; a template has no use for them.
	delete(root, "dump")
	delete(root, "trace")
	delete(root, "config")

	dest := c.Output
	if dest == "" {
		dest = "hiddump." + format
		if format == "yaml" {
			dest = "hiddump.yaml"
		}
	}
	if !c.Force {
		if _, err := os.Stat(dest); err == nil {
			return errors.New("destination exists; use --force to overwrite")
		}
	}
	if err := configpaths.EnsureDir(dest); err != nil {
		return err
	}

	var data []byte
	var err error
	switch format {
	case "json":
		data, err = json.MarshalIndent(root, "", "  ")
	case "yaml":
		data, err = yaml.Marshal(root)
	case "toml":
		data, err = toml.Marshal(root)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

func normalizeFormat(f string) string {
	switch strings.ToLower(f) {
	case "json":
		return "json"
	case "yaml", "yml":
		return "yaml"
	case "toml":
		return "toml"
	default:
		return ""
	}
}

// buildMapFromStruct walks a Kong-tagged struct's exported fields and
// produces the map a template file should contain, recursing into `embed:""`
// and subcommand (`cmd:""`) fields alike; Run drops the subcommand keys.
func buildMapFromStruct(t reflect.Type) map[string]any {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	out := map[string]any{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if _, isCmd := f.Tag.Lookup("cmd"); isCmd {
			out[lowerCamel(f.Name)] = buildMapFromStruct(f.Type)
			continue
		}
		if _, ok := f.Tag.Lookup("embed"); ok {
			prefix := strings.TrimSuffix(f.Tag.Get("prefix"), ".")
			sub := buildMapFromStruct(f.Type)
			if prefix != "" {
				out[prefix] = sub
			} else {
				for k, v := range sub {
					out[k] = v
				}
			}
			continue
		}

		key := lowerCamel(f.Name)
		if val := defaultValueForField(f.Type, f.Tag.Get("default")); val != nil {
			out[key] = val
		}
	}
	return out
}

func defaultValueForField(t reflect.Type, def string) any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return def
	case reflect.Bool:
		b, _ := strconv.ParseBool(def)
		return b
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, _ := strconv.ParseInt(def, 10, 64)
		return n
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, _ := strconv.ParseUint(def, 10, 64)
		return n
	default:
		return nil
	}
}

func lowerCamel(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	if r[0] >= 'A' && r[0] <= 'Z' {
		r[0] += 'a' - 'A'
	}
	return string(r)
}
