package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
)

// readDocument reads a JSON or YAML object from path, or from stdin when
// path is "-", and returns it as JSON.
func readDocument(cmd *cobra.Command, path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return toJSON(data)
}

// toJSON accepts JSON as is and converts anything else from YAML.
func toJSON(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("input is empty")
	}
	if json.Valid(trimmed) {
		return trimmed, nil
	}
	out, err := yaml.YAMLToJSON(trimmed)
	if err != nil {
		return nil, fmt.Errorf("input is neither JSON nor YAML: %w", err)
	}
	return bytes.TrimSpace(out), nil
}

// colorEnabled reports whether w is a terminal that takes ANSI colours.
func colorEnabled(w io.Writer) bool {
	if color.NoColor {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// printJSON writes data indented, coloured on terminals.
func printJSON(w io.Writer, data []byte) error {
	out := pretty.Pretty(data)
	if colorEnabled(w) {
		out = pretty.Color(out, nil)
	}
	_, err := w.Write(out)
	return err
}

// printValue marshals v as JSON and prints it like a document.
func printValue(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return printJSON(w, data)
}

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
)

// status writes a one-line progress message to stderr.
func status(cmd *cobra.Command, c *color.Color, format string, args ...interface{}) {
	c.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
}
