package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/Raj-venom/scrap-dai-client/internal/api"
)

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printYAML(v interface{}) error {
	// Round-trip through JSON so struct json tags name the YAML keys.
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(generic)
}

// printStructured writes v as JSON or YAML when requested and reports
// whether it did.
func printStructured(v interface{}) (bool, error) {
	switch {
	case jsonOut:
		return true, printJSON(v)
	case yamlOut:
		return true, printYAML(v)
	}
	return false, nil
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
}

func printTableHeader(w *tabwriter.Writer, cols ...string) {
	fmt.Fprintln(w, strings.Join(cols, "\t"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func printError(err error) {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Kind == api.KindAuthExpired {
		fmt.Fprintf(os.Stderr, "%s Session expired. Run 'scrapctl login' again.\n", colorRed("✗"))
		return
	}
	fmt.Fprintf(os.Stderr, "%s %v\n", colorRed("✗"), err)
}

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
)

func colorize(code, s string) string {
	if os.Getenv("NO_COLOR") != "" || jsonOut || yamlOut {
		return s
	}
	return code + s + ansiReset
}

func colorGreen(s string) string  { return colorize(ansiGreen, s) }
func colorYellow(s string) string { return colorize(ansiYellow, s) }
func colorRed(s string) string    { return colorize(ansiRed, s) }
