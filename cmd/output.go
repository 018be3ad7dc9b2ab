package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/s0up4200/pvforecast/pvforecast"
)

// promptFunc asks a yes/no question and reports the answer.
type promptFunc func(question string) bool

// stdinPrompt asks on the terminal. Without one it answers yes so scripted
// runs keep overwriting as before, and logs a warning.
func stdinPrompt(question string) bool {
	if !isTerminal(os.Stdin) {
		logger.Warn().Msg(question + " (no terminal, overwriting)")
		return true
	}

	fmt.Printf("%s [y/N]: ", question)
	var response string
	fmt.Scanln(&response)
	return strings.ToLower(strings.TrimSpace(response)) == "y"
}

// writeOutfile writes table as CSV, asking before replacing an existing file.
func writeOutfile(path string, table *pvforecast.Table, floatFormat string, confirm promptFunc) error {
	if _, err := os.Stat(path); err == nil {
		if !confirm(fmt.Sprintf("The output file %s already exists. Overwrite?", path)) {
			logger.Info().Str("path", path).Msg("Output cancelled")
			return nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := table.WriteCSV(f, floatFormat); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	logger.Info().Str("path", path).Int("rows", table.Len()).Msg("Forecast written")
	return nil
}
