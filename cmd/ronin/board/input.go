package board

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// readMessage returns the message text from the first positional arg,
// or from stdin when piped. An interactive terminal with no argument is
// an error rather than a silent hang.
func readMessage(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return "", errors.New("no message given: pass it as an argument or pipe it on stdin")
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}
