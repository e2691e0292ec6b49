package session

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	kerrors "github.com/glitchlinux/deaddrop/internal/errors"
	logger "github.com/glitchlinux/deaddrop/internal/logging"
	"github.com/glitchlinux/deaddrop/internal/ui"
)

// DefaultFiles is the fixed set of filenames offered from the mounted
// volume. A listed file may be absent from a particular volume instance;
// that is a recoverable condition, not a session failure.
var DefaultFiles = []string{"Notes.txt", "GitHub Token"}

// Shell presents the mounted volume's files and displays them on demand.
// Exiting the shell never triggers cleanup: destruction belongs solely to
// the already-activated destruct unit.
type Shell struct {
	mountPath string
	files     []string
	in        *bufio.Reader
	out       io.Writer
	log       logger.Logger
}

// NewShell builds a Shell over the given mount path. in and out are
// injectable for tests; commands pass os.Stdin and os.Stdout.
func NewShell(mountPath string, files []string, in io.Reader, out io.Writer, log logger.Logger) *Shell {
	if len(files) == 0 {
		files = DefaultFiles
	}
	return &Shell{
		mountPath: mountPath,
		files:     files,
		in:        bufio.NewReader(in),
		out:       out,
		log:       log,
	}
}

// Run loops over the file menu until the operator quits or input ends.
func (s *Shell) Run() error {
	for {
		s.printMenu()

		line, err := s.in.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading menu choice: %w", err)
		}

		choice := strings.TrimSpace(line)
		if choice == "q" || choice == "quit" || choice == "exit" {
			return nil
		}

		idx, err := strconv.Atoi(choice)
		if err != nil || idx < 1 || idx > len(s.files) {
			fmt.Fprintln(s.out, ui.Error.Sprint("✗")+" Invalid choice. Enter a number between 1 and "+strconv.Itoa(len(s.files))+", or q to quit.")
			continue
		}

		name := s.files[idx-1]
		content, err := s.Show(name)
		if err != nil {
			fmt.Fprintln(s.out, ui.Error.Sprint("✗")+" "+err.Error())
			continue
		}

		fmt.Fprintln(s.out, ui.Info.Sprintf("Contents of %s:", name))
		fmt.Fprintln(s.out, strings.Repeat("=", 50))
		fmt.Fprint(s.out, ui.EnsureNewline(content))
		fmt.Fprintln(s.out, strings.Repeat("=", 50))
	}
}

// Show reads a listed file from the volume. Returns ErrNotFound if the
// file is absent from this volume instance.
func (s *Shell) Show(name string) (string, error) {
	path := filepath.Join(s.mountPath, name)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s", kerrors.ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	s.log.Debugf("Displayed %s (%d bytes)", name, len(data))
	return string(data), nil
}

func (s *Shell) printMenu() {
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, ui.Info.Sprint("Available files:"))
	for i, name := range s.files {
		fmt.Fprintf(s.out, "  %d. %s\n", i+1, name)
	}
	fmt.Fprintln(s.out, "  q. Quit "+ui.Muted.Sprint("destruct timers stay armed"))
	fmt.Fprint(s.out, "\nEnter your choice: ")
}
