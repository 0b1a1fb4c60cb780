package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/wlclean/internal/logger"
	"github.com/jmylchreest/wlclean/pkg/cleaner"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Open the playlist and start/stop cleaning interactively",
	Long: `Open the playlist in Chrome and read commands from stdin:

  start    begin removing videos
  stop     stop and print the summary
  status   print the current counters
  reload   reload the playlist page (use after a run stops early)
  help     show this list
  quit     stop if running and exit`,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

// controller is the part of *cleaner.Cleaner the console drives.
type controller interface {
	Start(ctx context.Context) error
	Stop() (cleaner.Summary, error)
	Stats() cleaner.Stats
	Phase() cleaner.Phase
}

// console dispatches operator commands.
type console struct {
	ctl    controller
	reload func(ctx context.Context) error
	out    io.Writer
}

const consoleHelp = `Commands: start, stop, status, reload, help, quit`

// handle executes one command line and reports whether the console should exit.
func (c *console) handle(ctx context.Context, line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
	case "start":
		// ErrAlreadyRunning and ErrNoItems are already reported by the cleaner.
		if err := c.ctl.Start(ctx); err != nil {
			logger.Debug("start refused", "error", err)
		}
	case "stop":
		_, _ = c.ctl.Stop()
	case "status":
		s := c.ctl.Stats()
		if s.Phase == cleaner.PhaseIdle {
			fmt.Fprintf(c.out, "idle (last run: %d deleted, %d errors, %d retries)\n", s.Deleted, s.Errors, s.Retries)
			break
		}
		fmt.Fprintln(c.out, cleaner.RenderStatus(s, ""))
	case "reload":
		if c.ctl.Phase() != cleaner.PhaseIdle {
			fmt.Fprintln(c.out, "stop the run before reloading")
			break
		}
		if err := c.reload(ctx); err != nil {
			logError("%v", err)
		}
	case "help", "?":
		fmt.Fprintln(c.out, consoleHelp)
	case "quit", "exit":
		if c.ctl.Phase() != cleaner.PhaseIdle {
			_, _ = c.ctl.Stop()
		}
		return true
	default:
		fmt.Fprintf(c.out, "unknown command %q\n%s\n", strings.TrimSpace(line), consoleHelp)
	}
	return false
}

// serve reads commands from in until quit, EOF or ctx ends.
func (c *console) serve(ctx context.Context, in io.Reader) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(c.out, consoleHelp)
	for {
		select {
		case <-ctx.Done():
			c.handle(context.Background(), "quit")
			return
		case line, ok := <-lines:
			if !ok {
				c.handle(context.Background(), "quit")
				return
			}
			if c.handle(ctx, line) {
				return
			}
		}
	}
}

func runConsole(cmd *cobra.Command, args []string) error {
	initLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	v := viper.GetViper()
	ccfg, err := cleanerConfig(v)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}

	url := v.GetString("url")
	b, err := openPlaylist(ctx, browserConfig(v), url, false)
	if err != nil {
		logger.Error("cannot open playlist", "error", err)
		return err
	}
	defer b.Close()

	cl, err := cleaner.New(b, ccfg, cleaner.Options{
		Out:        os.Stdout,
		StatusHint: "Type stop to stop",
		StopHint:   "Type start to run again",
	})
	if err != nil {
		return err
	}

	con := &console{
		ctl: cl,
		reload: func(ctx context.Context) error {
			if err := b.Navigate(ctx, url); err != nil {
				return err
			}
			report, err := b.Preflight(ctx)
			if err != nil {
				return err
			}
			if perr := report.Err(); perr != nil {
				return perr
			}
			logInfo("Reloaded: %d videos visible.", report.Items)
			return nil
		},
		out: cmd.OutOrStdout(),
	}
	// Runs started from the console end with the console, not with the
	// command that started them.
	con.serve(ctx, cmd.InOrStdin())
	<-cl.Done()
	return nil
}
