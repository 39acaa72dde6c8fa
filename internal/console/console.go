// Package console is an interactive bench console for driving the fan
// without a broker. It reads state from the status tracker and routes
// changes through the same command channel as MQTT.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/sweeney/vent-controller/internal/control"
	"github.com/sweeney/vent-controller/internal/fan"
	"github.com/sweeney/vent-controller/internal/status"
)

var errUsage = errors.New("usage")

// Console executes bench commands.
type Console struct {
	cmds    chan<- control.Command
	done    <-chan struct{} // closed once the run loop stops receiving
	tracker *status.Tracker
	out     io.Writer
}

// New creates a Console writing replies to out.
func New(cmds chan<- control.Command, tracker *status.Tracker, out io.Writer) *Console {
	return &Console{cmds: cmds, tracker: tracker, out: out}
}

// Parse turns a command line into a controller command. Lines that only
// query state return ok=false.
func Parse(line string) (cmd control.Command, ok bool, err error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return control.Command{}, false, nil
	}

	switch parts[0] {
	case "speed":
		if len(parts) == 1 {
			return control.Command{}, false, nil
		}
		if len(parts) != 2 {
			return control.Command{}, false, errUsage
		}
		p, err := strconv.ParseUint(parts[1], 10, 8)
		if err != nil {
			return control.Command{}, false, fmt.Errorf("bad percentage %q", parts[1])
		}
		return control.Command{Kind: control.SetSpeed, Speed: fan.Percent(p)}, true, nil

	case "param":
		if len(parts) != 3 {
			return control.Command{}, false, errUsage
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return control.Command{}, false, fmt.Errorf("bad parameter number %q", parts[1])
		}
		v, err := strconv.ParseUint(parts[2], 10, 16)
		if err != nil {
			return control.Command{}, false, fmt.Errorf("bad parameter value %q", parts[2])
		}
		return control.Command{Kind: control.SetParameter, Number: n, Value: uint16(v)}, true, nil

	case "params", "status", "help":
		return control.Command{}, false, nil
	}
	return control.Command{}, false, fmt.Errorf("unknown command: %s (try 'help')", parts[0])
}

// Handle executes one line.
func (c *Console) Handle(line string) {
	cmd, ok, err := Parse(line)
	if errors.Is(err, errUsage) {
		c.help()
		return
	}
	if err != nil {
		fmt.Fprintf(c.out, "error: %v\n", err)
		return
	}
	if ok {
		select {
		case c.cmds <- cmd:
		case <-c.done:
			fmt.Fprintln(c.out, "error: controller stopped")
		}
		return
	}

	parts := strings.Fields(line)
	if len(parts) == 0 {
		return
	}
	snap := c.tracker.Snapshot()
	switch parts[0] {
	case "speed":
		fmt.Fprintf(c.out, "%d%% (%s)\n", snap.Device.Speed, snap.Device.Level)
	case "params":
		for _, p := range snap.Device.Params {
			fmt.Fprintf(c.out, "%d %-16s %d\n", p.Number, p.Name, p.Value)
		}
		if snap.Device.Recovered {
			fmt.Fprintf(c.out, "stored block %s (defaults restored at boot)\n", snap.Device.ParamState)
		} else {
			fmt.Fprintf(c.out, "stored block %s\n", snap.Device.ParamState)
		}
	case "status":
		c.out.Write(status.FormatJSON(snap))
		fmt.Fprintln(c.out)
	case "help":
		c.help()
	}
}

func (c *Console) help() {
	fmt.Fprintln(c.out, "Commands:")
	fmt.Fprintln(c.out, "  speed              - Show current speed and level")
	fmt.Fprintln(c.out, "  speed <0-255>      - Set speed percentage")
	fmt.Fprintln(c.out, "  param <n> <value>  - Set parameter n")
	fmt.Fprintln(c.out, "  params             - List parameters")
	fmt.Fprintln(c.out, "  status             - Print status JSON")
	fmt.Fprintln(c.out, "  help               - Show this help")
}

// logWriter keeps log lines from clobbering the prompt.
type logWriter struct {
	rl *readline.Instance
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.rl.Clean()
	n, err := os.Stderr.Write(p)
	w.rl.Refresh()
	return n, err
}

func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "vent-controller")
	_ = os.MkdirAll(dir, 0o750)
	return filepath.Join(dir, "console_history")
}

// Run reads lines until ctx is done, EOF, or Ctrl+C, which calls cancel.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "vent> ",
		HistoryFile: historyFile(),
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	log.SetOutput(&logWriter{rl: rl})
	defer log.SetOutput(os.Stderr)

	c.done = ctx.Done()
	c.out = rl.Stdout()
	fmt.Fprintln(c.out, "console ready (type 'help' for commands)")

	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			cancel()
			return nil
		}
		if err != nil {
			return nil
		}
		c.Handle(line)
	}
}
