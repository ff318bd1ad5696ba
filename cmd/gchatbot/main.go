package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"gchatbot/internal/app"
	"gchatbot/internal/notifier"
	"gchatbot/pkg/gchat"
)

const usage = `usage: gchatbot <command> [flags]

commands:
  send     post a message:  send -bot NAME [-card] [-thread KEY] TEXT...
  list     show bots and schedules
  history  show recent deliveries from the journal
  run      run scheduled announcements until SIGINT/SIGTERM
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Println("fatal:", gchat.RedactedError(err))
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("command required")
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "send":
		return cmdSend(args, out)
	case "list":
		return cmdList(args, out)
	case "history":
		return cmdHistory(args, out)
	case "run":
		return cmdRun(args)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	cfgPath := fs.String("config", "./config.yaml", "path to config (json or yaml)")
	return fs, cfgPath
}

func cmdSend(args []string, out io.Writer) error {
	fs, cfgPath := newFlagSet("send")
	bot := fs.String("bot", "", "bot name")
	card := fs.Bool("card", false, "send as a card (resolves ${COLOR} tokens)")
	thread := fs.String("thread", "", "thread key (empty starts a new thread)")
	timeout := fs.Duration("timeout", 30*time.Second, "request timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	text := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(*bot) == "" {
		return errors.New("-bot is required")
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("message text is required")
	}

	a, err := app.New(*cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	reply, err := a.Notifier().Send(ctx, notifier.Message{
		Bot:    *bot,
		Text:   text,
		Card:   *card,
		Thread: *thread,
		Source: "cli",
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "sent %s thread=%s\n", reply.Name(), reply.Thread)
	return nil
}

func cmdList(args []string, out io.Writer) error {
	fs, cfgPath := newFlagSet("list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, err := app.New(*cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BOT\tPROXY")
	for _, name := range a.Registry().Names() {
		proxied := "no"
		if c, ok := a.Registry().Get(name); ok && c.Proxy() != "" {
			proxied = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\n", name, proxied)
	}

	entries := a.Scheduler().Entries()
	if len(entries) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "SCHEDULE\tBOT\tSPEC\tNEXT")
		now := time.Now()
		for _, e := range entries {
			next := "invalid"
			if runs, err := a.Scheduler().NextRuns(e.Spec, now, 1); err == nil && len(runs) == 1 {
				next = runs[0].Format(time.RFC3339)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Name, e.Bot, e.Spec, next)
		}
	}
	return tw.Flush()
}

func cmdHistory(args []string, out io.Writer) error {
	fs, cfgPath := newFlagSet("history")
	limit := fs.Int("n", 20, "number of records")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, err := app.New(*cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Store() == nil {
		return errors.New("storage is disabled in config")
	}
	recent, err := a.Store().RecentDeliveries(context.Background(), *limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AT\tBOT\tKIND\tSTATUS\tSOURCE\tTOOK\tERROR")
	for _, d := range recent {
		status := fmt.Sprint(d.Status)
		if d.OK {
			status = "ok"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%dms\t%s\n",
			d.At.Local().Format(time.DateTime), d.Bot, d.Kind, status, d.Source, d.TookMS, d.Error)
	}
	return tw.Flush()
}

func cmdRun(args []string) error {
	fs, cfgPath := newFlagSet("run")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(*cfgPath)
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		_ = a.Close()
		return fmt.Errorf("start: %w", err)
	}

	select {
	case <-ctx.Done():
	case <-a.Done():
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	_ = a.Stop(stopCtx)
	return a.Err()
}
