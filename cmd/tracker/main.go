package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ghtracker/internal/app"
)

func main() {
	var (
		cfgPath string
		runOnce bool
		oneRepo string
	)
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file (json or yaml)")
	flag.BoolVar(&runOnce, "run-once", false, "run one tracking cycle and exit")
	flag.StringVar(&oneRepo, "repo", "", "process a single repo (owner/name) and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	switch {
	case oneRepo != "":
		err = a.RunRepo(ctx, oneRepo)
	case runOnce:
		err = a.RunOnce(ctx)
	default:
		if err = a.Start(ctx); err == nil {
			<-ctx.Done()
		}
	}

	if serr := a.Stop(context.Background()); err == nil {
		err = serr
	}
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
}
