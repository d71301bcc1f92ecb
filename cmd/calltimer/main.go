// Command calltimer runs a call timer widget in the terminal. The timer state
// is kept in a directory so the widget survives restarts.
//
//	calltimer -session call-42 -donor "Ana Reyes" -pledge 5000
//
// Type p to pause, r to resume and q to quit.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"parishfund/server/config"
	"parishfund/server/internal/calltimer"
	"parishfund/server/internal/logger"

	"github.com/google/uuid"
)

func main() {
	var (
		dir      = flag.String("dir", ".calltimer", "directory holding timer state")
		session  = flag.String("session", "", "call session id (random when empty)")
		donor    = flag.String("donor", "", "donor name")
		phone    = flag.String("phone", "", "donor phone")
		pledge   = flag.String("pledge", "", "pledge amount")
		date     = flag.String("date", "", "pledge date")
		church   = flag.String("church", "", "church")
		logLevel = flag.String("log-level", "warn", "log level")
	)
	flag.Parse()

	log := logger.New(*logLevel, "text")

	ct, err := config.LoadCallTimer()
	if err != nil {
		log.WithError(err).Fatal("invalid call timer settings")
	}

	store, err := calltimer.NewFileStorage(*dir)
	if err != nil {
		log.WithError(err).Fatal("failed to open timer storage")
	}

	if *session == "" {
		*session = uuid.NewString()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := calltimer.Config{
		SessionID:    *session,
		DonorName:    *donor,
		DonorPhone:   *phone,
		PledgeAmount: *pledge,
		PledgeDate:   *date,
		Registrar:    os.Getenv("USER"),
		Church:       *church,
	}
	printHeader(cfg)

	timer, err := calltimer.Attach(ctx, cfg, store,
		calltimer.WithRefreshInterval(ct.RefreshInterval),
		calltimer.WithRenderer(calltimer.RendererFunc(func(elapsed time.Duration, status calltimer.Status) {
			fmt.Printf("\r%s  [%s]   ", calltimer.Format(elapsed), status)
		})),
	)
	if err != nil {
		log.WithError(err).WithField("session_id", *session).Fatal("failed to attach call timer")
	}
	defer timer.Close()

	commands := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			commands <- strings.TrimSpace(scanner.Text())
		}
		close(commands)
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case cmd, ok := <-commands:
			if !ok {
				fmt.Println()
				return
			}
			switch cmd {
			case "p":
				err = timer.Pause(ctx)
			case "r":
				err = timer.Resume(ctx)
			case "q":
				fmt.Println()
				return
			default:
				continue
			}
			if err != nil {
				log.WithError(err).Error("failed to save timer state")
			}
		}
	}
}

func printHeader(cfg calltimer.Config) {
	fmt.Printf("Session %s\n", cfg.SessionID)
	if cfg.DonorName != "" {
		fmt.Printf("Donor:  %s %s\n", cfg.DonorName, cfg.DonorPhone)
	}
	if cfg.PledgeAmount != "" {
		fmt.Printf("Pledge: %s %s\n", cfg.PledgeAmount, cfg.PledgeDate)
	}
	if cfg.Church != "" {
		fmt.Printf("Church: %s\n", cfg.Church)
	}
	fmt.Println("p = pause, r = resume, q = quit")
}
