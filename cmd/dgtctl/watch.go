package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/danmuck/dgtctl/internal/board"
	"github.com/danmuck/dgtctl/internal/dgt"
	"github.com/danmuck/dgtctl/internal/protocol"
	"github.com/danmuck/dgtctl/internal/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func (a *app) watchCmd() *cobra.Command {
	var fen bool
	cmd := &cobra.Command{
		Use:   "watch [pattern...]",
		Short: "Stay connected and print board, clock and button events",
		RunE: func(cmd *cobra.Command, args []string) error {
			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.watch(ctx, a.patterns(args), fen)
		},
	}
	cmd.Flags().BoolVar(&fen, "fen", false, "print positions as FEN instead of a diagram")
	return cmd
}

// watch runs until ctx is done, printing every event. The status API runs
// alongside when an address is configured.
func (a *app) watch(ctx context.Context, patterns []string, fen bool) error {
	w := &eventWriter{out: a.out}
	conn := dgt.AutoConnect(patterns, a.connectOptions(
		dgt.WithHandler(dgt.EventConnected, func(args ...any) error {
			return w.printf(renderEvent("connected", fmt.Sprint(args[0])))
		}),
		dgt.WithHandler(dgt.EventDisconnected, func(args ...any) error {
			return w.printf(renderEvent("disconnected", ""))
		}),
		dgt.WithHandler(dgt.EventBoard, func(args ...any) error {
			b := args[0].(board.Board)
			if fen {
				return w.printf(renderEvent("board", b.FEN()))
			}
			return w.printf(renderEvent("board", "") + renderBoard(b))
		}),
		dgt.WithHandler(dgt.EventClock, func(args ...any) error {
			return w.printf(renderEvent("clock", renderClock(args[0].(protocol.Clock))))
		}),
		dgt.WithHandler(dgt.EventButtonPressed, func(args ...any) error {
			return w.printf(renderEvent("button", fmt.Sprint(args[0])))
		}),
	)...)
	defer conn.Close()

	if a.cfg.StatusAddr == "" {
		<-ctx.Done()
		return nil
	}
	srv := server.New(server.Config{
		Addr:         a.cfg.StatusAddr,
		Token:        a.cfg.StatusToken,
		CORSOrigins:  a.cfg.StatusCORSOrigins,
		QueryTimeout: a.cfg.Session.QueryTimeout,
	}, conn)
	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Str("addr", a.cfg.StatusAddr).Msg("dgtctl.watch status server failed")
		return err
	}
	return nil
}

// eventWriter serializes handler output.
type eventWriter struct {
	mu  sync.Mutex
	out io.Writer
}

func (w *eventWriter) printf(s string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := io.WriteString(w.out, s)
	return err
}
