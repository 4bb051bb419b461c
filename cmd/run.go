// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Thermoquad/hapsim/internal/config"
	"github.com/Thermoquad/hapsim/pkg/emulator"
	"github.com/Thermoquad/hapsim/pkg/hapcan"
)

var (
	useTUI        bool
	showFrames    bool
	statsInterval int
	metricsAddr   string
	snapshotPath  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the emulated network",
	Long: `Build the modules from the configuration, attach the serial interface
module to the link and answer the HAPCAN programmer until interrupted.

Frames from the programmer are framed by a quiet interval (timing.quiet).
Network frames are broadcast to every module; system frames are answered
by the interface itself. Everything seen on the bus is forwarded to the
programmer.

With --snapshot (or snapshot.path) the memory of every module is loaded
at start and saved on exit, so programmed addresses and firmware survive a
restart.`,
	RunE: runEmulator,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&useTUI, "tui", false, "Use terminal UI")
	runCmd.Flags().BoolVar(&showFrames, "show-frames", false, "Print every frame (text mode only)")
	runCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval in seconds, 0 disables (text mode only)")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464)")
	runCmd.Flags().StringVar(&snapshotPath, "snapshot", "", "Memory snapshot file")
}

// network is the assembled emulator.
type network struct {
	bus     *emulator.Bus
	gateway *emulator.Gateway
	devices []*emulator.Device // gateway first
	rows    []moduleRow
}

func buildNetwork(cfg *config.Config, link emulator.Link, opts ...emulator.Option) (*network, error) {
	gwID, moduleIDs, err := cfg.Identities()
	if err != nil {
		return nil, err
	}

	opts = append(opts, emulator.WithQuietInterval(cfg.Timing.Quiet))
	gw, err := emulator.NewGateway(gwID, link, opts...)
	if err != nil {
		return nil, fmt.Errorf("gateway %s: %w", gwID.Name, err)
	}

	n := &network{
		bus:     emulator.NewBus(opts...),
		gateway: gw,
		devices: []*emulator.Device{gw.Device},
	}
	n.bus.Attach(gw)
	n.rows = append(n.rows, moduleRow{name: gw.Name(), serial: gw.SerialNumber(), gateway: true})

	for _, id := range moduleIDs {
		d, err := emulator.NewDevice(id, opts...)
		if err != nil {
			return nil, fmt.Errorf("module %s: %w", id.Name, err)
		}
		n.bus.Attach(d)
		n.devices = append(n.devices, d)
		n.rows = append(n.rows, moduleRow{name: d.Name(), serial: d.SerialNumber()})
	}
	return n, nil
}

// refreshRows reads the current module addresses. Only call it while the
// bus is not running; once it runs, the monitor follows EventAddress.
func (n *network) refreshRows() {
	for i, d := range n.devices {
		n.rows[i].address = hapcan.FormatAddress(d.Address())
	}
}

func runEmulator(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg, !useTUI)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, connInfo, err := OpenConnection(ctx, log, cfg.Link)
	if err != nil {
		return err
	}
	link := emulator.NewStreamLink(conn)
	defer link.Close()

	stats := emulator.NewStatistics()
	events := make(chan emulator.Event, 1024)
	opts := []emulator.Option{
		emulator.WithLogger(log),
		emulator.WithStatistics(stats),
	}
	if useTUI || showFrames {
		opts = append(opts, emulator.WithTap(func(e emulator.Event) {
			select {
			case events <- e:
			default:
				// Monitor is behind; the poll loop never waits for it
			}
		}))
	}

	nw, err := buildNetwork(cfg, link, opts...)
	if err != nil {
		return err
	}

	if cfg.Snapshot.Path != "" {
		snap, err := emulator.LoadSnapshot(cfg.Snapshot.Path)
		if err != nil {
			return fmt.Errorf("failed to load snapshot: %w", err)
		}
		if snap != nil {
			restored, err := snap.Restore(nw.devices)
			if err != nil {
				return err
			}
			log.Info("Snapshot loaded", zap.String("path", cfg.Snapshot.Path), zap.Int("modules", restored))
		}
	}
	nw.refreshRows()

	log.Info("Emulator started",
		zap.String("link", connInfo),
		zap.Int("modules", len(nw.devices)),
		zap.Duration("poll", cfg.Timing.Poll),
		zap.Duration("quiet", cfg.Timing.Quiet))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := link.Run(ctx); err != nil {
			return fmt.Errorf("link: %w", err)
		}
		if ctx.Err() == nil {
			return errLinkClosed
		}
		return nil
	})
	g.Go(func() error {
		return nw.bus.Run(ctx, cfg.Timing.Poll)
	})

	if cfg.Metrics.Addr != "" {
		reg := emulator.NewMetricsRegistry()
		if err := emulator.RegisterMetrics(reg, stats, nw.bus); err != nil {
			return err
		}
		g.Go(func() error {
			return serveMetrics(ctx, log, cfg.Metrics, reg)
		})
	}

	if useTUI {
		runMonitor(ctx, g, connInfo, stats, nw.rows, events)
	} else {
		if showFrames {
			g.Go(func() error {
				printEvents(ctx, events)
				return nil
			})
		}
		if statsInterval > 0 {
			g.Go(func() error {
				printStatistics(ctx, stats, time.Duration(statsInterval)*time.Second)
				return nil
			})
		}
	}

	err = g.Wait()
	if errors.Is(err, errMonitorClosed) {
		err = nil
	}

	if cfg.Snapshot.Path != "" {
		if serr := emulator.SaveSnapshot(cfg.Snapshot.Path, emulator.CaptureSnapshot(nw.devices)); serr != nil {
			log.Error("Failed to save snapshot", zap.Error(serr))
		} else {
			log.Info("Snapshot saved", zap.String("path", cfg.Snapshot.Path))
		}
	}

	if !useTUI {
		fmt.Println()
		fmt.Print(stats.String())
	}
	return err
}

var (
	// errMonitorClosed stops the errgroup when the user quits the TUI.
	errMonitorClosed = errors.New("monitor closed")
	errLinkClosed    = errors.New("link closed by peer")
)

func runMonitor(ctx context.Context, g *errgroup.Group, connInfo string, stats *emulator.Statistics, rows []moduleRow, events <-chan emulator.Event) {
	m := newMonitorModel(connInfo, stats, rows)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				p.Quit()
				return nil
			case e := <-events:
				p.Send(eventMsg(e))
			}
		}
	})
	g.Go(func() error {
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}
		return errMonitorClosed
	})
}

func serveMetrics(ctx context.Context, log *zap.Logger, cfg config.MetricsConfig, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, emulator.MetricsHandler(reg))
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("Serving metrics", zap.String("addr", cfg.Addr), zap.String("path", cfg.Path))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}

// formatEvent renders one monitor line
func formatEvent(e emulator.Event) string {
	ts := e.Time.Format("15:04:05.000")
	if e.Kind == emulator.EventAddress {
		return fmt.Sprintf("%s %-4s %-12s moved to %s", ts, e.Kind, e.Source, hapcan.FormatAddress(e.Address))
	}
	if e.Kind == emulator.EventDiagnostic {
		line := fmt.Sprintf("%s %-4s %-12s %v", ts, e.Kind, e.Source, e.Err)
		if len(e.Raw) > 0 {
			line += fmt.Sprintf(" [% X]", e.Raw)
		}
		return line
	}
	return fmt.Sprintf("%s %-4s %-12s %-32s % X", ts, e.Kind, e.Source, e.Name, e.Raw)
}

func printEvents(ctx context.Context, events <-chan emulator.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-events:
			fmt.Println(formatEvent(e))
		}
	}
}

func printStatistics(ctx context.Context, stats *emulator.Statistics, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Println()
			fmt.Print(stats.String())
		}
	}
}
