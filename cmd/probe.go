// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/hapsim/pkg/emulator"
	"github.com/Thermoquad/hapsim/pkg/hapcan"
	"github.com/Thermoquad/hapsim/pkg/hapcan/uart"
)

var (
	probeTimeout   time.Duration
	probeEnterProg bool
	probeScan      bool
	probeScanWait  time.Duration
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Query a serial interface module like the HAPCAN programmer",
	Long: `Connect to a HAPCAN serial interface (real or emulated) and send the
identification requests the HAPCAN programmer uses: hardware type, firmware
type, supply voltage and description. With --scan a group hardware request
is broadcast on the bus and every module that answers is listed.

Exit codes:
  0  all requests answered
  1  a request timed out
  2  connection error`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().DurationVar(&probeTimeout, "timeout", 500*time.Millisecond, "Time to wait for each response")
	probeCmd.Flags().BoolVar(&probeEnterProg, "enter-prog", false, "Also request programming mode, then leave it")
	probeCmd.Flags().BoolVar(&probeScan, "scan", false, "Discover modules on the bus")
	probeCmd.Flags().DurationVar(&probeScanWait, "scan-wait", 2*time.Second, "How long to collect scan responses")
}

var (
	yellow = color.New(color.FgYellow).SprintfFunc()
	red    = color.New(color.FgRed).SprintfFunc()
	green  = color.New(color.FgGreen).SprintfFunc()
	bold   = color.New(color.Bold).SprintfFunc()
)

// errProbeTimeout is returned when a response does not arrive in time.
var errProbeTimeout = errors.New("timed out waiting for response")

// hostAddress is the sender used for network requests. Responses are
// broadcast, so any address works.
var hostAddress = hapcan.Address{Node: 0, Group: 0}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	conn, connInfo, err := OpenConnection(ctx, log, cfg.Link)
	if err != nil {
		return &exitError{code: 2, err: err}
	}
	defer conn.Close()

	fmt.Println(bold("hapsim probe"), connInfo)
	fmt.Println()

	h := newHostPort(ctx, conn, cfg.Timing.Quiet, log)

	type probeRequest struct {
		label string
		req   hapcan.Message
		want  int
	}
	requests := []probeRequest{
		{"Hardware", uart.HwTypeReq{}, 1},
		{"Firmware", uart.FwTypeReq{}, 1},
		{"Supply", uart.SupplyVoltReq{}, 1},
		{"Description", uart.DescReq{}, 2},
	}
	if probeEnterProg {
		requests = append(requests, probeRequest{"Programming", uart.EnterProgMode{}, 1})
	}

	failed := 0
	for _, r := range requests {
		replies, err := h.request(r.req, r.want, isSystemResponse(r.req.Type()))
		if err != nil {
			if errors.Is(err, errProbeTimeout) {
				fmt.Printf("%-12s %s\n", yellow(r.label+":"), red("no response"))
				failed++
				continue
			}
			return &exitError{code: 2, err: err}
		}
		fmt.Printf("%-12s %s\n", yellow(r.label+":"), green("%s", describeReplies(replies)))
	}

	if probeEnterProg {
		if err := h.send(uart.ExitOneBootloader{}); err != nil {
			return &exitError{code: 2, err: err}
		}
	}

	if probeScan {
		fmt.Println()
		if err := scanBus(h); err != nil {
			return &exitError{code: 2, err: err}
		}
	}

	if failed > 0 {
		return &exitError{code: 1, err: fmt.Errorf("%d of %d requests unanswered: %w", failed, len(requests), errProbeTimeout)}
	}
	return nil
}

func isSystemResponse(req hapcan.FrameType) func(hapcan.Message) bool {
	return func(m hapcan.Message) bool {
		return m.Type() == req+1
	}
}

func describeReplies(replies []hapcan.Message) string {
	switch first := replies[0].(type) {
	case uart.DescResp:
		text := ""
		for _, r := range replies {
			text += r.(uart.DescResp).String()
		}
		return fmt.Sprintf("%q", text)
	case uart.HwTypeResp:
		return fmt.Sprintf("hard=0x%04X hver=%d serial=0x%08X", first.Hardware, first.HardwareVersion, first.Serial)
	case uart.SupplyVoltResp:
		return fmt.Sprintf("bus=0x%04X cpu=0x%04X", first.Bus, first.CPU)
	}
	return hapcan.FormatMessage(replies[0])
}

func scanBus(h *hostPort) error {
	fmt.Println(bold("Modules on the bus:"))

	req := hapcan.HwTypeReqGroup{Sender: hostAddress, Group: hapcan.AllGroups}
	if err := h.send(req); err != nil {
		return err
	}

	found := 0
	deadline := time.After(probeScanWait)
	for {
		select {
		case <-deadline:
			if found == 0 {
				fmt.Println(red("  none"))
			}
			return nil
		case raw, ok := <-h.frames:
			if !ok {
				return h.err()
			}
			m, err := hapcan.Network.Decode(raw)
			if err != nil {
				continue
			}
			resp, ok := m.(hapcan.HwTypeRespGroup)
			if !ok {
				continue
			}
			found++
			fmt.Printf("  %s %s\n", yellow("%-9s", hapcan.FormatAddress(resp.Sender)),
				green("hard=0x%04X hver=%d serial=0x%08X", resp.Hardware, resp.HardwareVersion, resp.Serial))
		}
	}
}

// hostPort is the programmer side of a link. Incoming bytes are framed by
// the same quiet interval the interface module uses.
type hostPort struct {
	ctx     context.Context
	conn    io.ReadWriter
	log     *zap.Logger
	frames  chan []byte
	readErr error // set before ctx is cancelled
}

func newHostPort(ctx context.Context, conn Connection, quiet time.Duration, log *zap.Logger) *hostPort {
	ctx, cancel := context.WithCancel(ctx)
	h := &hostPort{
		ctx:    ctx,
		conn:   conn,
		log:    log,
		frames: make(chan []byte, 64),
	}

	link := emulator.NewStreamLink(conn)
	go func() {
		defer cancel()
		err := link.Run(ctx)
		if err == nil && ctx.Err() == nil {
			err = ErrConnectionClosed
		}
		h.readErr = err
	}()
	go h.frame(link, quiet)
	return h
}

// frame polls link and pushes complete frames to h.frames.
func (h *hostPort) frame(link *emulator.StreamLink, quiet time.Duration) {
	defer close(h.frames)

	framer := hapcan.NewFramer(quiet)
	ticker := time.NewTicker(emulator.DefaultPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case now := <-ticker.C:
			for _, b := range link.ReadAvailable() {
				if raw, _ := framer.Feed(b, now); raw != nil {
					h.deliver(raw)
				}
			}
			raw, err := framer.Flush(now)
			if err != nil {
				h.log.Debug("Dropping invalid frame", zap.Error(err))
				continue
			}
			if raw != nil {
				h.deliver(raw)
			}
		}
	}
}

func (h *hostPort) deliver(raw []byte) {
	select {
	case h.frames <- raw:
	case <-h.ctx.Done():
	}
}

func (h *hostPort) err() error {
	if h.readErr != nil {
		return h.readErr
	}
	return h.ctx.Err()
}

func (h *hostPort) send(m hapcan.Message) error {
	_, err := h.conn.Write(hapcan.Encode(m))
	return err
}

// request sends req and collects want system responses accepted by match.
// Forwarded bus traffic arriving in between is skipped.
func (h *hostPort) request(req hapcan.Message, want int, match func(hapcan.Message) bool) ([]hapcan.Message, error) {
	if err := h.send(req); err != nil {
		return nil, err
	}

	var replies []hapcan.Message
	timeout := time.NewTimer(probeTimeout)
	defer timeout.Stop()

	for len(replies) < want {
		select {
		case <-timeout.C:
			return replies, errProbeTimeout
		case raw, ok := <-h.frames:
			if !ok {
				return replies, h.err()
			}
			if len(raw) == hapcan.NetworkFrameSize {
				continue
			}
			m, err := uart.System.Decode(raw)
			if err != nil {
				h.log.Debug("Ignoring frame", zap.String("raw", fmt.Sprintf("% X", raw)), zap.Error(err))
				continue
			}
			if match(m) {
				replies = append(replies, m)
			}
		}
	}
	return replies, nil
}
