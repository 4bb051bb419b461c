// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/Thermoquad/hapsim/internal/config"
)

// Connection is the byte stream between the programmer and the emulated
// serial interface module.
type Connection = io.ReadWriteCloser

// ErrConnectionClosed is returned once the remote end has gone away.
var ErrConnectionClosed = errors.New("connection closed")

// serialOpenDelay is the pause between attempts to open the serial port.
const serialOpenDelay = 500 * time.Millisecond

// OpenConnection opens the link described by cfg. A URL selects WebSocket
// mode, otherwise the serial port is used. Opening the port is retried up to
// cfg.OpenRetries times, since virtual port pairs (socat, com0com) often
// appear after the emulator is started.
func OpenConnection(ctx context.Context, log *zap.Logger, cfg config.LinkConfig) (Connection, string, error) {
	switch {
	case cfg.URL != "":
		password := ""
		if cfg.Username != "" {
			var err error
			if password, err = readPassword(); err != nil {
				return nil, "", err
			}
		}
		conn, err := dialWebSocket(ctx, cfg, password)
		if err != nil {
			return nil, "", err
		}
		return conn, "WebSocket: " + cfg.URL, nil

	case cfg.Port != "":
		conn, err := openSerialRetry(ctx, log, cfg)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("Serial: %s @ %d baud", cfg.Port, cfg.Baud), nil
	}
	return nil, "", errors.New("either --port or --url must be specified")
}

func openSerialRetry(ctx context.Context, log *zap.Logger, cfg config.LinkConfig) (Connection, error) {
	attempts := cfg.OpenRetries
	if attempts == 0 {
		attempts = 1
	}

	var port serial.Port
	err := retry.Do(func() error {
		var err error
		port, err = serial.Open(cfg.Port, &serial.Mode{
			BaudRate: cfg.Baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
		return err
	},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(serialOpenDelay),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("Serial port not ready, retrying",
				zap.String("port", cfg.Port), zap.Uint("attempt", n+1), zap.Error(err))
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Port, err)
	}
	return port, nil
}

// wsConn carries the byte stream in binary WebSocket messages. One message
// may hold any number of bytes; Read hands them out in order.
type wsConn struct {
	conn    *websocket.Conn
	pending []byte
	closed  bool
}

func (w *wsConn) Read(p []byte) (int, error) {
	if w.closed {
		return 0, ErrConnectionClosed
	}
	for len(w.pending) == 0 {
		kind, data, err := w.conn.ReadMessage()
		if err != nil {
			w.closed = true
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return 0, io.EOF
			}
			return 0, err
		}
		if kind == websocket.BinaryMessage {
			w.pending = data
		}
	}
	n := copy(p, w.pending)
	w.pending = w.pending[n:]
	return n, nil
}

func (w *wsConn) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsConn) Close() error {
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return w.conn.Close()
}

func dialWebSocket(ctx context.Context, cfg config.LinkConfig, password string) (*wsConn, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: cfg.NoSSLVerify}
	}

	headers := http.Header{}
	if cfg.Username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, cfg.URL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}
	return &wsConn{conn: conn}, nil
}

// readPassword takes the WebSocket password from HAPSIM_PASSWORD, or asks
// for it on the terminal without echo.
func readPassword() (string, error) {
	if pw := os.Getenv("HAPSIM_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	defer fmt.Fprintln(os.Stderr)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		pw, err := term.ReadPassword(fd)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}
