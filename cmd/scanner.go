package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Juan-David1001/santishop-sub001/internal/catalog"
	"github.com/Juan-David1001/santishop-sub001/internal/channel"
	"github.com/Juan-David1001/santishop-sub001/internal/config"
	"github.com/Juan-David1001/santishop-sub001/internal/dispatch"
	"github.com/Juan-David1001/santishop-sub001/internal/notify"
	"github.com/Juan-David1001/santishop-sub001/internal/order"
	"github.com/Juan-David1001/santishop-sub001/internal/pairing"
	"github.com/Juan-David1001/santishop-sub001/internal/scan"
	"github.com/Juan-David1001/santishop-sub001/pkg/protocol"
)

func scannerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scanner",
		Short: "Pair a mobile barcode scanner and relay its scans",
	}

	cmd.AddCommand(scannerRunCmd())
	cmd.AddCommand(scannerSessionCmd())
	cmd.AddCommand(scannerQRCmd())

	return cmd
}

func scannerSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Generate a fresh pairing session ID and URL",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustLoadConfig()
			s := pairing.NewSession(cfg.Origin)
			fmt.Printf("Session: %s\n", s.ID)
			fmt.Printf("Pairing URL: %s\n", s.PairingURL)
		},
	}
}

func scannerQRCmd() *cobra.Command {
	var out string
	var size int
	var sessionID string

	cmd := &cobra.Command{
		Use:   "qr",
		Short: "Write a pairing QR code as a PNG file",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustLoadConfig()

			s := pairing.Session{ID: sessionID}
			if s.ID == "" {
				s = pairing.NewSession(cfg.Origin)
			} else {
				s.PairingURL = pairing.URL(cfg.Origin, s.ID)
			}

			png, err := s.QRPNG(size)
			if err != nil {
				fmt.Fprintf(os.Stderr, "render QR: %v\n", err)
				os.Exit(1)
			}
			if err := os.WriteFile(out, png, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "write %s: %v\n", out, err)
				os.Exit(1)
			}
			fmt.Printf("Session %s → %s\n", s.ID, out)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "pairing.png", "output PNG path")
	cmd.Flags().IntVar(&size, "size", 256, "image size in pixels")
	cmd.Flags().StringVar(&sessionID, "session", "", "reuse an existing session ID")
	return cmd
}

func scannerRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the POS side of the scanner channel until interrupted",
		Long: "Generates a pairing session, prints its QR code, connects to the\n" +
			"scanner relay, and feeds incoming scans into the active order.\n\n" +
			"Interactive keys (followed by Enter):\n" +
			"  r  reset pairing (new session, new QR)\n" +
			"  o  print the active order\n" +
			"  q  quit",
		Run: func(cmd *cobra.Command, args []string) {
			runScanner()
		},
	}
}

func runScanner() {
	cfg := mustLoadConfig()
	center := notify.NewCenter(printNotice)

	// Hot-reloaded config is picked up on the next pairing reset.
	var liveCfg atomic.Pointer[config.Config]
	liveCfg.Store(cfg)
	if w, err := config.NewWatcher(resolveConfigPath(), center); err == nil {
		w.OnChange(func(next *config.Config) {
			liveCfg.Store(next)
			fmt.Println("Config changed; applies on next pairing reset (r).")
		})
		if err := w.Start(); err == nil {
			defer w.Stop()
		}
	}
	activeOrder := order.New()
	cat := catalog.NewClient(cfg.CatalogURL)

	consumer := scan.NewConsumer(scan.Config{
		Catalog:         cat,
		Order:           activeOrder,
		Notifier:        center,
		DuplicateWindow: cfg.Timings.DuplicateScanWindow(),
		Bell:            os.Stdout,
		OnAmbiguous:     printMatches,
	})

	session := pairing.NewSession(cfg.Origin)

	var dispatcher *dispatch.Dispatcher
	manager := channel.NewManager(channel.Config{
		Origin:            cfg.Origin,
		ConnectTimeout:    cfg.Timings.ConnectionTimeout(),
		ReconnectDelay:    cfg.Timings.ReconnectDelay(),
		KeepAliveInterval: cfg.Timings.KeepAliveInterval(),
		Notifier:          center,
		OnState: func(s channel.State) {
			fmt.Printf("Channel: %s\n", s)
		},
		Handler: func(ctx context.Context, data []byte) {
			ev, err := protocol.Decode(data)
			if err != nil {
				slog.Debug("scanner: dropped undecodable payload", "error", err)
				return
			}
			dispatcher.Dispatch(ctx, ev)
		},
	})
	defer manager.Close()

	dispatcher = dispatch.New(dispatch.Config{
		SessionID: session.ID,
		Device: protocol.DeviceInfo{
			UserAgent: "santishop-pos/1.0 (terminal)",
			Platform:  runtime.GOOS,
		},
		Sender:       manager,
		Notifier:     center,
		OnScan:       consumer.OnScan,
		NoticeWindow: cfg.Timings.DuplicateNotificationWindow(),
		OnScannerStatus: func(connected bool) {
			if connected {
				fmt.Println("Scanner: ● connected")
			} else {
				fmt.Println("Scanner: ○ disconnected")
			}
		},
	})

	printSession(session)
	manager.Connect(session.ID)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-sigCh:
			fmt.Println("\nShutting down.")
			return

		case line, ok := <-lines:
			if !ok {
				return
			}
			switch line {
			case "r":
				// A reset re-applies the whole live config: the pairing URL,
				// the relay origin and timers, and the lookup and dedup
				// collaborators must all agree on the same settings.
				cfg := liveCfg.Load()
				cat.SetBaseURL(cfg.CatalogURL)
				consumer.SetDuplicateWindow(cfg.Timings.DuplicateScanWindow())
				dispatcher.SetNoticeWindow(cfg.Timings.DuplicateNotificationWindow())
				manager.Reconfigure(channel.Config{
					Origin:            cfg.Origin,
					ConnectTimeout:    cfg.Timings.ConnectionTimeout(),
					ReconnectDelay:    cfg.Timings.ReconnectDelay(),
					KeepAliveInterval: cfg.Timings.KeepAliveInterval(),
				})
				session = pairing.NewSession(cfg.Origin)
				dispatcher.Reset(session.ID)
				printSession(session)
				manager.Connect(session.ID)
			case "o":
				printOrder(activeOrder)
			case "q":
				return
			}
		}
	}
}

func mustLoadConfig() *config.Config {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func printSession(s pairing.Session) {
	qr, err := s.QRTerminal()
	if err != nil {
		slog.Warn("scanner: QR render failed", "error", err)
	} else {
		fmt.Println(qr)
	}
	fmt.Printf("Session:     %s\n", s.ID)
	fmt.Printf("Pairing URL: %s\n", s.PairingURL)
	fmt.Println("Scan the code with the mobile device to pair.")
}

func printNotice(n notify.Notice) {
	fmt.Printf("[%s] %s\n", n.Level, n.Message)
}

func printMatches(code string, matches []catalog.Product) {
	fmt.Printf("Multiple products match %s:\n", code)
	for _, p := range matches {
		fmt.Printf("  %-6d %-30s $%.0f (stock %d, sku %s)\n",
			p.ID, p.Name, p.SellingPrice, p.Stock, p.SKU)
	}
}

func printOrder(o *order.Order) {
	lines := o.Lines()
	if len(lines) == 0 {
		fmt.Println("Order is empty.")
		return
	}
	for _, l := range lines {
		fmt.Printf("  %dx %-30s $%.0f\n", l.Quantity, l.Product.Name, l.Subtotal())
	}
	fmt.Printf("Total: $%.0f\n", o.Total())
}
