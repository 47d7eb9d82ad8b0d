// Command cli is the thin entry point over the probing and detection
// engines. It parses flags, dispatches, and prints result objects;
// everything interesting lives in pkg/.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/edgeprobe/edgeprobe/pkg/bypass"
	"github.com/edgeprobe/edgeprobe/pkg/config"
	"github.com/edgeprobe/edgeprobe/pkg/l7"
	"github.com/edgeprobe/edgeprobe/pkg/portscan"
	"github.com/edgeprobe/edgeprobe/pkg/telemetry"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "edgeprobe: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cli, err := config.ParseFlags(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ports, err := parsePorts(cli.Ports)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	metrics := telemetry.New()

	if cli.MetricsAddr != "" {
		go func() {
			if serr := http.ListenAndServe(cli.MetricsAddr, metricsMux(metrics)); serr != nil {
				logger.Warn("metrics server stopped", slog.String("error", serr.Error()))
			}
		}()
	}

	engine, err := portscan.NewEngine(cli.Options,
		portscan.WithLogger(logger), portscan.WithMetrics(metrics))
	if err != nil {
		return err
	}
	scan := engine.Scan(ctx, cli.Target, ports)

	detector, err := l7.NewDetector(cli.Options,
		l7.WithLogger(logger), l7.WithMetrics(metrics))
	if err != nil {
		return err
	}
	detection := detector.Detect(ctx, cli.Target, 0, cli.Path, cli.TraceDNS)

	var report *bypass.Report
	if cli.Bypass {
		tester, terr := bypass.NewTester(cli.Options, bypass.WithMetrics(metrics))
		if terr != nil {
			return terr
		}
		report, err = tester.TestBypass(ctx, detection.URL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "edgeprobe: bypass test failed: %v\n", err)
		}
	}

	if cli.JSON {
		if err := printJSON(scan, detection, report); err != nil {
			return err
		}
	} else {
		printText(scan, detection, report)
	}

	// Results were printed either way; a failed detection still exits
	// nonzero so scripted callers notice.
	if detection.Error != l7.ErrorKindNone {
		return l7.ErrRequestFailed
	}
	return nil
}

func printJSON(scan *portscan.ScanResult, detection *l7.Result, report *bypass.Report) error {
	for _, obj := range []interface{ ToJSON() ([]byte, error) }{scan, detection} {
		data, err := obj.ToJSON()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	}
	if report != nil {
		data, err := report.ToJSON()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	}
	return nil
}

func printText(scan *portscan.ScanResult, detection *l7.Result, report *bypass.Report) {
	fmt.Printf("target: %s (%s)\n", scan.Target.Host, scan.Target.ResolvedAddress)
	for _, p := range scan.Ports {
		if p.Open {
			fmt.Printf("  %5d/tcp open  %s\n", p.Port, p.ServiceGuess)
		}
	}
	fmt.Printf("open ports: %d/%d in %.2fs\n", scan.OpenCount(), len(scan.Ports), scan.ElapsedSeconds)

	if detection.Error != "" {
		fmt.Printf("detection failed: %s\n", detection.Error)
		return
	}
	if primary, ok := detection.Primary(); ok {
		fmt.Printf("protection: %s (confidence %.2f, %d indicators)\n",
			primary.Service, primary.Confidence, len(primary.Indicators))
	} else {
		fmt.Println("protection: none detected")
	}
	if report != nil {
		fmt.Printf("waf behavioral test: detected=%v blocked=%d/%d\n",
			report.WAFDetected, len(report.BlockedRequests), len(report.VariantResults))
	}
}

// metricsMux exposes the telemetry registry on /metrics.
func metricsMux(m *telemetry.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}

func parsePorts(s string) ([]uint16, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ports := make([]uint16, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(part), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("%w: bad port %q", config.ErrInvalidConfig, part)
		}
		ports = append(ports, uint16(n))
	}
	return ports, nil
}
