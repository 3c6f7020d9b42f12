package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"syscall"
	"time"
)

const linkCount = 200

// benchUA is a desktop browser so clicks go through the full classify path.
const benchUA = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"

func main() {
	concurrency := flag.Int("c", 50, "number of concurrent workers")
	duration := flag.Duration("d", 10*time.Second, "benchmark duration")
	storage := flag.String("storage", "sqlite", "storage backend: sqlite or memory")
	flag.Parse()

	fmt.Println("LinkPulse Redirect Benchmark")
	fmt.Println("============================")

	// 1. Build server binary
	fmt.Printf("Building server...     ")
	tmpDir, err := os.MkdirTemp("", "linkpulse-bench-*")
	if err != nil {
		fatal("create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	binPath := filepath.Join(tmpDir, "linkpulse-server")
	build := exec.Command("go", "build", "-o", binPath, "./cmd/server")
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		fatal("build server: %v", err)
	}
	fmt.Println("done")

	// 2. Start server
	fmt.Printf("Starting server...     ")
	port, err := freePort()
	if err != nil {
		fatal("find free port: %v", err)
	}
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)

	srv := exec.Command(binPath)
	srvLog, err := os.Create(filepath.Join(tmpDir, "server.log"))
	if err != nil {
		fatal("create server log: %v", err)
	}
	defer srvLog.Close()
	srv.Stdout = srvLog
	srv.Stderr = srvLog
	srv.Env = append(os.Environ(),
		fmt.Sprintf("LINKPULSE_PORT=%d", port),
		"LINKPULSE_BASE_URL="+baseURL,
		"LINKPULSE_STORAGE="+*storage,
		"LINKPULSE_DB_PATH="+filepath.Join(tmpDir, "linkpulse.db"),
		"LINKPULSE_CACHE_SIZE=10000",
		"LINKPULSE_BUFFER_SIZE=500000",
		"LINKPULSE_CREATE_RPS=10000",
		"LINKPULSE_CREATE_BURST=10000",
		"LINKPULSE_LOG_LEVEL=warn",
	)
	if err := srv.Start(); err != nil {
		fatal("start server: %v", err)
	}
	defer func() {
		srv.Process.Signal(syscall.SIGINT)
		srv.Wait()
	}()

	// 3. Wait for server ready
	if err := waitReady(baseURL+"/healthz", 5*time.Second); err != nil {
		fatal("server not ready: %v", err)
	}
	fmt.Printf("ready (port %d)\n", port)

	// 4. Seed links through the API
	fmt.Printf("Seeding links...       ")
	codes := make([]string, linkCount)
	for i := range linkCount {
		code := fmt.Sprintf("bench-%03d", i+1)
		if err := createLink(baseURL, code, fmt.Sprintf("https://example.com/%d", i+1)); err != nil {
			fatal("seed link %d: %v", i+1, err)
		}
		codes[i] = code
	}
	fmt.Printf("done (%d links)\n", linkCount)

	// 5. Hammer the redirect path
	fmt.Printf("Benchmarking...        %s, %d workers\n", *duration, *concurrency)

	client := &http.Client{
		Transport: &http.Transport{MaxIdleConnsPerHost: *concurrency},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	deadline := time.Now().Add(*duration)
	results := make(chan workerResult, *concurrency)
	for i := range *concurrency {
		go func(seed int64) {
			results <- visitUntil(client, baseURL, codes, deadline, rand.New(rand.NewSource(seed)))
		}(int64(i) + 42)
	}

	var total workerResult
	for range *concurrency {
		r := <-results
		total.latencies = append(total.latencies, r.latencies...)
		total.failed += r.failed
	}

	// 6. Report
	sort.Slice(total.latencies, func(i, j int) bool { return total.latencies[i] < total.latencies[j] })
	requests := len(total.latencies) + total.failed

	fmt.Println()
	fmt.Printf("Redirects:   %d ok, %d failed\n", len(total.latencies), total.failed)
	fmt.Printf("Throughput:  %.1f req/s\n", float64(requests)/duration.Seconds())
	for _, p := range []int{50, 95, 99} {
		fmt.Printf("Latency p%d: %.2fms\n", p, float64(percentile(total.latencies, p).Microseconds())/1000)
	}

	// 7. Clicks are recorded asynchronously; report what landed for one code.
	time.Sleep(500 * time.Millisecond)
	if clicks, err := recordedClicks(baseURL, codes[0]); err != nil {
		fmt.Printf("Recorded:    unavailable (%v)\n", err)
	} else {
		fmt.Printf("Recorded:    %d clicks on %s\n", clicks, codes[0])
	}
}

type workerResult struct {
	latencies []time.Duration
	failed    int
}

// visitUntil issues redirects against random codes until deadline. Each
// worker spreads its visits over a small set of client IPs.
func visitUntil(client *http.Client, baseURL string, codes []string, deadline time.Time, rng *rand.Rand) workerResult {
	var res workerResult
	for time.Now().Before(deadline) {
		req, _ := http.NewRequest(http.MethodGet, baseURL+"/"+codes[rng.Intn(len(codes))], nil)
		req.Header.Set("User-Agent", benchUA)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", rng.Intn(250)+1))

		start := time.Now()
		resp, err := client.Do(req)
		if err != nil {
			res.failed++
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusFound {
			res.failed++
			continue
		}
		res.latencies = append(res.latencies, time.Since(start))
	}
	return res
}

func recordedClicks(baseURL, code string) (int, error) {
	resp, err := http.Get(baseURL + "/api/links/" + code + "/stats")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("status %d", resp.StatusCode)
	}
	var body struct {
		TotalClicks int `json:"total_clicks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	return body.TotalClicks, nil
}

func createLink(baseURL, code, target string) error {
	payload, err := json.Marshal(map[string]string{"target_url": target, "custom_alias": code})
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/links", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Owner-ID", "bench")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}

func freePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port, nil
}

func waitReady(url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 500 * time.Millisecond}
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("timeout after %s", timeout)
}

func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FATAL: "+format+"\n", args...)
	os.Exit(1)
}
