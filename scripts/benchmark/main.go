package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"sheet2pdf/internal/security"
)

type scenario struct {
	name        string
	jobs        int
	concurrency int
	sheets      int
	rows        int
}

type sample struct {
	accepted  time.Duration
	completed time.Duration
	err       error
}

type client struct {
	http    *http.Client
	baseURL string
	secret  string
	timeout time.Duration
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "server base URL")
	secret := flag.String("secret", os.Getenv("API_SECRET"), "API secret used to sign requests")
	jobTimeout := flag.Duration("job-timeout", 5*time.Minute, "give up on a job after this long")
	flag.Parse()

	c := &client{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: *baseURL,
		secret:  *secret,
		timeout: *jobTimeout,
	}

	scenarios := []scenario{
		{name: "baseline", jobs: 50, concurrency: 10, sheets: 1, rows: 50},
		{name: "high concurrency", jobs: 100, concurrency: 50, sheets: 3, rows: 200},
		{name: "large workbooks", jobs: 5, concurrency: 2, sheets: 10, rows: 5000},
	}
	for _, sc := range scenarios {
		if err := c.run(context.Background(), sc); err != nil {
			fmt.Fprintf(os.Stderr, "scenario %q: %v\n", sc.name, err)
			os.Exit(1)
		}
	}
}

func (c *client) run(ctx context.Context, sc scenario) error {
	fmt.Printf("\n== %s: %d jobs, %d at a time, %d sheets x %d rows\n",
		sc.name, sc.jobs, sc.concurrency, sc.sheets, sc.rows)

	body, err := sampleWorkbook(sc.sheets, sc.rows)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}

	samples := make([]sample, sc.jobs)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(sc.concurrency)

	start := time.Now()
	for i := range samples {
		g.Go(func() error {
			samples[i] = c.submitAndWait(ctx, body)
			return nil
		})
	}
	_ = g.Wait()
	elapsed := time.Since(start)

	var accepted, completed []time.Duration
	failures := 0
	for _, s := range samples {
		if s.err != nil {
			failures++
			continue
		}
		accepted = append(accepted, s.accepted)
		completed = append(completed, s.completed)
	}

	fmt.Printf("elapsed:        %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("throughput:     %.2f jobs/sec\n", float64(sc.jobs)/elapsed.Seconds())
	fmt.Printf("failures:       %d/%d\n", failures, sc.jobs)
	fmt.Printf("accept p50/p95: %v / %v\n", percentile(accepted, 0.50), percentile(accepted, 0.95))
	fmt.Printf("done p50/p95:   %v / %v\n", percentile(completed, 0.50), percentile(completed, 0.95))
	return nil
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	slices.Sort(d)
	i := int(float64(len(d)-1) * p)
	return d[i].Round(time.Millisecond)
}

// sampleWorkbook streams rows straight into each sheet so large scenarios
// stay cheap to build.
func sampleWorkbook(sheets, rows int) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	for s := 1; s <= sheets; s++ {
		name := "Sheet" + strconv.Itoa(s)
		if s > 1 {
			if _, err := f.NewSheet(name); err != nil {
				return nil, err
			}
		}
		sw, err := f.NewStreamWriter(name)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow("A1", []any{"ID", "Name", "Amount", "Paid"}); err != nil {
			return nil, err
		}
		for r := 2; r <= rows+1; r++ {
			cell, err := excelize.CoordinatesToCellName(1, r)
			if err != nil {
				return nil, err
			}
			if err := sw.SetRow(cell, []any{r - 1, "row " + strconv.Itoa(r-1), float64(r) * 1.25, r%2 == 0}); err != nil {
				return nil, err
			}
		}
		if err := sw.Flush(); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set("X-Timestamp", ts)
	req.Header.Set("X-Signature", security.Sign(c.secret, method, req.URL.Path, body, ts))
	return c.http.Do(req)
}

func (c *client) submitAndWait(ctx context.Context, body []byte) sample {
	start := time.Now()

	resp, err := c.do(ctx, http.MethodPost, "/jobs", body)
	if err != nil {
		return sample{err: err}
	}
	var job struct {
		ID string `json:"id"`
	}
	err = json.NewDecoder(resp.Body).Decode(&job)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return sample{err: fmt.Errorf("submit returned %d", resp.StatusCode)}
	}
	if err != nil {
		return sample{err: fmt.Errorf("decode job: %w", err)}
	}
	s := sample{accepted: time.Since(start)}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			s.err = fmt.Errorf("job %s: %w", job.ID, ctx.Err())
			return s
		case <-time.After(500 * time.Millisecond):
		}

		status, err := c.status(ctx, job.ID)
		if err != nil {
			continue
		}
		switch status {
		case "COMPLETED":
			s.completed = time.Since(start)
			return s
		case "FAILED":
			s.err = errors.New("job " + job.ID + " failed")
			return s
		}
	}
}

func (c *client) status(ctx context.Context, id string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/jobs/"+id, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status returned %d", resp.StatusCode)
	}

	var snap struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return "", err
	}
	return snap.Status, nil
}
