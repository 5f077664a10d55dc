package harness

import (
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WaitReachable polls the target until it answers any HTTP response, or the
// timeout elapses. Certificate failures abort immediately: waiting will not
// fix a trust problem.
func WaitReachable(cfg Config, timeout time.Duration, output io.Writer) error {
	cfg = cfg.withDefaults()
	client := &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.TLSSkipVerify}, //nolint:gosec // operator opt-in
		},
	}

	fmt.Fprintf(output, "Waiting for target system at %s", cfg.BaseURL)
	deadline := time.Now().Add(timeout)
	var lastErr error
	for {
		fmt.Fprintf(output, ".")
		resp, err := client.Get(cfg.BaseURL + "/")
		if err == nil {
			resp.Body.Close()
			fmt.Fprintln(output)
			return nil
		}
		if isCertificateError(err) {
			fmt.Fprintln(output)
			return fmt.Errorf("certificate verification failed for %s: %w", cfg.BaseURL, err)
		}
		lastErr = err
		if !time.Now().Before(deadline) {
			fmt.Fprintln(output)
			return fmt.Errorf("timed out, result of last query was: %w", lastErr)
		}
		time.Sleep(100 * time.Millisecond)
	}
}
