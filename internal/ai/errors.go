package ai

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/faults"
)

// statusError reads a non-2xx response into an error. Timeouts, rate limits
// and server errors are transient; other statuses are not worth retrying.
func statusError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = fmt.Sprintf("status %d", resp.StatusCode)
	}
	return faults.Errorf(kindForStatus(resp.StatusCode), provider, "status %d: %s", resp.StatusCode, msg)
}

func kindForStatus(code int) faults.Kind {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests, code >= 500:
		return faults.Transient
	default:
		return faults.Internal
	}
}

// transportError tags a failed round trip.
func transportError(provider string, err error) error {
	return faults.E(faults.Transient, provider, err)
}
