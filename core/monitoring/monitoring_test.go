package monitoring

import (
	"errors"
	"testing"
	"time"
)

func TestNopMonitor(t *testing.T) {
	var m Monitor = NopMonitor{}
	m.CaptureException(errors.New("boom"), map[string]string{"order_id": "o1"})
	m.Flush(time.Millisecond)
}
