//go:build windows

package bridge

import (
	"fmt"
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

func dial(path string) (net.Conn, error) {
	timeout := 5 * time.Second
	conn, err := winio.DialPipe(path, &timeout)
	if err != nil {
		return nil, fmt.Errorf("dial pipe %s: %w", path, err)
	}
	return conn, nil
}
