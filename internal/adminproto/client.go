package adminproto

import (
	"fmt"
	"net"
	"time"

	"github.com/cloudwego/gopkg/bufiox"
)

// SendAndReceive dials socketPath, writes req, and reads back the single
// response byte. Grounded on thin_cli.c's thin_connection_create +
// thin_sync_send_and_receive pair: one short-lived connection per request.
func SendAndReceive(socketPath string, req Request, timeout time.Duration) (ResponseCode, error) {
	conn, err := net.DialTimeout("unix", socketPath, timeout)
	if err != nil {
		return 0, fmt.Errorf("adminproto: connect %s: %w", socketPath, err)
	}
	defer conn.Close()

	if timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return 0, fmt.Errorf("adminproto: set deadline: %w", err)
		}
	}

	w := bufiox.NewDefaultWriter(conn)
	if err := WriteRequest(w, req); err != nil {
		return 0, fmt.Errorf("adminproto: send: %w", err)
	}

	r := bufiox.NewDefaultReader(conn)
	code, err := ReadResponse(r)
	if err != nil {
		return 0, fmt.Errorf("adminproto: receive: %w", err)
	}
	return code, nil
}

// Handler processes one decoded Request and reports whether it succeeded.
// A Blkif registry (add/remove by name) implements this to back a running
// admin server; the admin protocol itself is agnostic to what add/del mean.
type Handler func(req Request) bool

// Serve accepts connections on listener until it is closed, handling each
// with one Request/Response round trip. Grounded on the single-request-per-
// connection shape thin_cli.c's server side implies.
func Serve(listener net.Listener, handle Handler) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			return err
		}
		go serveConn(conn, handle)
	}
}

func serveConn(conn net.Conn, handle Handler) {
	defer conn.Close()

	r := bufiox.NewDefaultReader(conn)
	req, err := ReadRequest(r)
	if err != nil {
		return
	}

	code := CodeFail
	if handle(req) {
		code = CodeOkay
	}

	w := bufiox.NewDefaultWriter(conn)
	_ = WriteResponse(w, code)
}
