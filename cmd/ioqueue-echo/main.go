// Command ioqueue-echo runs a UDP or TCP echo server on top of the IOQ,
// demonstrating the submit/poll/callback cycle end to end.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"

	ioqueue "github.com/behrlich/go-ioqueue"
	"github.com/behrlich/go-ioqueue/internal/logging"
)

func main() {
	var (
		proto   = flag.String("proto", "udp", "udp or tcp")
		addr    = flag.String("addr", "127.0.0.1", "bind address")
		port    = flag.Int("port", 9999, "bind port")
		verbose = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	metrics := ioqueue.NewMetrics()
	q, err := ioqueue.New(ioqueue.Config{
		Capacity: 256,
		Backend:  ioqueue.BackendAuto,
		Logger:   logger,
		Observer: ioqueue.NewMetricsObserver(metrics),
	})
	if err != nil {
		logger.Errorf("ioqueue.New: %v", err)
		os.Exit(1)
	}
	defer q.Destroy()

	var addr4 [4]byte
	ip := parseIPv4(*addr)
	copy(addr4[:], ip)

	switch *proto {
	case "udp":
		if err := runUDPEcho(q, addr4, *port, logger); err != nil {
			logger.Errorf("udp echo: %v", err)
			os.Exit(1)
		}
	case "tcp":
		if err := runTCPEcho(q, addr4, *port, logger); err != nil {
			logger.Errorf("tcp echo: %v", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown proto %q (want udp or tcp)\n", *proto)
		os.Exit(2)
	}

	fmt.Printf("echo server listening on %s:%d (%s)\n", *addr, *port, *proto)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}
			if _, err := q.Poll(0); err != nil {
				logger.Errorf("poll: %v", err)
				return
			}
		}
	}()

	<-sigCh
	close(done)

	snap := metrics.Snapshot()
	fmt.Printf("submissions: immediate=%d pending=%d errors=%d\n", snap.Immediate, snap.Pending, snap.Errors)
}

// udpEchoState tracks the per-request buffer the recvfrom/sendto round trip
// needs alive across the callback boundary.
type udpEchoState struct {
	key *ioqueue.Key
	op  ioqueue.Op
	buf [2048]byte
}

func runUDPEcho(q *ioqueue.IoQueue, addr [4]byte, port int, logger *logging.Logger) error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return err
	}
	if err := unix.Bind(fd, &unix.SockaddrInet4{Addr: addr, Port: port}); err != nil {
		return err
	}

	st := &udpEchoState{}
	k, err := q.Register(fd, st, ioqueue.Callbacks{
		OnReadComplete: func(n int, remote interface{}, err error) {
			if err != nil {
				logger.Errorf("recvfrom: %v", err)
				armRecv(st, logger)
				return
			}
			if sa, ok := remote.(unix.Sockaddr); ok {
				var sendOp ioqueue.Op
				if _, err := st.key.SendTo(&sendOp, st.buf[:n], 0, sa); err != nil {
					logger.Errorf("sendto: %v", err)
				}
			}
			armRecv(st, logger)
		},
	}, nil)
	if err != nil {
		return err
	}
	st.key = k
	armRecv(st, logger)
	return nil
}

func armRecv(st *udpEchoState, logger *logging.Logger) {
	if _, err := st.key.RecvFrom(&st.op, st.buf[:], 0); err != nil {
		logger.Errorf("recvfrom submit: %v", err)
	}
}

// tcpConn tracks one accepted connection's echo loop state. recvBuf and
// sendBuf are kept separate since a send submitted from the read callback
// may still be pending when the next recv is armed.
type tcpConn struct {
	key     *ioqueue.Key
	recvOp  ioqueue.Op
	sendOp  ioqueue.Op
	recvBuf [4096]byte
	sendBuf [4096]byte
}

func runTCPEcho(q *ioqueue.IoQueue, addr [4]byte, port int, logger *logging.Logger) error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return err
	}
	if err := unix.Bind(fd, &unix.SockaddrInet4{Addr: addr, Port: port}); err != nil {
		return err
	}
	if err := unix.Listen(fd, 64); err != nil {
		return err
	}

	var listenKey *ioqueue.Key
	var armAccept func()
	listenKey, err = q.Register(fd, nil, ioqueue.Callbacks{
		OnAcceptComplete: func(newFD int, local, remote interface{}, err error) {
			if err != nil {
				logger.Errorf("accept: %v", err)
			} else {
				acceptConn(q, newFD, logger)
			}
			armAccept()
		},
	}, nil)
	if err != nil {
		return err
	}

	armAccept = func() {
		var op ioqueue.Op
		res, err := listenKey.Accept(&op)
		if err != nil {
			logger.Errorf("accept submit: %v", err)
			return
		}
		if res.IsImmediate() {
			// A connection was already sitting in the backlog: handle it now
			// and arm the next accept, rather than waiting on a callback
			// that was never scheduled for this one.
			acceptConn(q, res.N, logger)
			armAccept()
		}
	}
	armAccept()
	return nil
}

func acceptConn(q *ioqueue.IoQueue, fd int, logger *logging.Logger) {
	c := &tcpConn{}
	cb := ioqueue.Callbacks{
		OnReadComplete: func(n int, _ interface{}, err error) {
			if err != nil || n <= 0 {
				q.Unregister(c.key)
				return
			}
			copy(c.sendBuf[:n], c.recvBuf[:n])
			if _, err := c.key.Send(&c.sendOp, c.sendBuf[:n], 0); err != nil {
				logger.Errorf("send: %v", err)
			}
			if _, err := c.key.Recv(&c.recvOp, c.recvBuf[:], 0); err != nil {
				logger.Errorf("recv submit: %v", err)
			}
		},
	}
	k, err := q.Register(fd, nil, cb, nil)
	if err != nil {
		logger.Errorf("register accepted conn: %v", err)
		return
	}
	c.key = k
	if _, err := k.Recv(&c.recvOp, c.recvBuf[:], 0); err != nil {
		logger.Errorf("recv submit: %v", err)
	}
}

func parseIPv4(s string) []byte {
	var parts [4]int
	fmt.Sscanf(s, "%d.%d.%d.%d", &parts[0], &parts[1], &parts[2], &parts[3])
	return []byte{byte(parts[0]), byte(parts[1]), byte(parts[2]), byte(parts[3])}
}
