package utils

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	serverReadTimeout  = 60 * time.Second
	serverWriteTimeout = 60 * time.Second

	// The restarted child finds this env marker set and inherits the
	// listening socket on fd 3.
	gracefulEnvKey   = "PHYSHUB_GRACEFUL"
	gracefulListenFd = 3
)

// graceServer restarts in place on SIGUSR2 by passing the listener fd
// to a fresh copy of the binary, and drains connections on SIGTERM.
type graceServer struct {
	*http.Server

	listener     net.Listener
	inherited    bool
	signals      chan os.Signal
	shutdownDone chan struct{}
}

// GraceServer serves handler on addr until SIGTERM, surviving SIGUSR2
// binary swaps without dropping the listening socket.
func GraceServer(addr string, handler http.Handler) error {
	srv := &graceServer{
		Server: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  serverReadTimeout,
			WriteTimeout: serverWriteTimeout,
		},
		inherited:    os.Getenv(gracefulEnvKey) != "",
		signals:      make(chan os.Signal, 1),
		shutdownDone: make(chan struct{}),
	}

	ln, err := srv.listen(addr)
	if err != nil {
		return err
	}
	srv.listener = ln

	go srv.handleSignals()
	err = srv.Serve(srv.listener)
	// Serve returns as soon as the listener closes; wait for in-flight
	// requests to finish draining.
	<-srv.shutdownDone
	return err
}

func (srv *graceServer) listen(addr string) (net.Listener, error) {
	if srv.inherited {
		ln, err := net.FileListener(os.NewFile(gracefulListenFd, ""))
		if err != nil {
			return nil, fmt.Errorf("inherit listener: %w", err)
		}
		return ln, nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return ln, nil
}

func (srv *graceServer) handleSignals() {
	signal.Notify(srv.signals, syscall.SIGTERM, syscall.SIGUSR2)

	for sig := range srv.signals {
		switch sig {
		case syscall.SIGTERM:
			Sugar.Info("SIGTERM received, draining HTTP server")
			srv.drain()
		case syscall.SIGUSR2:
			Sugar.Info("SIGUSR2 received, restarting in place")
			pid, err := srv.forkChild()
			if err != nil {
				Sugar.Errorf("restart failed, old process keeps serving: %v", err)
				continue
			}
			Sugar.Infof("child started pid=%d, draining old server", pid)
			srv.drain()
		}
	}
}

func (srv *graceServer) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		Sugar.Errorf("HTTP server shutdown error: %v", err)
	}
	close(srv.shutdownDone)
}

func (srv *graceServer) forkChild() (int, error) {
	tcpLn, ok := srv.listener.(*net.TCPListener)
	if !ok {
		return 0, fmt.Errorf("listener is %T, cannot pass its fd", srv.listener)
	}
	file, err := tcpLn.File()
	if err != nil {
		return 0, fmt.Errorf("listener file: %w", err)
	}

	marker := gracefulEnvKey + "=1"
	env := []string{}
	for _, e := range os.Environ() {
		if e != marker {
			env = append(env, e)
		}
	}
	env = append(env, marker)

	pid, err := syscall.ForkExec(os.Args[0], os.Args, &syscall.ProcAttr{
		Env:   env,
		Files: []uintptr{os.Stdin.Fd(), os.Stdout.Fd(), os.Stderr.Fd(), file.Fd()},
	})
	if err != nil {
		return 0, fmt.Errorf("forkexec: %w", err)
	}
	return pid, nil
}
