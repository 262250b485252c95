// digitnet-server: answers classification requests with a saved network,
// over stdin/stdout or TCP.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"gonum.org/v1/gonum/floats"

	"digitnet/nn"
	"digitnet/protocol"
	"digitnet/utils"
)

var (
	networkFile = flag.String("network", "network.txt", "Saved network file")
	listenAddr  = flag.String("listen", "", "TCP address to listen on (default: serve stdin/stdout)")
	verbose     = flag.Bool("verbose", false, "Verbose output")
)

// classifier is the part of *nn.Network the server needs.
type classifier interface {
	Calculate(input []float64) ([]float64, error)
}

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	model, err := nn.Load(*networkFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading network: %v\n", err)
		os.Exit(1)
	}
	log("Network %v ready", model.LayerSizes())

	// Calculate reuses the network's activation buffers.
	var mu sync.Mutex

	if *listenAddr == "" {
		log("Waiting for client on stdin...")
		if err := serve(model, &mu, protocol.NewProtocol(os.Stdin, os.Stdout)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		log("Server done")
		return
	}

	ln, err := net.Listen("tcp", *listenAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listening: %v\n", err)
		os.Exit(1)
	}
	log("Listening on %s", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error accepting: %v\n", err)
			os.Exit(1)
		}
		go func() {
			defer conn.Close()
			log("Client %s connected", conn.RemoteAddr())
			if err := serve(model, &mu, protocol.NewProtocol(conn, conn)); err != nil {
				log("Client %s: %v", conn.RemoteAddr(), err)
				return
			}
			log("Client %s done", conn.RemoteAddr())
		}()
	}
}

// serve answers predict requests until the client sends done or the stream
// ends. A request the network rejects is answered with an error message and
// the loop continues.
func serve(model classifier, mu *sync.Mutex, p *protocol.Protocol) error {
	for {
		req, err := p.ReceivePredict()
		if err == io.EOF {
			return nil
		}
		var remote *protocol.RemoteError
		if errors.As(err, &remote) {
			log("Client reported: %v", remote)
			continue
		}
		if err != nil {
			return err
		}

		mu.Lock()
		output, err := model.Calculate(req.Pixels)
		mu.Unlock()
		if err != nil {
			log("Request %d: %v", req.ID, err)
			if err := p.SendError(fmt.Errorf("request %d: %w", req.ID, err)); err != nil {
				return err
			}
			continue
		}

		if err := p.SendPrediction(req.ID, output, floats.MaxIdx(output)); err != nil {
			return err
		}
		log("Request %d answered", req.ID)
	}
}

func log(format string, args ...interface{}) {
	if *verbose {
		fmt.Fprintf(os.Stderr, "[SERVER] "+format+"\n", args...)
	}
}
