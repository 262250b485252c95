// digitnet-client: sends corpus samples to a digitnet-server and reports how
// well the remote network classifies them.
package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"digitnet/mnist"
	"digitnet/protocol"
	"digitnet/trainer"
	"digitnet/utils"
)

var (
	serverAddr = flag.String("addr", "", "Server TCP address (default: talk over stdin/stdout)")
	images     = flag.String("images", "data/t10k-images-idx3-ubyte", "IDX image file")
	labels     = flag.String("labels", "data/t10k-labels-idx1-ubyte", "IDX label file")
	samples    = flag.Int("samples", 100, "Number of samples to send (0 = all)")
	classes    = flag.Int("classes", 10, "Number of output classes of the remote network")
	verbose    = flag.Bool("verbose", false, "Verbose output")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	corpus, err := mnist.Load(*images, *labels)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading corpus: %v\n", err)
		os.Exit(1)
	}
	corpus = corpus.Head(*samples)
	log("Loaded %d samples", corpus.Len())

	var r io.Reader = os.Stdin
	var w io.Writer = os.Stdout
	if *serverAddr != "" {
		conn, err := net.Dial("tcp", *serverAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting: %v\n", err)
			os.Exit(1)
		}
		defer conn.Close()
		r, w = conn, conn
	}

	remote := &remoteClassifier{proto: protocol.NewProtocol(r, w), classes: *classes}

	var progress io.Writer
	if *verbose {
		progress = os.Stderr
	}

	start := time.Now()
	report, err := trainer.Evaluate(remote, corpus, progress)
	if err != nil {
		remote.proto.SendDone()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := remote.proto.SendDone(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log("Classified %d samples (%.2fs)", corpus.Len(), time.Since(start).Seconds())

	// In stdio mode stdout carries the protocol.
	out := io.Writer(os.Stdout)
	if *serverAddr == "" {
		out = os.Stderr
	}
	if _, err := report.WriteTo(out); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// remoteClassifier classifies inputs by round-tripping them through a server.
type remoteClassifier struct {
	proto   *protocol.Protocol
	classes int
	nextID  int
}

func (c *remoteClassifier) OutputSize() int { return c.classes }

func (c *remoteClassifier) Calculate(input []float64) ([]float64, error) {
	id := c.nextID
	c.nextID++
	if err := c.proto.SendPredict(id, input); err != nil {
		return nil, err
	}
	resp, err := c.proto.ReceivePrediction()
	if err != nil {
		return nil, err
	}
	if resp.ID != id {
		return nil, fmt.Errorf("response %d does not match request %d", resp.ID, id)
	}
	log("Sample %d: class %d", id, resp.Label)
	return resp.Probabilities, nil
}

func log(format string, args ...interface{}) {
	if *verbose {
		fmt.Fprintf(os.Stderr, "[CLIENT] "+format+"\n", args...)
	}
}
