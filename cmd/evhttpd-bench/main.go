// Command evhttpd-bench drives N sequential requests against a URL through
// httpclient.HttpClient.Timeit and reports elapsed wall time - spec 4.J,
// the original library's command-line timeit/bench tooling.
//
// Run with: go run ./cmd/evhttpd-bench -n 20 http://localhost:8080/
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joeycumines/go-evhttp/evloop"
	"github.com/joeycumines/go-evhttp/httpclient"
)

func main() {
	n := flag.Int("n", 10, "number of sequential requests to issue")
	method := flag.String("method", "GET", "HTTP method")
	poolSize := flag.Int("pool-size", 6, "connection pool size for the target origin")
	verbose := flag.Bool("v", false, "log errors to stderr")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: evhttpd-bench [flags] <url>")
		os.Exit(2)
	}
	url := flag.Arg(0)

	var logger evloop.Logger
	if *verbose {
		logger = evloop.NewLogger(os.Stderr)
	} else {
		logger = evloop.NewLogger(nil)
	}

	loop, err := evloop.New(evloop.WithLogger(logger))
	if err != nil {
		fmt.Fprintln(os.Stderr, "evhttpd-bench:", err)
		os.Exit(1)
	}
	defer loop.Close()

	client := httpclient.NewClient(loop, httpclient.WithClientLogger(logger), httpclient.WithPoolSize(*poolSize))

	var exitCode int
	loop.CallSoon(func() {
		client.Timeit(*method, *n, url).OnDone(func(bench *httpclient.Bench, err error) {
			defer loop.Stop()
			if err != nil {
				fmt.Fprintln(os.Stderr, "evhttpd-bench:", err)
				exitCode = 1
				return
			}
			fmt.Printf("%d requests in %s (%.2f req/s)\n", *n, bench.Taken, float64(*n)/bench.Taken.Seconds())
			for i, resp := range bench.Result {
				fmt.Printf("  [%d] %d %s\n", i, resp.StatusCode, resp.Reason)
			}
		})
	})

	if err := loop.RunForever(); err != nil {
		fmt.Fprintln(os.Stderr, "evhttpd-bench:", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}
