// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package client is the paired load generator for the dispatch server:
// many goroutines, each holding one connection, chaining each request's
// seed off the previous response byte.
package client

import (
	"bufio"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const totalTaskTypes = 2

// Params configures one benchmarking run.
type Params struct {
	Address                string
	InitialSeed            uint64
	TotalClients           int
	TotalMessagesPerClient int
}

// Result summarizes the outcome of a run: the sum of every client's
// final seed byte, and the wall-clock time the run took.
type Result struct {
	FinalSum uint64
	Elapsed  time.Duration
}

// Run dials TotalClients connections to Address in parallel, each
// sending TotalMessagesPerClient chained request lines, and returns once
// every client has finished. A client's message i is seeded from the
// response byte of message i-1 (message 0 seeds from the client's own
// PRNG draw); the task type of every message is drawn fresh from that
// same PRNG. If any client fails to connect or hits an I/O error, Run
// still waits for every other client to finish and then returns that
// error instead of a Result.
func Run(p Params) (Result, error) {
	start := time.Now()

	sums := make(chan uint64, p.TotalClients)
	errs := make(chan error, p.TotalClients)

	var wg sync.WaitGroup
	for i := 0; i < p.TotalClients; i++ {
		wg.Add(1)
		clientSeed := p.InitialSeed + uint64(i)
		go func(seed uint64) {
			defer wg.Done()
			final, err := runOneClient(p.Address, seed, p.TotalMessagesPerClient)
			if err != nil {
				errs <- err
				return
			}
			sums <- uint64(final)
		}(clientSeed)
	}
	wg.Wait()
	close(sums)
	close(errs)

	if err := <-errs; err != nil {
		return Result{}, err
	}

	var finalSum uint64
	for s := range sums {
		finalSum += s
	}

	return Result{FinalSum: finalSum, Elapsed: time.Since(start)}, nil
}

// runOneClient dials address once and plays out the chained request
// sequence, returning the final response byte.
func runOneClient(address string, seed uint64, totalMessages int) (byte, error) {
	rng := rand.New(rand.NewSource(int64(seed)))
	current := byte(rng.Intn(256))

	conn, err := net.Dial("tcp", address)
	if err != nil {
		return 0, errors.Wrap(err, "client: connect to server")
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	for i := 0; i < totalMessages; i++ {
		taskType := rng.Intn(totalTaskTypes)
		request := fmt.Sprintf("%d:%d\n", taskType, current)
		if _, err := conn.Write([]byte(request)); err != nil {
			return 0, errors.Wrap(err, "client: write request")
		}

		b, err := r.ReadByte()
		if err != nil {
			return 0, errors.Wrap(err, "client: read response")
		}
		current = b
	}

	return current, nil
}
