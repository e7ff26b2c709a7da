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

package main

import (
	"log"
	"os"

	"github.com/urfave/cli"

	dispatchclient "github.com/xtaci/dispatchd/client"
)

// VERSION is injected by build flags.
var VERSION = "SELFBUILD"

func main() {
	if VERSION == "SELFBUILD" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	myApp := cli.NewApp()
	myApp.Name = "dispatchd-client"
	myApp.Usage = "benchmarking load generator for dispatchd"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "addr",
			Value: "127.0.0.1:29900",
			Usage: "dispatch server address",
		},
		cli.IntFlag{
			Name:  "seed",
			Value: 0,
			Usage: "initial seed; client i is seeded with seed+i",
		},
		cli.IntFlag{
			Name:  "clients",
			Value: 10,
			Usage: "number of concurrent clients",
		},
		cli.IntFlag{
			Name:  "messages",
			Value: 100,
			Usage: "number of chained request messages per client",
		},
	}
	myApp.Action = func(c *cli.Context) error {
		params := dispatchclient.Params{
			Address:                c.String("addr"),
			InitialSeed:            uint64(c.Int("seed")),
			TotalClients:           c.Int("clients"),
			TotalMessagesPerClient: c.Int("messages"),
		}

		log.Printf("starting client benchmarking with %d client(s)", params.TotalClients)
		result, err := dispatchclient.Run(params)
		if err != nil {
			log.Printf("%+v", err)
			os.Exit(-1)
		}

		log.Printf("successfully collected results from all clients: %d", result.FinalSum)
		log.Printf("elapsed time for all clients to finish: %s", result.Elapsed)
		return nil
	}
	myApp.Run(os.Args)
}
