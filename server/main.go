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
	"net"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/xtaci/dispatchd/cache"
	"github.com/xtaci/dispatchd/dispatch"
	"github.com/xtaci/dispatchd/limiter"
	"github.com/xtaci/dispatchd/transport"
)

// VERSION is populated via build flags when packaging official binaries.
var VERSION = "SELFBUILD"

func main() {
	if VERSION == "SELFBUILD" {
		// Enable timestamps + file:line to simplify debugging self-built binaries.
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	myApp := cli.NewApp()
	myApp.Name = "dispatchd"
	myApp.Usage = "concurrent task-dispatch server"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "listen,l",
			Value: ":29900",
			Usage: `server listen address, eg: "IP:29900" for a single port, "IP:minport-maxport" for port range`,
		},
		cli.StringFlag{
			Name:  "transport",
			Value: "tcp",
			Usage: "tcp or kcp",
		},
		cli.IntFlag{
			Name:  "cap",
			Value: 40,
			Usage: "admission permit pool capacity bounding in-flight CPU task bodies",
		},
		cli.BoolFlag{
			Name:  "strict-order",
			Usage: "reserve each connection's response slot in read order instead of completion order",
		},
		cli.StringFlag{
			Name:   "key",
			Value:  "it's a secrect",
			Usage:  "pre-shared secret between client and server, kcp transport only",
			EnvVar: "DISPATCHD_KEY",
		},
		cli.StringFlag{
			Name:  "crypt",
			Value: "none",
			Usage: "aes, aes-128, aes-128-gcm, aes-192, salsa20, blowfish, twofish, cast5, 3des, tea, xtea, xor, sm4, none",
		},
		cli.IntFlag{
			Name:  "datashard,ds",
			Value: 10,
			Usage: "set reed-solomon erasure coding - datashard, kcp transport only",
		},
		cli.IntFlag{
			Name:  "parityshard,ps",
			Value: 3,
			Usage: "set reed-solomon erasure coding - parityshard, kcp transport only",
		},
		cli.BoolFlag{
			Name:  "mux",
			Usage: "multiplex many logical connections over each accepted physical connection",
		},
		cli.BoolFlag{
			Name:  "compress",
			Usage: "wrap accepted connections in snappy framing",
		},
		cli.StringFlag{
			Name:  "snmplog",
			Value: "",
			Usage: "collect kcp snmp counters to file, aware of timeformat in golang, like: ./snmp-20060102.log",
		},
		cli.IntFlag{
			Name:  "snmpperiod",
			Value: 60,
			Usage: "snmp collect period, in seconds",
		},
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "specify a log file to output, default goes to stderr",
		},
		cli.BoolFlag{
			Name:  "quiet",
			Usage: "suppress per-connection open/close messages",
		},
		cli.StringFlag{
			Name:  "c",
			Value: "", // when set, the JSON file must exist on disk
			Usage: "config from json file, which will override the command from shell",
		},
	}
	myApp.Action = func(c *cli.Context) error {
		config := Config{}
		config.Listen = c.String("listen")
		config.Transport = c.String("transport")
		config.Cap = c.Int("cap")
		config.StrictOrder = c.Bool("strict-order")
		config.Key = c.String("key")
		config.Crypt = c.String("crypt")
		config.DataShard = c.Int("datashard")
		config.ParityShard = c.Int("parityshard")
		config.Mux = c.Bool("mux")
		config.Compress = c.Bool("compress")
		config.SnmpLog = c.String("snmplog")
		config.SnmpPeriod = c.Int("snmpperiod")
		config.Log = c.String("log")
		config.Quiet = c.Bool("quiet")

		if c.String("c") != "" {
			// Only JSON configuration files are supported at the moment.
			err := parseJSONConfig(&config, c.String("c"))
			checkError(err)
		}

		if config.Cap <= 0 {
			color.Red("cap %d is non-positive, falling back to 40", config.Cap)
			config.Cap = 40
		}

		// Redirect logs when the user supplied a dedicated log file.
		if config.Log != "" {
			f, err := os.OpenFile(config.Log, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
			checkError(err)
			defer f.Close()
			log.SetOutput(f)
		}

		log.Println("version:", VERSION)
		log.Println("transport:", config.Transport)
		log.Println("listening on:", config.Listen)
		log.Println("admission capacity:", config.Cap)
		log.Println("strict-order:", config.StrictOrder)
		log.Println("mux:", config.Mux)
		log.Println("compress:", config.Compress)
		if config.Transport == string(transport.KCP) {
			log.Println("encryption:", config.Crypt)
			log.Println("datashard:", config.DataShard, "parityshard:", config.ParityShard)
		}
		log.Println("quiet:", config.Quiet)

		if config.Transport == string(transport.KCP) {
			go snmpLogger(config.SnmpLog, time.Duration(config.SnmpPeriod)*time.Second)
		}

		dcache := cache.New()
		lim := limiter.New(config.Cap)
		handler := dispatch.NewHandler(dcache, lim, config.StrictOrder)
		handler.Quiet = config.Quiet
		acceptor := dispatch.NewAcceptor(handler)

		tcfg := transport.Config{
			Kind:        transport.Kind(config.Transport),
			DataShard:   config.DataShard,
			ParityShard: config.ParityShard,
			Crypt:       config.Crypt,
			Key:         config.Key,
			Compress:    config.Compress,
			Mux:         config.Mux,
		}

		ranges, err := transport.ParsePortRange(config.Listen)
		checkError(err)
		addrs := ranges.Addrs()

		var wg sync.WaitGroup
		for _, addr := range addrs {
			lis, err := transport.Listen(addr, tcfg)
			checkError(err)
			log.Println("bound", addr)

			wg.Add(1)
			go func(lis net.Listener) {
				defer wg.Done()
				if err := acceptor.Serve(lis, nil); err != nil {
					log.Println("accept loop terminated:", err)
				}
			}(lis)
		}
		wg.Wait()
		return nil
	}
	myApp.Run(os.Args)
}

func checkError(err error) {
	if err != nil {
		log.Printf("%+v\n", errors.WithStack(err))
		os.Exit(-1)
	}
}
