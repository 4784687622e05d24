// Command isodump decodes hex encoded ISO8583 messages read from stdin, one
// per line, and prints a field by field description of each.
package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	iso8583 "github.com/paytend-2023/iso-8583"
)

type Config struct {
	ConfigPath  string `env:"ISO8583_CONFIG"      envDefault:"iso8583.yaml"`
	LogLevel    string `env:"ISO8583_LOG_LEVEL"   envDefault:"info"`
	Concurrency int    `env:"ISO8583_CONCURRENCY" envDefault:"4"`
	Debug       bool   `env:"ISO8583_DEBUG"       envDefault:"false"`
}

func main() {
	cfg := Config{}
	// .env is optional
	_ = godotenv.Load()
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	isoCfg, err := iso8583.LoadConfigFile(cfg.ConfigPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.ConfigPath).Msg("loading factory config")
	}
	factory, err := iso8583.NewFactoryFromConfig(isoCfg, iso8583.WithLogger(logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("building factory")
	}

	batch, err := readHexLines(bufio.NewScanner(os.Stdin))
	if err != nil {
		logger.Fatal().Err(err).Msg("reading input")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var failed atomic.Int32
	processor := iso8583.NewProcessor(factory,
		iso8583.WithConcurrency(cfg.Concurrency),
		iso8583.WithErrorHandler(func(err error) {
			failed.Add(1)
			logger.Error().Err(err).Msg("parse failed")
		}),
	)

	in := make(chan []byte)
	out := make(chan *iso8583.Message)
	go func() {
		defer close(in)
		for _, data := range batch {
			select {
			case in <- data:
			case <-ctx.Done():
				return
			}
		}
	}()
	errc := make(chan error, 1)
	go func() {
		errc <- processor.ProcessStream(ctx, in, out)
		close(out)
	}()

	for msg := range out {
		logger.Debug().Object("message", msg).Msg("parsed")
		fmt.Print(msg.Describe())
		if cfg.Debug {
			fmt.Println(msg.DebugString())
		}
		msg.Release()
	}
	if err := <-errc; err != nil {
		logger.Error().Err(err).Msg("processing stopped")
		os.Exit(1)
	}
	if failed.Load() > 0 {
		os.Exit(1)
	}
}

func readHexLines(scanner *bufio.Scanner) ([][]byte, error) {
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var out [][]byte
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		data, err := hex.DecodeString(strings.ReplaceAll(line, " ", ""))
		if err != nil {
			return nil, errors.Wrapf(err, "line %q", line)
		}
		out = append(out, data)
	}
	return out, scanner.Err()
}
