// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// probestat fills a Robin Hood set with generated keys and prints its
// displacement statistics.
package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/robinhood"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type config struct {
	count int
	fill  float64
	keys  string
	seed  uint64
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	var cfg config
	cmd := &cobra.Command{
		Use:          "probestat",
		Short:        "print displacement statistics for a filled Robin Hood set",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg, cmd.OutOrStdout(), logger)
		},
	}
	cmd.Flags().IntVarP(&cfg.count, "count", "n", 100000, "number of keys to insert")
	cmd.Flags().Float64VarP(&cfg.fill, "fill", "f", 0.7, "max fill level, in (0, 1)")
	cmd.Flags().StringVarP(&cfg.keys, "keys", "k", "rand", "key distribution: seq, rand or string")
	cmd.Flags().Uint64VarP(&cfg.seed, "seed", "s", 1, "seed for key generation and hashing")
	return cmd
}

func run(cfg config, out io.Writer, logger *zap.Logger) error {
	if cfg.count < 0 {
		return errors.Newf("invalid count %d", cfg.count)
	}
	if !(cfg.fill > 0 && cfg.fill < 1) {
		return errors.Newf("invalid fill level %.2f: must be in (0, 1)", cfg.fill)
	}

	start := time.Now()
	var stats robinhood.Stats
	switch cfg.keys {
	case "seq":
		stats = fill(cfg, func(i int) uint64 { return uint64(i) }, nil)
	case "rand":
		rng := rand.New(rand.NewPCG(cfg.seed, cfg.seed))
		stats = fill(cfg, func(int) uint64 { return rng.Uint64() }, nil)
	case "string":
		stats = fill(cfg, strconv.Itoa, robinhood.StringHash)
	default:
		return errors.Newf("unknown key distribution %q", cfg.keys)
	}

	logger.Info("filled set",
		zap.String("keys", cfg.keys),
		zap.Int("len", stats.Len),
		zap.Int("capacity", stats.Capacity),
		zap.Duration("elapsed", time.Since(start)))
	_, err := fmt.Fprint(out, stats.String())
	return errors.Wrap(err, "writing stats")
}

// fill inserts cfg.count generated keys into a new set, hashing them with
// hash if it is non-nil.
func fill[K comparable](
	cfg config, gen func(i int) K, hash func(key *K, seed uintptr) uintptr,
) robinhood.Stats {
	var s *robinhood.Set[K]
	if hash != nil {
		s = robinhood.NewSet[K](0,
			robinhood.WithHash[K, K](hash),
			robinhood.WithMaxFillLevel[K, K](cfg.fill),
			robinhood.WithSeed[K, K](uintptr(cfg.seed)))
	} else {
		s = robinhood.NewSet[K](0,
			robinhood.WithMaxFillLevel[K, K](cfg.fill),
			robinhood.WithSeed[K, K](uintptr(cfg.seed)))
	}
	defer s.Close()
	for i := 0; i < cfg.count; i++ {
		s.Insert(gen(i))
	}
	return s.Stats()
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := newRootCmd(logger).Execute(); err != nil {
		logger.Error("probestat failed", zap.Error(err))
		os.Exit(1)
	}
}
