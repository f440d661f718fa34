// Command keyquarry runs a key range search from the command line.
//
// Exit codes: 0 clean stop (with or without hits), 1 invalid
// configuration, 2 I/O error on state files, 3 target-file parse error,
// 130 interrupted by signal.
package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/veraison/go-cose"

	"github.com/datatrails/go-datatrails-common/logger"

	"github.com/keyquarry/go-keyquarry/errs"
	"github.com/keyquarry/go-keyquarry/search"
	"github.com/keyquarry/go-keyquarry/uint256"
)

const (
	exitOK          = 0
	exitConfig      = 1
	exitStateIO     = 2
	exitTargetParse = 3
	exitInterrupted = 130
)

var (
	titleColor = color.New(color.FgCyan, color.Bold)
	hitColor   = color.New(color.FgGreen, color.Bold)
	warnColor  = color.New(color.FgYellow)
)

func main() {
	os.Exit(run())
}

func run() int {
	// A .env alongside the binary can pre-seed flag defaults.
	_ = godotenv.Load()

	var (
		rangeStart = flag.String("start", envOr("KEYQUARRY_START", ""), "range start (hex)")
		rangeEnd   = flag.String("end", envOr("KEYQUARRY_END", ""), "range end (hex)")
		bits       = flag.Uint("bits", 0, "search the full k-bit keyspace instead of start/end")
		targets    = flag.String("targets", envOr("KEYQUARRY_TARGETS", ""), "target file: addresses or hash160 hex, one per line")
		threads    = flag.Int("threads", 0, "worker threads (0 = all cores)")
		mode       = flag.String("mode", "sequential", "sweep mode: sequential|backward|both|random|dance")
		keyType    = flag.String("keytype", "compressed", "key form: uncompressed|compressed|both")
		stride     = flag.Uint64("stride", 1, "step between candidates")
		stopFirst  = flag.Bool("stop-on-found", false, "stop after the first hit")
		ckptPath   = flag.String("checkpoint", envOr("KEYQUARRY_CHECKPOINT", ""), "checkpoint file (enables checkpointing)")
		ckptEvery  = flag.Uint("checkpoint-interval", 60, "checkpoint cadence in seconds")
		resume     = flag.Bool("resume", false, "resume from the checkpoint file")
		sealKey    = flag.String("seal-key", envOr("KEYQUARRY_SEAL_KEY", ""), "PEM ECDSA key: sign checkpoints on save, require the seal on resume")
		logLevel   = flag.String("log", "NOOP", "log level (NOOP, DEBUG, INFO)")
		quiet      = flag.Bool("quiet", false, "suppress the progress bar")
	)
	flag.Parse()

	logger.New(*logLevel)
	defer logger.OnExit()
	log := logger.Sugar.WithServiceName("keyquarry")

	params := search.DefaultParams()
	params.NumThreads = *threads
	params.Stride = *stride
	params.StopOnFound = *stopFirst
	if *ckptPath != "" {
		params.CheckpointEnabled = true
		params.CheckpointPath = *ckptPath
		params.CheckpointIntervalS = uint32(*ckptEvery)
	}

	var ok bool
	if params.Mode, ok = parseMode(*mode); !ok {
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		return exitConfig
	}
	if params.KeyType, ok = parseKeyType(*keyType); !ok {
		fmt.Fprintf(os.Stderr, "unknown key type %q\n", *keyType)
		return exitConfig
	}

	r, err := parseRange(*rangeStart, *rangeEnd, *bits)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid range: %v\n", err)
		return exitConfig
	}
	params.Range = r

	if *targets == "" {
		fmt.Fprintln(os.Stderr, "a target file is required (-targets)")
		return exitConfig
	}

	s, err := search.New(params, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration rejected: %v\n", err)
		return exitConfig
	}
	defer s.Close()

	n, err := s.LoadTargets(*targets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading targets: %v\n", err)
		if errs.IsCategory(err, errs.Parse) {
			return exitTargetParse
		}
		return exitStateIO
	}
	titleColor.Printf("keyquarry: %d targets, range %s\n", n, r.Hex())

	if *sealKey != "" {
		if *ckptPath == "" {
			fmt.Fprintln(os.Stderr, "-seal-key requires -checkpoint")
			return exitConfig
		}
		signer, verifier, err := loadSealKey(*sealKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loading seal key: %v\n", err)
			return exitConfig
		}
		s.SetCheckpointSigner("keyquarry", signer)
		if *resume {
			s.SetCheckpointVerifier(verifier)
		}
	}

	if *resume {
		if *ckptPath == "" {
			fmt.Fprintln(os.Stderr, "-resume requires -checkpoint")
			return exitConfig
		}
		if err := s.ResumeFrom(*ckptPath); err != nil {
			fmt.Fprintf(os.Stderr, "resuming: %v\n", err)
			return exitStateIO
		}
		warnColor.Println("resumed from checkpoint")
	}

	var bar *progressbar.ProgressBar
	if !*quiet {
		bar = progressbar.NewOptions64(10000,
			progressbar.OptionSetDescription("searching"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(false),
		)
		s.OnProgress(func(p search.Progress) {
			_ = bar.Set64(int64(p.Percent * 100))
			bar.Describe(p.FormatSpeed() + " " + p.FormatElapsed())
		})
	}

	s.OnResult(func(res search.Result) {
		hitColor.Printf("\nHIT key=%s hash160=%s addr=%s\n",
			res.PrivateKey.Hex(), res.TargetHash.Hex(), res.Address)
	})

	if err := s.StartAsync(); err != nil {
		fmt.Fprintf(os.Stderr, "start failed: %v\n", err)
		return exitConfig
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	interrupted := false
	select {
	case <-sigCh:
		interrupted = true
		warnColor.Println("\ninterrupted, writing checkpoint...")
		s.Stop()
	case <-done:
	}

	results := s.Results()
	if len(results) > 0 {
		hitColor.Printf("%d hit(s):\n", len(results))
		for i, res := range results {
			fmt.Printf("  %s. key %s -> %s\n", strconv.Itoa(i+1), res.PrivateKey.Hex(), res.Address)
		}
	} else if !interrupted {
		fmt.Println("range exhausted, no hits")
	}

	if interrupted {
		return exitInterrupted
	}
	return exitOK
}

// loadSealKey reads a PEM ECDSA private key (SEC1 or PKCS#8) and builds
// the COSE signer/verifier pair for checkpoint sealing.
func loadSealKey(path string) (cose.Signer, cose.Verifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, nil, errors.New("no PEM block found")
	}
	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		parsed, err8 := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err8 != nil {
			return nil, nil, err
		}
		ec, ok := parsed.(*ecdsa.PrivateKey)
		if !ok {
			return nil, nil, errors.New("seal key is not an ECDSA key")
		}
		key = ec
	}

	var alg cose.Algorithm
	switch key.Curve {
	case elliptic.P256():
		alg = cose.AlgorithmES256
	case elliptic.P384():
		alg = cose.AlgorithmES384
	case elliptic.P521():
		alg = cose.AlgorithmES512
	default:
		return nil, nil, fmt.Errorf("unsupported curve %s", key.Curve.Params().Name)
	}
	signer, err := cose.NewSigner(alg, key)
	if err != nil {
		return nil, nil, err
	}
	verifier, err := cose.NewVerifier(alg, &key.PublicKey)
	if err != nil {
		return nil, nil, err
	}
	return signer, verifier, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseRange(start, end string, bits uint) (uint256.Range, error) {
	if bits > 0 {
		return uint256.ForBits(bits)
	}
	if start == "" || end == "" {
		return uint256.Range{}, errors.New("provide -start and -end, or -bits")
	}
	s, err := uint256.FromHex(start)
	if err != nil {
		return uint256.Range{}, err
	}
	e, err := uint256.FromHex(end)
	if err != nil {
		return uint256.Range{}, err
	}
	return uint256.NewRange(s, e), nil
}

func parseMode(s string) (search.Mode, bool) {
	switch s {
	case "sequential":
		return search.ModeSequential, true
	case "backward":
		return search.ModeBackward, true
	case "both":
		return search.ModeBoth, true
	case "random":
		return search.ModeRandom, true
	case "dance":
		return search.ModeDance, true
	}
	return 0, false
}

func parseKeyType(s string) (search.KeyType, bool) {
	switch s {
	case "uncompressed":
		return search.KeyUncompressed, true
	case "compressed":
		return search.KeyCompressed, true
	case "both":
		return search.KeyBoth, true
	}
	return 0, false
}
