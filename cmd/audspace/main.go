// SPDX-License-Identifier: EPL-2.0

// Command audspace places audio files around a listener and plays the
// spatial mix on the default device, or renders it to a WAV file.
//
//	audspace [flags] file[@x,y,z]...
//
// Files without a position are spread on a circle around the listener.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/ik5/audspace"
	"github.com/ik5/audspace/buffer"
	"github.com/ik5/audspace/effects"
	"github.com/ik5/audspace/engine"
	"github.com/ik5/audspace/hrtf"
	"github.com/ik5/audspace/internal/config"
	"github.com/ik5/audspace/internal/logging"
	"github.com/ik5/audspace/output"
	"github.com/ik5/audspace/spatial"
)

var Version = "dev"

type cliFlags struct {
	out      string
	bitDepth int
	duration time.Duration
	loop     bool
	stream   bool
	radius   float64
	reverb   float64
	trim     float64
	version  bool
}

func (f *cliFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.out, "out", "o", "", "Render to this WAV file instead of a device, - for 16-bit WAV on stdout")
	fs.IntVar(&f.bitDepth, "bits", 16, "Bit depth of --out: 16, 24, 32")
	fs.DurationVarP(&f.duration, "duration", "d", 0, "Stop after this long (required with --loop and --out)")
	fs.BoolVarP(&f.loop, "loop", "l", false, "Loop every input")
	fs.BoolVarP(&f.stream, "stream", "s", false, "Stream inputs from disk instead of decoding them up front")
	fs.Float64Var(&f.radius, "radius", 2, "Circle radius in metres for inputs without a position")
	fs.Float64Var(&f.reverb, "reverb", 0, "Reverb wet level on the scene bus, 0 disables it")
	fs.Float64Var(&f.trim, "trim", 0, "Scene bus level in dB, applied after the reverb")
	fs.BoolVarP(&f.version, "version", "v", false, "Print the version and exit")
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "audspace:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var flags cliFlags
	cfg, inputs, err := config.Parse("audspace", args, flags.register)
	if err != nil {
		return err
	}
	if flags.version {
		fmt.Println("audspace", Version)
		return nil
	}
	if len(inputs) == 0 {
		return errors.New("no input files")
	}
	if flags.out != "" && flags.loop && flags.duration <= 0 {
		return errors.New("--loop with --out needs --duration")
	}

	log, err := logging.New(logging.Options{Level: cfg.Log.Level, Console: cfg.Log.Console})
	if err != nil {
		return err
	}
	log = log.With().Str("component", "cli").Logger()

	ecfg, err := cfg.EngineConfig()
	if err != nil {
		return err
	}
	ecfg.Logger = &log
	if ecfg.Metrics, err = engine.NewMetrics(prometheus.DefaultRegisterer); err != nil {
		return err
	}
	if ecfg.Renderer == engine.RendererHRTF || cfg.HRTF.Dir != "" {
		if ecfg.HRTF, err = loadSphere(cfg.HRTF.Dir, ecfg.SampleRate); err != nil {
			return err
		}
	}

	eng, err := engine.New(ecfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.Close(); err != nil {
			log.Error().Err(err).Msg("engine close")
		}
	}()

	sc, err := buildScene(eng, cfg, flags, inputs)
	if err != nil {
		return err
	}
	log.Info().Int("sources", sc.sources).Str("renderer", ecfg.Renderer.String()).Msg("scene ready")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if flags.duration > 0 && flags.out == "" {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flags.duration)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			log.Info().Str("addr", srv.Addr).Msg("metrics listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shut, done := context.WithTimeout(context.Background(), time.Second)
			defer done()
			return srv.Shutdown(shut)
		})
	}

	if !flags.loop && flags.out == "" {
		g.Go(func() error {
			watchScene(gctx, eng.Events(), sc.sources, cancel)
			return nil
		})
	}

	bridge, err := openBridge(cfg, flags, sc, log)
	if err != nil {
		return err
	}
	defer bridge.Close()

	g.Go(func() error {
		defer cancel()
		err := bridge.Start(gctx, eng)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})

	err = g.Wait()
	log.Info().Msg("stopped")
	return err
}

// openBridge picks the offline writer for --out, or a device.
func openBridge(cfg *config.Config, flags cliFlags, sc scene, log zerolog.Logger) (output.Bridge, error) {
	if flags.out == "" {
		return output.Open(cfg.Output.Backend, cfg.DeviceOptions(), log)
	}

	frames := int64(flags.duration.Seconds() * float64(cfg.Engine.SampleRate))
	if frames <= 0 {
		if sc.frames < 0 {
			return nil, errors.New("input length unknown, set --duration")
		}
		frames = sc.frames
	}
	opts := output.OfflineOptions{
		SampleRate:  cfg.Engine.SampleRate,
		Frames:      frames,
		BlockFrames: cfg.Engine.BlockSize,
		BitDepth:    flags.bitDepth,
	}
	if flags.out == "-" {
		return output.NewPipe(os.Stdout, opts, log)
	}

	f, err := os.Create(flags.out)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	off, err := output.NewOffline(f, opts, log)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &fileBridge{Offline: off, f: f}, nil
}

// fileBridge closes the target file with the bridge.
type fileBridge struct {
	*output.Offline
	f *os.File
}

func (b *fileBridge) Close() error {
	return errors.Join(b.Offline.Close(), b.f.Close())
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// loadSphere reads measured HRIRs from dir, or synthesizes a spherical
// head model when dir is empty.
func loadSphere(dir string, rate int) (*hrtf.Sphere, error) {
	if dir == "" {
		return hrtf.Spherical(rate)
	}
	return hrtf.LoadSphere(os.DirFS(dir), ".")
}

// scene summarizes what buildScene added.
type scene struct {
	sources int
	// frames is the longest input at the engine rate plus any reverb
	// tail, or -1 when a stream does not know its length.
	frames int64
}

// buildScene adds one source per input.
func buildScene(eng *engine.Context, cfg *config.Config, flags cliFlags, inputs []string) (scene, error) {
	var sc scene
	places := make([]placement, 0, len(inputs))
	for _, in := range inputs {
		p, err := parseInput(in)
		if err != nil {
			return sc, err
		}
		places = append(places, p)
	}
	spread(places, flags.radius)

	rate := cfg.Engine.SampleRate
	bus := engine.PrimaryBus
	var (
		tail  int64
		chain []effects.Effect
	)
	if flags.reverb > 0 {
		rv, err := effects.NewReverb(rate, effects.WithWet(flags.reverb))
		if err != nil {
			return sc, err
		}
		chain = append(chain, rv)
		tail = int64(rv.DecayTime() * float64(rate))
	}
	if flags.trim != 0 {
		at, err := effects.NewAttenuateDB(flags.trim)
		if err != nil {
			return sc, fmt.Errorf("--trim: %w", err)
		}
		chain = append(chain, at)
	}
	if len(chain) > 0 {
		var err error
		if bus, err = eng.AddBus("scene", chain...); err != nil {
			return sc, err
		}
	}

	for _, p := range places {
		mat, err := openMaterial(p.path, flags.stream, cfg)
		if err != nil {
			return sc, err
		}
		if sc.frames >= 0 {
			if l := materialFrames(mat, rate); l < 0 {
				sc.frames = -1
			} else {
				sc.frames = max(sc.frames, l+tail)
			}
		}
		opts := []engine.SourceOption{
			engine.WithSpatial(engine.SpatialParams{Position: p.pos, Rolloff: spatial.DefaultRolloff()}),
			engine.WithLooping(flags.loop),
			engine.WithBus(bus),
			engine.Autoplay(),
		}
		if !flags.loop {
			opts = append(opts, engine.PlayOnce())
		}
		if _, err := eng.AddSource(mat, opts...); err != nil {
			if s, ok := mat.(*buffer.Stream); ok {
				_ = s.Close()
			}
			return sc, fmt.Errorf("%s: %w", p.path, err)
		}
		sc.sources++
	}
	return sc, nil
}

// materialFrames is the playback length at rate, or -1 when unknown.
func materialFrames(m engine.Material, rate int) int64 {
	var n int64
	switch m := m.(type) {
	case *buffer.Static:
		n = int64(m.Frames())
	case *buffer.Stream:
		n = m.Length()
	default:
		return -1
	}
	if n < 0 {
		return -1
	}
	return n * int64(rate) / int64(m.SampleRate())
}

func openMaterial(path string, stream bool, cfg *config.Config) (engine.Material, error) {
	if stream {
		s, err := audspace.OpenStream(path, cfg.StreamOptions()...)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	clip, err := audspace.Load(path, cfg.Engine.SampleRate)
	if err != nil {
		return nil, err
	}
	return clip, nil
}

// watchScene cancels once every play-once source was removed.
func watchScene(ctx context.Context, events <-chan engine.Event, sources int, cancel context.CancelFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if e.Kind == engine.EventRemoved {
				if sources--; sources == 0 {
					cancel()
					return
				}
			}
		}
	}
}
