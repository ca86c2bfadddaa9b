// SPDX-License-Identifier: EPL-2.0

package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ik5/audspace/engine"
	"github.com/ik5/audspace/formats/wav"
	"github.com/ik5/audspace/internal/config"
	"github.com/ik5/audspace/output"
)

func writeConstant(t *testing.T, frames int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "dc.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	samples := make([]int16, frames)
	for i := range samples {
		samples[i] = 16384
	}
	if err := wav.WriteWAV16(f, 48000, 1, samples); err != nil {
		t.Fatal(err)
	}
	return path
}

func renderScene(t *testing.T, cfg *config.Config, flags cliFlags, input string) []float32 {
	t.Helper()

	ecfg, err := cfg.EngineConfig()
	if err != nil {
		t.Fatal(err)
	}
	eng, err := engine.New(ecfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = eng.Close() })

	sc, err := buildScene(eng, cfg, flags, []string{input + "@1,0,1"})
	if err != nil {
		t.Fatal(err)
	}
	if sc.sources != 1 || sc.frames != 4800 {
		t.Fatalf("scene = %+v", sc)
	}
	return eng.RenderFrames(1024)
}

func TestBuildSceneTrim(t *testing.T) {
	t.Parallel()

	cfg, _, err := config.Parse("audspace", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	in := writeConstant(t, 4800)

	plain := renderScene(t, cfg, cliFlags{radius: 2}, in)
	trimmed := renderScene(t, cfg, cliFlags{radius: 2, trim: -6.0206}, in)

	var peak float32
	for i := range plain {
		peak = max(peak, plain[i])
		if d := math.Abs(float64(trimmed[i] - plain[i]/2)); d > 1e-4 {
			t.Fatalf("sample %d: trimmed %v, plain %v", i, trimmed[i], plain[i])
		}
	}
	if peak == 0 {
		t.Fatal("scene rendered silence")
	}

	if _, err := buildScene(nil, cfg, cliFlags{trim: math.Inf(1)}, []string{in}); err == nil {
		t.Error("infinite trim accepted")
	}
}

func TestOpenBridgeStdout(t *testing.T) {
	t.Parallel()

	cfg, _, err := config.Parse("audspace", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	sc := scene{sources: 1, frames: 480}

	b, err := openBridge(cfg, cliFlags{out: "-", bitDepth: 16}, sc, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := b.(*output.Pipe); !ok {
		t.Fatalf("bridge = %T, want *output.Pipe", b)
	}

	if _, err := openBridge(cfg, cliFlags{out: "-", bitDepth: 24}, sc, zerolog.Nop()); err == nil {
		t.Error("24-bit stdout accepted")
	}
}
