package core_test

import (
	"fmt"

	"github.com/cwbudde/algo-fuzzbox/dsp/core"
)

func ExampleNewStreamConfig() {
	cfg, err := core.NewStreamConfig(
		core.WithSampleRate(44100),
		core.WithBlockSize(128),
	)
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Printf("sampleRate=%.0f blockSize=%d\n", cfg.SampleRate, cfg.BlockSize)

	// Output:
	// sampleRate=44100 blockSize=128
}

func ExampleWiden() {
	host := []float32{0.5, -0.25, 1}
	work := make([]float64, 4)

	n := core.Widen(work, host)
	for i := range work[:n] {
		work[i] *= 2
	}
	core.Narrow(host, work[:n])

	fmt.Println(n, host)

	// Output:
	// 3 [1 -0.5 2]
}
