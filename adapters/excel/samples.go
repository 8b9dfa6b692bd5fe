package excel

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"anomalyexplain/domain/dataset"
)

// ReadSamples decodes a JSON array of flat sample objects
func ReadSamples(src io.Reader) ([]dataset.Sample, error) {
	var samples []dataset.Sample
	dec := json.NewDecoder(src)
	if err := dec.Decode(&samples); err != nil {
		return nil, fmt.Errorf("failed to decode samples: %w", err)
	}
	return samples, nil
}

// ReadSamplesFile opens path and decodes its samples
func ReadSamplesFile(path string) ([]dataset.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open samples file: %w", err)
	}
	defer f.Close()
	return ReadSamples(f)
}
