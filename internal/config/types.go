package config

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

type StreamKind string

const (
	KindRandom   StreamKind = "random"
	KindCounter  StreamKind = "counter"
	KindSequence StreamKind = "sequence"
	KindZip      StreamKind = "zip"
	KindMerge    StreamKind = "merge"
)

var streamKinds = []StreamKind{KindRandom, KindCounter, KindSequence, KindZip, KindMerge}

func (k *StreamKind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if !slices.Contains(streamKinds, StreamKind(s)) {
		return fmt.Errorf("line %d: unknown stream kind %q", value.Line, s)
	}
	*k = StreamKind(s)
	return nil
}

// Derived reports whether the kind combines other configured streams.
func (k StreamKind) Derived() bool {
	return k == KindZip || k == KindMerge
}
