package bgzf_test

import (
	"bytes"
	"fmt"
	"io"
	"log"

	bgzf "github.com/SaveTheRbtz/bgzf-go"
)

func Example() {
	var b bytes.Buffer

	w, err := bgzf.NewWriter(&b, bgzf.DefaultLevel)
	if err != nil {
		log.Fatal(err)
	}
	if _, err = w.Write([]byte("Hello World!")); err != nil {
		log.Fatal(err)
	}
	if err = w.Close(); err != nil {
		log.Fatal(err)
	}

	r, err := bgzf.NewReader(&b)
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	decoded, err := io.ReadAll(r)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(decoded))
	// Output: Hello World!
}

func ExampleCompressor() {
	level, err := bgzf.NewLevel(2)
	if err != nil {
		log.Fatal(err)
	}
	c, err := bgzf.NewCompressor(level)
	if err != nil {
		log.Fatal(err)
	}

	input := bytes.Repeat([]byte{'A'}, 100)
	block, err := c.Compress(input, nil)
	if err != nil {
		log.Fatal(err)
	}
	stream := bgzf.AppendEndMarker(block)

	decoded, err := bgzf.NewDecompressor().Decompress(stream, nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(len(block) < len(input), bytes.Equal(input, decoded), len(stream)-len(block))
	// Output: true true 28
}
