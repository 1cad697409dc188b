// Command udfcat writes one file from a UDF image to stdout. Mirrors
// the teacher's cmd/debugudf flag.FlagSet idiom, kept as a small
// single-purpose tool rather than folded into the cobra-based
// cmd/udfview.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/s0up4200/go-udf/pkg/udf"
)

func main() {
	image := flag.String("image", "", "path to UDF image")
	path := flag.String("path", "", "path of the file inside the image")
	flag.Parse()

	if *image == "" || *path == "" {
		log.Fatal("-image and -path are required")
	}

	vol, err := udf.Open(*image)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	defer vol.Close()

	f, err := vol.OpenFile(*path)
	if err != nil {
		log.Fatalf("open file %q: %v", *path, err)
	}
	defer f.Close()

	if _, err := io.Copy(os.Stdout, f); err != nil {
		fmt.Fprintf(os.Stderr, "read: %v\n", err)
		os.Exit(1)
	}
}
