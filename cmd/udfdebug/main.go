// Command udfdebug dumps the volume/partition/ICB structure of a UDF
// image, adapted from the teacher's cmd/debugudf: same "mount, print
// raw structural fields, walk a couple of well-known directories" flow,
// generalized to this package's Volume/Entry model and an arbitrary
// starting directory instead of Blu-ray's fixed BDMV layout.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/s0up4200/go-udf/pkg/udf"
)

func main() {
	image := flag.String("image", "", "path to UDF image")
	dir := flag.String("dir", "/", "directory to dump")
	flag.Parse()

	if *image == "" {
		log.Fatal("-image required")
	}

	var diag udf.Diagnostics
	vol, err := udf.Open(*image, udf.WithDiagnostics(&diag))
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	defer vol.Close()

	fmt.Printf("label=%q uuid=%q lbshift=%d\n", vol.Label(), vol.UUIDString(), vol.LBShift)
	fmt.Printf("partitions=%d partitionMaps=%d\n", len(vol.Partitions), len(vol.PartitionMaps))
	for i, p := range vol.Partitions {
		fmt.Printf("  partition[%d]: number=%d start=%d length=%d\n", i, p.Number, p.Start, p.Length)
	}
	for i, pm := range vol.PartitionMaps {
		fmt.Printf("  partitionMap[%d]: type=%d pdIndex=%d\n", i, pm.Type, pm.PDIndex)
	}
	fmt.Printf("rootICB: position=%d partitionRef=%d\n", vol.RootICB.Position, vol.RootICB.PartitionRef)

	count := 0
	err = vol.Dir(*dir, func(name string, e *udf.Entry) (bool, error) {
		fmt.Printf("  %s %10d  %s\n", e.Kind(), e.Size(), name)
		count++
		return false, nil
	})
	if err != nil {
		log.Fatalf("dir %q: %v", *dir, err)
	}
	fmt.Printf("%d entries in %s\n", count, *dir)
	fmt.Printf("diagnostics: icbSector=%d fileSizeOffset=%d partitionStart=%d\n", diag.ICBSector, diag.FileSizeOffset, diag.PartitionStart)
}
