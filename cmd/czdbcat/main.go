// Command czdbcat is a minimal demo of the czdb library: it opens a
// database and prints the record for one or more IP addresses given on the
// command line. It is not part of the core query engine and exists only to
// exercise the public surface end to end.
package main

import (
	"flag"
	"fmt"
	"net/netip"
	"os"

	"github.com/czdb/czdb"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  czdbcat -db <path> -key <base64key> [-backend disk|mmap|memory] <ip> [ip...]")
}

func main() {
	dbPath := flag.String("db", "", "path to the .czdb database file")
	key := flag.String("key", "", "base64-encoded database key")
	backend := flag.String("backend", "mmap", "storage backend: disk, mmap, or memory")
	flag.Usage = usage
	flag.Parse()

	if *dbPath == "" || *key == "" || flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	h, err := openBackend(*backend, *dbPath, *key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "czdbcat: %v\n", err)
		os.Exit(1)
	}
	defer h.Close()

	status := 0
	for _, arg := range flag.Args() {
		ip, err := netip.ParseAddr(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "czdbcat: %s: %v\n", arg, err)
			status = 1
			continue
		}

		record, found, err := h.Search(ip)
		switch {
		case err != nil:
			fmt.Fprintf(os.Stderr, "czdbcat: %s: %v\n", arg, err)
			status = 1
		case !found:
			fmt.Printf("%s\t-\n", arg)
		default:
			fmt.Printf("%s\t%s\n", arg, record)
		}
	}

	os.Exit(status)
}

func openBackend(backend, path, key string) (*czdb.Handle, error) {
	switch backend {
	case "disk":
		return czdb.OpenDisk(path, key)
	case "mmap":
		return czdb.OpenMmap(path, key)
	case "memory":
		return czdb.OpenMemory(path, key)
	default:
		return nil, fmt.Errorf("unknown backend %q (want disk, mmap, or memory)", backend)
	}
}
