// vmaptool is a CLI utility for inspecting collision model files and serving
// collision queries over HTTP.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// errUsage marks bad command-line arguments.
var errUsage = errors.New("usage")

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	if err := run(os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			printUsage(os.Stderr)
		}
		os.Exit(1)
	}
}

func run(command string, args []string, out io.Writer) error {
	switch command {
	case "info":
		return cmdInfo(args, out)
	case "ray":
		return cmdRay(args, out)
	case "height":
		return cmdHeight(args, out)
	case "liquid":
		return cmdLiquid(args, out)
	case "manifest":
		return cmdManifest(args, out)
	case "spawns":
		return cmdSpawns(args, out)
	case "serve":
		return cmdServe(args)
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `vmaptool - collision model utility

Usage:
  vmaptool <command> [options]

Commands:
  info <file.vmo>                           Show model groups, liquids and trees
  ray <file.vmo> ox oy oz dx dy dz [max]    Cast a ray in model space
  height <file.vmo> x y z                   Find the ground below a point
  liquid <file.vmo> x y z                   Find the liquid surface at a point
  manifest [-n N] <file>                    List game object model records
  spawns [-n N] <file>                      List static spawn records
  serve [-config path] [-vmaps dir]         Serve collision queries over HTTP

Examples:
  vmaptool info vmaps/stormwind.wmo.vmo
  vmaptool ray vmaps/tree.m2.vmo 0 0 50 0 0 -1
  vmaptool manifest -n 20 vmaps/temp_gameobject_models
  vmaptool serve -config config.yaml`)
}
