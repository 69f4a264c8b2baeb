package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/Faultbox/vmap/pkg/bih"
	"github.com/Faultbox/vmap/pkg/math"
	"github.com/Faultbox/vmap/pkg/vmap"
)

var down = math.Vec3{Z: -1}

func cmdInfo(args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: vmaptool info <file.vmo>", errUsage)
	}

	model, err := vmap.ReadFile(args[0])
	if err != nil {
		return err
	}

	var vertices, triangles int
	for _, g := range model.Groups() {
		vertices += len(g.Vertices())
		triangles += len(g.Triangles())
	}

	fmt.Fprintf(out, "Model:     %s\n", args[0])
	fmt.Fprintf(out, "Root ID:   %d\n", model.RootWMOID())
	fmt.Fprintf(out, "Bound:     %s\n", formatBox(model.Bound()))
	fmt.Fprintf(out, "Groups:    %d\n", len(model.Groups()))
	fmt.Fprintf(out, "Vertices:  %d\n", vertices)
	fmt.Fprintf(out, "Triangles: %d\n", triangles)
	fmt.Fprintf(out, "Group tree: %s\n", formatTree(model.GroupTree()))

	for i, g := range model.Groups() {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Group %d: id %d, flags 0x%x\n", i, g.WMOID(), g.MogpFlags())
		fmt.Fprintf(out, "  bound      %s\n", formatBox(g.Bound()))
		fmt.Fprintf(out, "  mesh       %d vertices, %d triangles\n", len(g.Vertices()), len(g.Triangles()))
		fmt.Fprintf(out, "  mesh tree  %s\n", formatTree(g.MeshTree()))
		if l := g.Liquid(); l != nil {
			if l.IsFlat() {
				fmt.Fprintf(out, "  liquid     type %d, flat at %.3f\n", l.Type(), l.Height(0, 0))
			} else {
				x, y := l.Tiles()
				fmt.Fprintf(out, "  liquid     type %d, %dx%d tiles at %s\n", l.Type(), x, y, formatVec(l.Corner()))
			}
		}
	}
	return nil
}

func cmdRay(args []string, out io.Writer) error {
	if len(args) != 7 && len(args) != 8 {
		return fmt.Errorf("%w: vmaptool ray <file.vmo> ox oy oz dx dy dz [max]", errUsage)
	}
	v, err := parseFloats(args[1:])
	if err != nil {
		return err
	}
	dir := math.Vec3{X: v[3], Y: v[4], Z: v[5]}
	if dir.Length() == 0 {
		return fmt.Errorf("%w: zero ray direction", errUsage)
	}
	maxDist := math.Inf()
	if len(v) == 7 {
		maxDist = v[6]
	}

	model, err := vmap.ReadFile(args[0])
	if err != nil {
		return err
	}

	r := math.NewRay(math.Vec3{X: v[0], Y: v[1], Z: v[2]}, dir.Normalize())
	dist := maxDist
	if !model.IntersectRay(r, &dist, false, vmap.IgnoreNothing) {
		fmt.Fprintln(out, "No hit")
		return nil
	}
	fmt.Fprintf(out, "Hit at distance %.4f, point %s\n", dist, formatVec(r.PointAt(dist)))
	return nil
}

func cmdHeight(args []string, out io.Writer) error {
	model, pos, err := openWithPoint("height", args)
	if err != nil {
		return err
	}

	info, zDist, ok := model.IntersectPoint(pos, down)
	if !ok {
		fmt.Fprintln(out, "No ground")
		return nil
	}
	fmt.Fprintf(out, "Ground:  %.4f\n", pos.Z-zDist)
	fmt.Fprintf(out, "Root ID: %d\n", info.RootID)
	fmt.Fprintf(out, "Group:   %d\n", info.GroupID)
	fmt.Fprintf(out, "Flags:   0x%x\n", info.MogpFlags)
	return nil
}

func cmdLiquid(args []string, out io.Writer) error {
	model, pos, err := openWithPoint("liquid", args)
	if err != nil {
		return err
	}

	group, _, ok := model.GetLocationInfo(pos, down)
	if !ok {
		fmt.Fprintln(out, "No group")
		return nil
	}
	level, ok := group.LiquidLevel(pos)
	if !ok {
		fmt.Fprintf(out, "No liquid in group %d\n", group.WMOID())
		return nil
	}
	fmt.Fprintf(out, "Level: %.4f\n", level)
	fmt.Fprintf(out, "Type:  %d\n", group.LiquidType())
	fmt.Fprintf(out, "Group: %d\n", group.WMOID())
	return nil
}

func cmdManifest(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("manifest", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	limit := fs.Int("n", 0, "Limit output to N records (0 = all)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: vmaptool manifest [-n N] <file>", errUsage)
	}

	infos, err := vmap.ReadManifestFile(fs.Arg(0))
	if err != nil {
		return err
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].DisplayID < infos[j].DisplayID
	})

	wmos := 0
	for i, info := range infos {
		if info.IsWMO {
			wmos++
		}
		if *limit > 0 && i >= *limit {
			continue
		}
		kind := "m2"
		if info.IsWMO {
			kind = "wmo"
		}
		fmt.Fprintf(out, "%8d  %-3s  %-40s %s\n", info.DisplayID, kind, info.Name, formatBox(info.Bound))
	}
	fmt.Fprintf(out, "\n(%d records, %d world map objects)\n", len(infos), wmos)
	return nil
}

func cmdSpawns(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("spawns", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	limit := fs.Int("n", 0, "Limit output to N records (0 = all)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: vmaptool spawns [-n N] <file>", errUsage)
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()
	r := bufio.NewReader(f)

	count := 0
	for {
		if _, err := r.Peek(1); errors.Is(err, io.EOF) {
			break
		}
		s, err := vmap.ReadModelSpawn(r)
		if err != nil {
			return fmt.Errorf("spawn record %d: %w", count, err)
		}
		if *limit == 0 || count < *limit {
			kind := "wmo"
			if s.Flags&vmap.ModM2 != 0 {
				kind = "m2"
			}
			fmt.Fprintf(out, "%8d  %-3s  %-40s pos %s rot %s scale %.3f\n",
				s.ID, kind, s.Name, formatVec(s.Pos), formatVec(s.Rot), s.Scale)
		}
		count++
	}
	fmt.Fprintf(out, "\n(%d spawns)\n", count)
	return nil
}

func openWithPoint(command string, args []string) (*vmap.WorldModel, math.Vec3, error) {
	if len(args) != 4 {
		return nil, math.Vec3{}, fmt.Errorf("%w: vmaptool %s <file.vmo> x y z", errUsage, command)
	}
	v, err := parseFloats(args[1:])
	if err != nil {
		return nil, math.Vec3{}, err
	}
	model, err := vmap.ReadFile(args[0])
	if err != nil {
		return nil, math.Vec3{}, err
	}
	return model, math.Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
}

func parseFloats(args []string) ([]float32, error) {
	v := make([]float32, len(args))
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %q", errUsage, a)
		}
		v[i] = float32(f)
	}
	return v, nil
}

func formatVec(v math.Vec3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}

func formatBox(b math.AABox) string {
	if b.IsZero() {
		return "none"
	}
	return formatVec(b.Lo) + " - " + formatVec(b.Hi)
}

// formatTree describes a tree read from disk, which carries no build stats.
func formatTree(t *bih.Tree) string {
	return fmt.Sprintf("%d nodes, %d objects", t.NodeWords()/3, t.PrimCount())
}
