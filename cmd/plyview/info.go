package main

import (
	"fmt"

	"github.com/philipparndt/plyview/internal/loader"
	"github.com/philipparndt/plyview/pkg/analysis"
	"github.com/philipparndt/plyview/pkg/display"
	"github.com/philipparndt/plyview/pkg/geometry"
	"github.com/spf13/cobra"
)

var (
	infoMode  string
	infoEdges int
	infoNear  []float64
)

var infoCmd = &cobra.Command{
	Use:   "info [file or url]",
	Short: "Display general information about a PLY file",
	Long: `Show vertex, color and face counts, bounds and dimensions of a PLY file.
With --mode, the geometry produced by that display mode is analyzed as well.`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().StringVar(&infoMode, "mode", "", "Also analyze a display mode (points, mesh, surface)")
	infoCmd.Flags().IntVarP(&infoEdges, "edges", "n", 0, "Show the N longest and shortest edges of the mode geometry")
	infoCmd.Flags().Float64SliceVar(&infoNear, "near", nil, "Report the vertex closest to x,y,z")
}

func runInfo(cmd *cobra.Command, args []string) error {
	location := args[0]

	if len(infoNear) != 0 && len(infoNear) != 3 {
		return fmt.Errorf("--near takes three values, got %d", len(infoNear))
	}

	var mode display.Mode
	if infoMode != "" {
		m, ok := display.ParseMode(infoMode)
		if !ok {
			return fmt.Errorf("unknown mode %q", infoMode)
		}
		mode = m
	}

	ps, err := loader.New(loader.Options{}).Load(cmd.Context(), location)
	if err != nil {
		return err
	}
	result := analysis.AnalyzePointSet(ps)

	fmt.Println("PLY File Information")
	fmt.Println("====================")
	fmt.Printf("File: %s\n", location)
	for _, c := range ps.Comments {
		fmt.Printf("Comment: %s\n", c)
	}
	fmt.Println()

	fmt.Println("Content:")
	fmt.Printf("  Vertices: %d\n", result.VertexCount)
	fmt.Printf("  Faces: %d\n", result.FaceCount)
	if result.HasColors {
		fmt.Printf("  Colors: yes (mean %s)\n\n", analysis.FormatColor(result.MeanColor))
	} else {
		fmt.Printf("  Colors: no\n\n")
	}

	if result.BoundingBox.IsEmpty() {
		fmt.Println("Bounding Box: empty")
	} else {
		fmt.Println("Bounding Box:")
		fmt.Printf("  Min: %s\n", analysis.FormatVector(result.BoundingBox.Min))
		fmt.Printf("  Max: %s\n", analysis.FormatVector(result.BoundingBox.Max))
		fmt.Printf("  Center: %s\n\n", analysis.FormatVector(result.BoundingBox.Center()))

		fmt.Println("Dimensions:")
		fmt.Printf("  Width (X): %.6f units\n", result.Dimensions.X)
		fmt.Printf("  Depth (Y): %.6f units\n", result.Dimensions.Y)
		fmt.Printf("  Height (Z): %.6f units\n", result.Dimensions.Z)
		fmt.Printf("  Diagonal: %.6f units\n", result.BoundingBox.Diagonal())
		fmt.Printf("  Volume: %.6f cubic units\n", result.Volume)
	}

	if len(infoNear) == 3 {
		target := geometry.NewVector3(infoNear[0], infoNear[1], infoNear[2])
		if i, d := analysis.FindNearestVertex(ps.Positions, target); i >= 0 {
			fmt.Printf("\nNearest Vertex to %s:\n", analysis.FormatVector(target))
			fmt.Printf("  Index: %d\n", i)
			fmt.Printf("  Position: %s\n", analysis.FormatVector(ps.Positions[i]))
			if ps.HasColors() {
				fmt.Printf("  Color: %s\n", analysis.FormatColor(ps.Colors[i]))
			}
			fmt.Printf("  Distance: %.6f units\n", d)
		}
	}

	if infoMode == "" {
		return nil
	}

	g := display.Build(ps, mode)
	display.Normalize(g, display.Options{Center: false})
	modeStats := analysis.AnalyzeGeometry(g)

	fmt.Printf("\nDisplay Mode: %s\n", mode)
	fmt.Println("====================")
	fmt.Printf("  Vertices: %d\n", modeStats.VertexCount)
	fmt.Printf("  Faces: %d\n", modeStats.FaceCount)
	if g.Degenerate != nil {
		fmt.Printf("  Degenerate: %v\n", g.Degenerate)
	}
	if modeStats.FaceCount == 0 {
		return nil
	}
	fmt.Printf("  Surface Area: %.6f square units\n", modeStats.SurfaceArea)
	fmt.Printf("  Degenerate Faces: %d\n", modeStats.DegenerateFaces)
	fmt.Printf("  Edges: %d\n", modeStats.EdgeCount)
	fmt.Printf("  Edge Length: min %.6f, max %.6f, avg %.6f\n",
		modeStats.MinEdgeLength, modeStats.MaxEdgeLength, modeStats.AvgEdgeLength)

	if infoEdges > 0 {
		printEdges("Longest Edges", analysis.FindLongestEdges(modeStats, infoEdges))
		printEdges("Shortest Edges", analysis.FindShortestEdges(modeStats, infoEdges))
	}
	return nil
}

func printEdges(title string, edges []analysis.EdgeInfo) {
	fmt.Printf("\n%s\n", title)
	fmt.Printf("%-6s %-35s %-35s %-15s\n", "Index", "Start", "End", "Length")
	for i, e := range edges {
		fmt.Printf("%-6d %-35s %-35s %.6f\n", i+1, analysis.FormatVector(e.Start), analysis.FormatVector(e.End), e.Length)
	}
}
