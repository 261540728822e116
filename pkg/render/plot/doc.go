// Package plot draws an adjacency analysis with gonum/plot.
//
// The drawing shows the clipped input geometries colored by role (sources
// blue, targets orange, obstacles grey), the Voronoi region vertices that
// fall near the data as small dots, and one dashed link per adjacent pair
// from the nearest point of the target to the source centroid.
//
//	png, err := plot.Render(analysis, plot.FormatPNG, plot.Options{})
//
// Region vertices far outside the geometries are left out so that hull
// circumcenters do not stretch the axes.
package plot
