// Command validate runs structural integrity checks over an ADCIRC netCDF
// output before committing it to a long batch run: required variables,
// mesh connectivity, time axis ordering, and a fill-value census.
//
// Usage:
//
//	go run ./cmd/validate -input fort.63.nc
//
// Exits 1 when any phase fails.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/couchcryptid/adcirc-etl/internal/adcirc"
)

// fieldVars are the (time, node) fields an ADCIRC output may carry; at
// least one must be present.
var fieldVars = []string{"zeta", "windx", "windy"}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	input := flag.String("input", "", "ADCIRC netCDF output to validate")
	flag.Parse()

	if *input == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*input); code != 0 {
		os.Exit(code)
	}
}

func run(path string) int {
	fmt.Println("=== ADCIRC Dataset Validation ===")
	fmt.Println()
	fmt.Printf("Dataset: %s\n", path)

	phases := []*phase{
		validateStructure(path),
		validateMesh(path),
		validateTimeAxis(path),
		validateFields(path),
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Structure ──
// Required variables exist and coordinate lengths agree.

func validateStructure(path string) *phase {
	p := &phase{name: "Phase 1: Structure (variables)"}

	g, err := netcdf.Open(path)
	if err != nil {
		p.errorf("open: %v", err)
		return p
	}
	defer g.Close()

	have := map[string]bool{}
	for _, name := range g.ListVariables() {
		have[name] = true
	}

	for _, name := range []string{"x", "y", "element", "time"} {
		if !have[name] {
			p.errorf("missing required variable %q", name)
		}
	}

	present := 0
	for _, name := range fieldVars {
		if have[name] {
			present++
		}
	}
	if present == 0 {
		p.errorf("no field variable present (want one of zeta, windx, windy)")
	}

	if have["x"] && have["y"] {
		nx := varLen(p, g, "x")
		ny := varLen(p, g, "y")
		if nx >= 0 && ny >= 0 && nx != ny {
			p.errorf("x has %d nodes, y has %d", nx, ny)
		}
		if have["depth"] {
			if nd := varLen(p, g, "depth"); nd >= 0 && nx >= 0 && nd != nx {
				p.errorf("depth has %d values for %d nodes", nd, nx)
			}
		}
	}
	return p
}

func varLen(p *phase, g api.Group, name string) int64 {
	vg, err := g.GetVarGetter(name)
	if err != nil {
		p.errorf("%s: %v", name, err)
		return -1
	}
	return vg.Len()
}

// ── Phase 2: Mesh ──
// Coordinates and connectivity load; element node indices in range.

func validateMesh(path string) *phase {
	p := &phase{name: "Phase 2: Mesh (connectivity)"}

	ds, err := adcirc.Open(path, adcirc.OpenOptions{MeshOnly: true})
	if err != nil {
		p.errorf("open: %v", err)
		return p
	}
	defer ds.Close()

	m, err := ds.Mesh()
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	fmt.Printf("  mesh: %d nodes, %d elements\n", m.NumNodes(), m.NumElements())
	return p
}

// ── Phase 3: Time axis ──
// Cold start resolves and timestamps increase strictly.

func validateTimeAxis(path string) *phase {
	p := &phase{name: "Phase 3: Time axis (cold start, order)"}

	ds, err := adcirc.Open(path, adcirc.OpenOptions{})
	if err != nil {
		p.errorf("open: %v", err)
		return p
	}
	defer ds.Close()

	if ds.ColdStart().IsZero() {
		p.errorf("cold start resolved to the zero time")
	}

	times := ds.Times()
	if len(times) == 0 {
		p.errorf("no timesteps")
		return p
	}
	for i := 1; i < len(times); i++ {
		if !times[i].After(times[i-1]) {
			p.errorf("time[%d] (%s) not after time[%d] (%s)",
				i, times[i].Format(time.RFC3339), i-1, times[i-1].Format(time.RFC3339))
		}
	}
	fmt.Printf("  time axis: %d steps, %s to %s\n", len(times),
		times[0].Format(time.RFC3339), times[len(times)-1].Format(time.RFC3339))
	return p
}

// ── Phase 4: Fields ──
// Sampled timesteps read back and are not entirely fill.

func validateFields(path string) *phase {
	p := &phase{name: "Phase 4: Fields (fill census)"}

	ds, err := adcirc.Open(path, adcirc.OpenOptions{})
	if err != nil {
		p.errorf("open: %v", err)
		return p
	}
	defer ds.Close()

	steps := sampleSteps(ds.NumSteps())
	if len(steps) == 0 {
		p.errorf("no timesteps to sample")
		return p
	}

	for _, name := range fieldVars {
		if ds.HasVariable(name) {
			checkField(p, ds, name, steps)
		}
	}
	return p
}

func checkField(p *phase, ds *adcirc.Dataset, name string, steps []int) {
	fill := ds.Fill(name)
	var filled, total int
	for _, step := range steps {
		vals, err := ds.FieldSlice(name, step)
		if err != nil {
			p.errorf("%s step %d: %v", name, step, err)
			continue
		}
		allFill := len(vals) > 0
		for _, v := range vals {
			total++
			if v == fill {
				filled++
			} else {
				allFill = false
			}
		}
		if allFill {
			p.errorf("%s step %d: every node is fill", name, step)
		}
	}
	if total > 0 {
		fmt.Printf("  %s: %.1f%% fill across %d sampled steps\n",
			name, 100*float64(filled)/float64(total), len(steps))
	}
}

// sampleSteps picks first, middle, and last steps without duplicates.
func sampleSteps(n int) []int {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []int{0}
	case n == 2:
		return []int{0, 1}
	}
	return []int{0, n / 2, n - 1}
}
