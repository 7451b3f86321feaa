// SPDX-License-Identifier: MPL-2.0

package nca

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/nspatcher/nspatcher/internal/testutil"
	"github.com/nspatcher/nspatcher/internal/tool"
	"github.com/nspatcher/nspatcher/internal/tool/tooltest"
	"github.com/nspatcher/nspatcher/pkg/types"

	"github.com/charmbracelet/log"
)

type fakeUnit struct {
	id       string
	category string
	exitCode int
}

// reportHandler answers info requests from units keyed by file base name.
// Unknown files exit non-zero with no report.
func reportHandler(kind tool.Kind, units map[string]fakeUnit) tooltest.HandlerFunc {
	return func(_ context.Context, call tooltest.Call) (tool.Result, error) {
		u, ok := units[filepath.Base(tooltest.Last(call.Args))]
		if !ok {
			return tool.Result{ExitCode: 1, Stderr: "[WARN] failed to match key\nunable to read header\n"}, nil
		}
		return tool.Result{
			Stdout:   tooltest.Report(kind, u.id, u.category),
			Stderr:   "[WARN] failed to match key\n",
			ExitCode: u.exitCode,
		}, nil
	}
}

func newTestInspector() *Inspector {
	return New(WithLogger(log.New(io.Discard)))
}

func TestParseCategory(t *testing.T) {
	t.Parallel()

	for _, c := range Categories() {
		got, err := ParseCategory(c.String())
		if err != nil {
			t.Errorf("ParseCategory(%q) error: %v", c, err)
			continue
		}
		if got != c {
			t.Errorf("ParseCategory(%q) = %v", c, got)
		}
	}

	for _, bad := range []string{"", "program", "PROGRAM", "Patch", "Public Data"} {
		_, err := ParseCategory(bad)
		if !errors.Is(err, ErrClassification) {
			t.Errorf("ParseCategory(%q) error = %v, want ErrClassification", bad, err)
		}
	}
}

func TestCategory_StringUnique(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for _, c := range Categories() {
		if seen[c.String()] {
			t.Errorf("duplicate tag %q", c)
		}
		seen[c.String()] = true
	}
	if len(seen) != 6 {
		t.Errorf("got %d categories, want 6", len(seen))
	}
	if got := Category(0).String(); got != "Category(0)" {
		t.Errorf("Category(0).String() = %q", got)
	}
}

func TestInspect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind tool.Kind
		unit fakeUnit
		want types.TitleID
	}{
		{tool.KindHactool, fakeUnit{id: "0100ABCD00010000", category: "Program"}, "0100ABCD00010000"},
		{tool.KindHac2l, fakeUnit{id: "0x0100abcd00010800", category: "Control"}, "0x0100abcd00010800"},
		{tool.KindHactoolnet, fakeUnit{id: "0100abcd00010800", category: "Meta"}, "0100abcd00010800"},
		{tool.KindHactool, fakeUnit{category: "Data"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String()+"/"+tt.unit.category, func(t *testing.T) {
			t.Parallel()

			r := tooltest.NewRunner()
			r.On(tt.kind.String(), reportHandler(tt.kind, map[string]fakeUnit{"a.nca": tt.unit}))

			path := filepath.Join(t.TempDir(), "a.nca")
			got, err := newTestInspector().Inspect(context.Background(), r.Handle(tt.kind), path)
			if err != nil {
				t.Fatalf("Inspect() error: %v", err)
			}
			if got.ID != tt.want {
				t.Errorf("ID = %q, want %q", got.ID, tt.want)
			}
			if got.Category.String() != tt.unit.category {
				t.Errorf("Category = %v, want %s", got.Category, tt.unit.category)
			}
			if got.Path != path {
				t.Errorf("Path = %q", got.Path)
			}
		})
	}
}

func TestInspect_WrongExtension(t *testing.T) {
	t.Parallel()

	r := tooltest.NewRunner()
	for _, path := range []string{"a.nsp", "a.nca.bak", "nca", "a.tik"} {
		_, err := newTestInspector().Inspect(context.Background(), r.Handle(tool.KindHactool), path)
		if !errors.Is(err, ErrNotContentUnit) {
			t.Errorf("Inspect(%q) error = %v, want ErrNotContentUnit", path, err)
		}
	}
	if len(r.Calls()) != 0 {
		t.Errorf("no tool may run for a rejected extension, got %d calls", len(r.Calls()))
	}
}

func TestInspect_NonZeroExitWithReport(t *testing.T) {
	t.Parallel()

	r := tooltest.NewRunner()
	r.On("hactool", reportHandler(tool.KindHactool, map[string]fakeUnit{
		"a.nca": {id: "0100ABCD00010000", category: "Program", exitCode: 1},
	}))

	got, err := newTestInspector().Inspect(context.Background(), r.Handle(tool.KindHactool), "a.nca")
	if err != nil {
		t.Fatalf("Inspect() error: %v", err)
	}
	if got.Category != CategoryProgram {
		t.Errorf("Category = %v", got.Category)
	}
}

func TestInspect_NonZeroExitNoReport(t *testing.T) {
	t.Parallel()

	r := tooltest.NewRunner()
	r.On("hactool", reportHandler(tool.KindHactool, nil))

	_, err := newTestInspector().Inspect(context.Background(), r.Handle(tool.KindHactool), "a.nca")
	if !errors.Is(err, ErrClassification) {
		t.Fatalf("Inspect() error = %v, want ErrClassification", err)
	}
	if !errors.Is(err, tool.ErrExec) {
		t.Errorf("error should wrap the tool failure: %v", err)
	}
	if !strings.Contains(err.Error(), "hactool info exited with code 1") {
		t.Errorf("error should name the tool: %v", err)
	}
}

func TestInspect_UnknownCategory(t *testing.T) {
	t.Parallel()

	r := tooltest.NewRunner()
	r.On("hac2l", reportHandler(tool.KindHac2l, map[string]fakeUnit{
		"a.nca": {id: "0100ABCD00010000", category: "DeltaFragment"},
	}))

	_, err := newTestInspector().Inspect(context.Background(), r.Handle(tool.KindHac2l), "a.nca")
	var cerr *ClassificationError
	if !errors.As(err, &cerr) {
		t.Fatalf("Inspect() error = %v, want *ClassificationError", err)
	}
	if cerr.Value != "DeltaFragment" || cerr.Path != "a.nca" {
		t.Errorf("ClassificationError = %+v", cerr)
	}
}

func TestInspect_StartFailure(t *testing.T) {
	t.Parallel()

	startErr := errors.New("permission denied")
	r := tooltest.NewRunner()
	r.On("hactool", func(context.Context, tooltest.Call) (tool.Result, error) {
		return tool.Result{}, startErr
	})

	_, err := newTestInspector().Inspect(context.Background(), r.Handle(tool.KindHactool), "a.nca")
	if !errors.Is(err, startErr) {
		t.Fatalf("Inspect() error = %v, want start error", err)
	}
}

func TestFilterStderr(t *testing.T) {
	t.Parallel()

	in := "[WARN] failed to match key for rights id\n\n  header hash mismatch  \n[WARN] failed to match key\n"
	if got := filterStderr(in); got != "header hash mismatch" {
		t.Errorf("filterStderr() = %q", got)
	}
	if got := filterStderr("failed to match key\n"); got != "" {
		t.Errorf("filterStderr(benign) = %q, want empty", got)
	}
}

func TestScan_SizeDescending(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.MustWriteSized(t, filepath.Join(dir, "small.nca"), 10)
	testutil.MustWriteSized(t, filepath.Join(dir, "large.nca"), 1000)
	testutil.MustWriteSized(t, filepath.Join(dir, "sub", "mid.nca"), 100)
	testutil.MustWriteSized(t, filepath.Join(dir, "control.nca"), 500)
	testutil.MustWriteSized(t, filepath.Join(dir, "ticket.tik"), 2000)

	r := tooltest.NewRunner()
	r.On("hactool", reportHandler(tool.KindHactool, map[string]fakeUnit{
		"small.nca":   {id: "01000000000000a1", category: "Program"},
		"large.nca":   {id: "01000000000000a2", category: "Program"},
		"mid.nca":     {id: "01000000000000a3", category: "Program"},
		"control.nca": {id: "01000000000000a4", category: "Control"},
	}))

	groups, err := newTestInspector().Scan(context.Background(), r.Handle(tool.KindHactool), dir, CategoryProgram)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	var got []string
	for _, u := range groups[CategoryProgram] {
		got = append(got, filepath.Base(u.Path))
	}
	if want := []string{"large.nca", "mid.nca", "small.nca"}; !slices.Equal(got, want) {
		t.Errorf("Program units = %v, want %v", got, want)
	}
	if _, ok := groups[CategoryControl]; ok {
		t.Error("unwanted categories must not be grouped")
	}
	first, ok := groups.First(CategoryProgram)
	if !ok || first.ID != "01000000000000a2" {
		t.Errorf("First(Program) = %+v, %v", first, ok)
	}

	for _, c := range r.Calls() {
		if strings.HasSuffix(tooltest.Last(c.Args), ".tik") {
			t.Error("non content unit files must not be inspected")
		}
	}
}

func TestScan_EqualSizesOrderedByPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"c.nca", "a.nca", "b.nca"} {
		testutil.MustWriteSized(t, filepath.Join(dir, name), 64)
	}

	r := tooltest.NewRunner()
	r.On("hactool", reportHandler(tool.KindHactool, map[string]fakeUnit{
		"a.nca": {category: "Data"},
		"b.nca": {category: "Data"},
		"c.nca": {category: "Data"},
	}))

	groups, err := newTestInspector().Scan(context.Background(), r.Handle(tool.KindHactool), dir)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, u := range groups[CategoryData] {
		got = append(got, filepath.Base(u.Path))
	}
	if want := []string{"a.nca", "b.nca", "c.nca"}; !slices.Equal(got, want) {
		t.Errorf("Data units = %v, want %v", got, want)
	}
}

func TestScan_PartialFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.MustWriteSized(t, filepath.Join(dir, "program.nca"), 40)
	testutil.MustWriteSized(t, filepath.Join(dir, "meta.nca"), 30)
	testutil.MustWriteSized(t, filepath.Join(dir, "broken.nca"), 20)
	testutil.MustWriteSized(t, filepath.Join(dir, "weird.nca"), 10)

	r := tooltest.NewRunner()
	r.On("hactool", reportHandler(tool.KindHactool, map[string]fakeUnit{
		"program.nca": {category: "Program"},
		"meta.nca":    {category: "Meta"},
		"weird.nca":   {category: "Unknown"},
	}))

	groups, err := newTestInspector().Scan(context.Background(), r.Handle(tool.KindHactool), dir)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	total := 0
	for _, units := range groups {
		total += len(units)
	}
	if total != 2 {
		t.Errorf("got %d units, want 2", total)
	}
	if len(groups[CategoryProgram]) != 1 || len(groups[CategoryMeta]) != 1 {
		t.Errorf("groups = %v", groups)
	}
}

func TestScan_MissingDir(t *testing.T) {
	t.Parallel()

	r := tooltest.NewRunner()
	_, err := newTestInspector().Scan(context.Background(), r.Handle(tool.KindHactool), filepath.Join(t.TempDir(), "absent"))
	if err == nil {
		t.Fatal("expected an error for a missing directory")
	}
}

func TestScanAll_FallsBack(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.MustWriteSized(t, filepath.Join(dir, "program.nca"), 40)
	testutil.MustWriteSized(t, filepath.Join(dir, "control.nca"), 30)

	r := tooltest.NewRunner()
	r.On("hactoolnet", reportHandler(tool.KindHactoolnet, nil))
	r.On("hactool", reportHandler(tool.KindHactool, map[string]fakeUnit{
		"program.nca": {id: "0100ABCD00010000", category: "Program"},
		"control.nca": {id: "0100ABCD00010800", category: "Control"},
	}))
	readers := []*tool.Handle{r.Handle(tool.KindHactoolnet), r.Handle(tool.KindHactool)}

	groups, err := newTestInspector().ScanAll(context.Background(), readers, dir, CategoryProgram, CategoryControl)
	if err != nil {
		t.Fatalf("ScanAll() error: %v", err)
	}
	if u, _ := groups.First(CategoryProgram); u.ID != "0100ABCD00010000" {
		t.Errorf("Program = %+v", u)
	}
	if u, _ := groups.First(CategoryControl); u.ID != "0100ABCD00010800" {
		t.Errorf("Control = %+v", u)
	}
	if n := len(r.CallsTo("hactoolnet")); n != 2 {
		t.Errorf("hactoolnet calls = %d, want 2", n)
	}
}

func TestScanAll_Incomplete(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.MustWriteSized(t, filepath.Join(dir, "program.nca"), 40)

	r := tooltest.NewRunner()
	r.On("hactoolnet", reportHandler(tool.KindHactoolnet, nil))
	r.On("hac2l", reportHandler(tool.KindHac2l, map[string]fakeUnit{
		"program.nca": {id: "0100ABCD00010000", category: "Program"},
	}))
	readers := []*tool.Handle{r.Handle(tool.KindHactoolnet), r.Handle(tool.KindHac2l)}

	groups, err := newTestInspector().ScanAll(context.Background(), readers, dir, CategoryProgram, CategoryControl)
	if !errors.Is(err, tool.ErrFallback) {
		t.Fatalf("ScanAll() error = %v, want ErrFallback", err)
	}
	if !errors.Is(err, ErrMissingCategory) {
		t.Errorf("error should wrap ErrMissingCategory: %v", err)
	}
	if _, ok := groups.First(CategoryProgram); !ok {
		t.Error("best partial grouping should carry the Program unit")
	}

	msg := err.Error()
	for _, want := range []string{"hactoolnet: no Program or Control unit", "hac2l: no Control unit"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not contain %q", msg, want)
		}
	}
}

func TestGroups_Missing(t *testing.T) {
	t.Parallel()

	g := Groups{CategoryProgram: {{Path: "a.nca", Category: CategoryProgram}}}
	got := g.Missing(CategoryProgram, CategoryControl, CategoryMeta)
	if want := []Category{CategoryControl, CategoryMeta}; !slices.Equal(got, want) {
		t.Errorf("Missing() = %v, want %v", got, want)
	}
}
