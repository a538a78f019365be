package project

import (
	"path/filepath"
	"strings"

	"github.com/joss/benchsim/internal/i18n"
	"github.com/joss/benchsim/internal/message"
)

// Tools holds the external tool paths a plan depends on.
type Tools struct {
	Compiler string
	Viewer   string
}

// PlanRequest is the input to BuildPlan.
type PlanRequest struct {
	Folder       string
	Mode         Mode
	Testbench    string // requested testbench, may be empty
	RequireTools bool
	Tools        Tools
	Lang         *i18n.Translator
}

// Plan is a validated compile plan. It is not modified after BuildPlan
// returns it.
type Plan struct {
	Folder       string
	Mode         Mode
	Testbench    string // empty when the project has no testbench
	CompileFiles []string
	Tools        Tools
}

// BuildPlan validates the request and derives the ordered, deduplicated
// list of files to compile. Validation stops at the first failure, which is
// reported as exactly one error message.
func BuildPlan(req PlanRequest) (message.Result, *Plan) {
	tr := req.Lang
	if tr == nil {
		tr = i18n.New(i18n.DefaultLang)
	}
	res := message.OK()

	folder := strings.TrimSpace(req.Folder)
	if folder == "" || !isDir(folder) {
		return res.Fail(message.Error(tr.T(i18n.FolderInvalid))), nil
	}

	tools := Tools{
		Compiler: strings.TrimSpace(req.Tools.Compiler),
		Viewer:   strings.TrimSpace(req.Tools.Viewer),
	}
	if req.RequireTools && (tools.Compiler == "" || !isFile(tools.Compiler)) {
		return res.Fail(message.Error(tr.T(i18n.CompilerInvalid))), nil
	}
	if req.RequireTools && (tools.Viewer == "" || !isFile(tools.Viewer)) {
		return res.Fail(message.Error(tr.T(i18n.ViewerInvalid))), nil
	}

	scope, err := Discover(folder, req.Mode)
	if err != nil {
		return res.Fail(message.Error(tr.T(i18n.FolderInvalid))), nil
	}
	base := scope.Folder
	sources := scope.Sources

	// Opening ice-build itself with several projects inside is ambiguous.
	if len(sources) == 0 && filepath.Base(base) == IceBuildDir && len(subdirs(base)) > 1 {
		return res.Fail(message.Error(tr.T(i18n.MultipleSubprojects))), nil
	}
	if len(sources) == 0 {
		return res.Fail(message.Error(tr.T(i18n.NoSources))), nil
	}

	selected := scope.Preferred
	if req.Testbench != "" {
		if tb, err := canonical(req.Testbench); err == nil && contains(scope.Testbenches, tb) {
			selected = tb
		}
	}

	if scope.Mode == ModeIcestudio {
		scopeDir := icestudioScope(base, selected)
		iceBuild := filepath.Join(base, IceBuildDir)
		if scopeDir == base && len(subdirs(iceBuild)) > 1 {
			return res.Fail(message.Error(tr.T(i18n.MultipleSubprojects))), nil
		}
		var scoped []string
		for _, p := range globIn(scopeDir, "**/"+sourcePattern) {
			if !IsTestbench(p) {
				scoped = append(scoped, p)
			}
		}
		if len(scoped) > 0 {
			sources = sortedUnique(scoped)
		}
	}

	var files []string
	for _, src := range sources {
		if !IsTestbench(src) {
			files = append(files, src)
		}
	}
	if selected != "" {
		files = append(files, selected)
	}
	files = sortedUnique(files)
	if len(files) == 0 {
		return res.Fail(message.Error(tr.T(i18n.NoCompileFiles))), nil
	}

	return res, &Plan{
		Folder:       base,
		Mode:         scope.Mode,
		Testbench:    selected,
		CompileFiles: files,
		Tools:        tools,
	}
}

// icestudioScope guesses the single subproject directory to compile.
// base must be canonical.
func icestudioScope(base, testbench string) string {
	iceBuild := filepath.Join(base, IceBuildDir)
	if !isDir(iceBuild) {
		return base
	}

	if testbench != "" {
		root := iceBuild
		if c, err := canonical(iceBuild); err == nil {
			root = c
		}
		if rel, err := filepath.Rel(root, testbench); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return filepath.Dir(testbench)
		}
	}

	if dirs := subdirs(iceBuild); len(dirs) == 1 {
		if c, err := canonical(dirs[0]); err == nil {
			return c
		}
		return dirs[0]
	}

	if isFile(filepath.Join(iceBuild, MainSource)) {
		return iceBuild
	}

	return base
}
