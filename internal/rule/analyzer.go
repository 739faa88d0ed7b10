package rule

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"proplint/internal/script"
	"proplint/internal/sfc"
	"proplint/internal/style"
	"proplint/internal/template"
	"proplint/internal/util"
)

// Diagnostic is one reported undefined property, positioned 1-based in
// the analyzed file.
type Diagnostic struct {
	Property string
	Message  string
	Line     int
	Column   int
	Span     script.Span
}

// FileReport is the analysis outcome for one file. Partial marks
// degraded analysis: some block or expression failed to parse and its
// references were skipped rather than guessed at.
type FileReport struct {
	File        string
	Diagnostics []Diagnostic
	Partial     bool
}

// Options configure an Analyzer.
type Options struct {
	// Ignores replaces the default ignore list. Entries are names or
	// /regex/ patterns matched against names and dotted paths.
	Ignores []string
	// PropsOnlySetup restricts the setup props argument to declared
	// props. On by default; switching it off downgrades the argument
	// to an ordinary member lookup.
	PropsOnlySetup bool
}

// Analyzer runs the undefined-property analysis file by file. Each
// file gets fresh extraction and resolution caches; an Analyzer can be
// shared across goroutines as long as each AnalyzeFile call owns its
// inputs.
type Analyzer struct {
	ignore         *IgnorePolicy
	propsOnlySetup bool
}

func NewAnalyzer(opts Options) (*Analyzer, error) {
	ignore, err := NewIgnorePolicy(opts.Ignores)
	if err != nil {
		return nil, err
	}
	return &Analyzer{ignore: ignore, propsOnlySetup: opts.PropsOnlySetup}, nil
}

// AnalyzeFile analyzes one component or script file.
func (an *Analyzer) AnalyzeFile(path string, content []byte) (*FileReport, error) {
	if strings.EqualFold(filepath.Ext(path), ".vue") {
		return an.analyzeComponentFile(path, content)
	}
	return an.analyzeScriptFile(path, content)
}

func (an *Analyzer) analyzeComponentFile(path string, content []byte) (*FileReport, error) {
	file, err := sfc.Parse(path, content)
	if err != nil {
		return nil, err
	}

	rep := &FileReport{File: path}
	resolver := NewCallResolver()
	verifier := NewVerifier(resolver, an.ignore)
	lang := componentLanguage(file)

	var templateModels []*Model

	if block := file.ScriptSetup; hasCode(block) {
		res, ok := an.parseBlock(rep, block, lang)
		if ok {
			setupModel, props := BuildSetupModel(res)
			templateModels = append(templateModels, setupModel)
			if props != nil {
				ex := NewExtractor(res)
				verifier.Verify(setupModel, ex.FromExpression(props.Call), "", an.propsOnlySetup)
			}
		}
	}

	if block := file.Script; hasCode(block) {
		res, ok := an.parseBlock(rep, block, lang)
		if ok {
			if defaultModel := an.analyzeProgram(verifier, res); defaultModel != nil {
				templateModels = append(templateModels, defaultModel)
			}
		}
	}

	// Templates and style bindings resolve against the component the
	// file defines. Without one there is nothing to verify against.
	if len(templateModels) > 0 {
		union := unionContainer{models: templateModels}
		if file.Template != nil {
			an.analyzeTemplate(rep, verifier, union, file.Template, lang)
		}
		for _, styleBlock := range file.Styles {
			bindings, err := style.Extract(styleBlock)
			if err != nil {
				rep.Partial = true
				continue
			}
			for _, b := range bindings {
				verifier.VerifyPath(union, b.Path, b.Span)
			}
		}
	}

	an.finish(rep, content, verifier.Findings())
	return rep, nil
}

func (an *Analyzer) analyzeScriptFile(path string, content []byte) (*FileReport, error) {
	res, err := script.ParseProgram(content, 0, languageForFile(path))
	if err != nil {
		return nil, err
	}
	rep := &FileReport{File: path, Partial: res.Partial}
	verifier := NewVerifier(NewCallResolver(), an.ignore)
	an.analyzeProgram(verifier, res)
	an.finish(rep, content, verifier.Findings())
	return rep, nil
}

// analyzeProgram verifies every component defined in a script program
// and returns the default export's model for template verification.
func (an *Analyzer) analyzeProgram(v *Verifier, res *script.Result) *Model {
	a := res.AST
	components := FindComponents(a)
	if len(components) == 0 {
		return nil
	}

	ex := NewExtractor(res)
	objects := make(map[script.NodeID]bool, len(components))
	models := make(map[script.NodeID]*Model, len(components))
	var defaultModel *Model

	for _, c := range components {
		objects[c.Object] = true
		model, watches := BuildOptionsModel(a, c.Object)
		models[c.Object] = model
		if c.IsDefault {
			defaultModel = model
		}
		v.VerifyWatch(model, watches)
		an.verifyInstanceParams(v, ex, a, c.Object, model)
	}

	a.Walk(a.Root, func(id script.NodeID) bool {
		if a.Kind(id) != script.KindThis {
			return true
		}
		if obj := OwningComponent(a, id, objects); obj != script.InvalidNode {
			v.Verify(models[obj], ex.FromExpression(id), "", false)
		}
		return true
	})
	return defaultModel
}

// verifyInstanceParams checks functions that receive the component
// instance or its props as their first parameter.
func (an *Analyzer) verifyInstanceParams(v *Verifier, ex *Extractor, a *script.AST, object script.NodeID, model *Model) {
	for _, prop := range a.Children(object) {
		if a.Kind(prop) != script.KindProperty {
			continue
		}
		value := a.PropertyValue(prop)
		switch a.Name(prop) {
		case "setup":
			an.verifyFirstParam(v, ex, a, value, model, an.propsOnlySetup)
		case "render":
			an.verifyFirstParam(v, ex, a, value, model, true)
		case "data":
			an.verifyFirstParam(v, ex, a, value, model, false)
		case "computed":
			if a.Kind(value) != script.KindObject {
				continue
			}
			for _, entry := range a.Children(value) {
				if a.Kind(entry) == script.KindProperty {
					an.verifyFirstParam(v, ex, a, a.PropertyValue(entry), model, false)
				}
			}
		}
	}
}

func (an *Analyzer) verifyFirstParam(v *Verifier, ex *Extractor, a *script.AST, fn script.NodeID, model *Model, propsOnly bool) {
	if !a.IsFunction(fn) {
		return
	}
	params := a.Children(a.FuncParams(fn))
	if len(params) == 0 {
		return
	}
	v.Verify(model, ex.FromParam(params[0]), "", propsOnly)
}

func (an *Analyzer) analyzeTemplate(rep *FileReport, v *Verifier, union unionContainer, block *sfc.Block, lang script.Language) {
	tmpl, err := template.Extract(block, lang)
	if err != nil {
		rep.Partial = true
		return
	}
	if tmpl.Partial {
		rep.Partial = true
	}
	for _, expr := range tmpl.Exprs {
		ex := NewTemplateExtractor(expr.Res)
		for _, id := range expr.Free {
			v.Verify(union, ex.TopLevelRef(id), "", false)
		}
	}
}

func (an *Analyzer) parseBlock(rep *FileReport, block *sfc.Block, lang script.Language) (*script.Result, bool) {
	res, err := script.ParseProgram(block.Content, block.Start, lang)
	if err != nil {
		rep.Partial = true
		return nil, false
	}
	if res.Partial {
		rep.Partial = true
	}
	return res, true
}

// finish deduplicates, orders, and positions the findings.
func (an *Analyzer) finish(rep *FileReport, content []byte, findings []Finding) {
	seen := make(map[Finding]bool, len(findings))
	uniq := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if seen[f] {
			continue
		}
		seen[f] = true
		uniq = append(uniq, f)
	}
	sort.Slice(uniq, func(i, j int) bool {
		if uniq[i].Span.Start != uniq[j].Span.Start {
			return uniq[i].Span.Start < uniq[j].Span.Start
		}
		if uniq[i].Span.End != uniq[j].Span.End {
			return uniq[i].Span.End < uniq[j].Span.End
		}
		return uniq[i].Path < uniq[j].Path
	})
	for _, f := range uniq {
		line, col := util.LineColumn(content, f.Span.Start)
		rep.Diagnostics = append(rep.Diagnostics, Diagnostic{
			Property: f.Path,
			Message:  fmt.Sprintf("'%s' is not defined.", f.Path),
			Line:     line,
			Column:   col,
			Span:     f.Span,
		})
	}
}

func hasCode(block *sfc.Block) bool {
	return block != nil && strings.TrimSpace(string(block.Content)) != ""
}

// componentLanguage picks the expression language for the whole file
// from its script blocks; the setup block wins when both declare one.
func componentLanguage(file *sfc.File) script.Language {
	if l := file.ScriptSetup.Lang(); l != "" {
		return script.LanguageForAttr(l)
	}
	return script.LanguageForAttr(file.Script.Lang())
}

func languageForFile(path string) script.Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".mts", ".cts":
		return script.LangTS
	case ".tsx":
		return script.LangTSX
	default:
		return script.LangJS
	}
}
