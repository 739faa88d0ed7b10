package script

import (
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"proplint/internal/core/errors"
)

// Language selects the grammar used for a script block or an inline
// template expression.
type Language uint8

const (
	LangJS Language = iota
	LangTS
	LangTSX
)

// LanguageForAttr maps a <script lang="..."> attribute to a grammar.
func LanguageForAttr(attr string) Language {
	switch attr {
	case "ts", "typescript":
		return LangTS
	case "tsx":
		return LangTSX
	default:
		return LangJS
	}
}

var (
	jsLanguage  = sitter.NewLanguage(tree_sitter_javascript.Language())
	tsLanguage  = sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	tsxLanguage = sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())
)

// parserPool recycles tree-sitter parser instances so the many small
// expression parses of one template do not each pay the allocation cost
// of sitter.NewParser() / parser.Close(). Safe for concurrent use.
type parserPool struct {
	lang *sitter.Language
	pool sync.Pool
}

func newParserPool(lang *sitter.Language) *parserPool {
	p := &parserPool{lang: lang}
	p.pool = sync.Pool{
		New: func() any {
			sp := sitter.NewParser()
			sp.SetLanguage(lang)
			return sp
		},
	}
	return p
}

func (p *parserPool) get() *sitter.Parser {
	sp := p.pool.Get().(*sitter.Parser)
	// The language must be re-set in case the parser was Reset.
	sp.SetLanguage(p.lang)
	return sp
}

func (p *parserPool) put(sp *sitter.Parser) {
	if sp == nil {
		return
	}
	sp.Reset()
	p.pool.Put(sp)
}

var (
	jsPool  = newParserPool(jsLanguage)
	tsPool  = newParserPool(tsLanguage)
	tsxPool = newParserPool(tsxLanguage)
)

func poolFor(lang Language) *parserPool {
	switch lang {
	case LangTS:
		return tsPool
	case LangTSX:
		return tsxPool
	default:
		return jsPool
	}
}

// Result is one fully lowered parse: the arena AST, its scope
// resolution, and any same-file interface/type-alias shapes collected
// for defineProps<T>() lookups. It holds no tree-sitter state.
type Result struct {
	AST        *AST
	Scopes     *Scopes
	TypeShapes map[string][]string
	// Partial reports that the grammar recovered from syntax errors, so
	// downstream checks should stay conservative.
	Partial bool
}

// ParseProgram parses source as a complete program. base shifts every
// span into coordinates of the enclosing file, so positions reported
// for a <script> block line up with the .vue source.
func ParseProgram(source []byte, base int, lang Language) (*Result, error) {
	return parse(source, base, lang)
}

// ParseExpression parses one expression fragment, such as a mustache or
// directive value. The fragment is parenthesized first so object
// literals parse as expressions rather than blocks; when the wrapped
// form does not parse cleanly (v-on bodies may hold whole statement
// lists), the raw text is parsed as a program instead.
func ParseExpression(source []byte, base int, lang Language) (*Result, error) {
	wrapped := make([]byte, 0, len(source)+2)
	wrapped = append(wrapped, '(')
	wrapped = append(wrapped, source...)
	wrapped = append(wrapped, ')')

	res, err := parse(wrapped, base-1, lang)
	if err != nil {
		return nil, err
	}
	if !res.Partial {
		return res, nil
	}
	raw, err := parse(source, base, lang)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func parse(source []byte, base int, lang Language) (*Result, error) {
	pool := poolFor(lang)
	sp := pool.get()
	defer pool.put(sp)

	tree := sp.Parse(source, nil)
	if tree == nil {
		return nil, errors.New(errors.CodeParse, "parse failed")
	}
	defer tree.Close()

	root := tree.RootNode()
	b := &builder{src: source, base: base, ast: newAST(source, base)}
	b.ast.Root = b.build(root, InvalidNode)

	return &Result{
		AST:        b.ast,
		Scopes:     buildScopes(b.ast),
		TypeShapes: b.typeShapes,
		Partial:    root.HasError(),
	}, nil
}
