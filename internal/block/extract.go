package block

import (
	"go/ast"
	"go/parser"
	"go/token"
	"hash/adler32"
	"sort"
	"strings"
)

type rawBlock struct {
	name                   string
	declStart, declEnd     int // full declaration range, used for Block.StartLine/EndLine
	bodyStart, bodyEnd     int // interior range (signature/name excluded), used for checksum
}

// Extract parses src into a Module. A syntactically invalid file falls back
// to a single module-level block checksummed over the raw bytes, per the
// Block Extractor's parse-failure contract.
func Extract(src []byte, fileName string) Module {
	lines := splitLines(src)

	fset := token.NewFileSet()

	file, err := parser.ParseFile(fset, fileName, src, parser.ParseComments)
	if err != nil {
		return Module{Blocks: []Block{
			{Name: "", StartLine: 1, EndLine: len(lines), Checksum: adler32.Checksum(src)},
		}}
	}

	var raw []rawBlock

	endLine := fset.Position(file.End()).Line
	if len(lines) > endLine {
		endLine = len(lines)
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			raw = append(raw, funcRawBlock(fset, d))
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}

			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}

				if rb, ok := typeRawBlock(fset, ts); ok {
					raw = append(raw, rb)
				}
			}
		}
	}

	sort.Slice(raw, func(i, j int) bool { return raw[i].declStart < raw[j].declStart })

	excluded := make([]lineRange, 0, len(raw))
	for _, b := range raw {
		if b.bodyEnd >= b.bodyStart {
			excluded = append(excluded, lineRange{start: b.bodyStart, end: b.bodyEnd})
		}
	}

	blocks := make([]Block, 0, len(raw)+1)

	moduleBody := normalizeBody(lines, 1, endLine, excluded)
	blocks = append(blocks, Block{
		Name:      "",
		StartLine: 1,
		EndLine:   endLine,
		Checksum:  adler32.Checksum([]byte(moduleBody)),
	})

	for _, b := range raw {
		body := ""
		if b.bodyEnd >= b.bodyStart {
			body = normalizeBody(lines, b.bodyStart, b.bodyEnd, nil)
		}

		blocks = append(blocks, Block{
			Name:      b.name,
			StartLine: b.declStart,
			EndLine:   b.declEnd,
			Checksum:  adler32.Checksum([]byte(body)),
		})
	}

	return Module{Blocks: blocks}
}

func funcRawBlock(fset *token.FileSet, fn *ast.FuncDecl) rawBlock {
	declStart := fset.Position(fn.Pos()).Line
	declEnd := fset.Position(fn.End()).Line

	bodyStart, bodyEnd := declStart+1, declEnd-1
	if fn.Body != nil {
		bodyStart = fset.Position(fn.Body.Lbrace).Line + 1
		bodyEnd = fset.Position(fn.Body.Rbrace).Line - 1
	}

	return rawBlock{
		name:      funcName(fn),
		declStart: declStart,
		declEnd:   declEnd,
		bodyStart: bodyStart,
		bodyEnd:   bodyEnd,
	}
}

func typeRawBlock(fset *token.FileSet, ts *ast.TypeSpec) (rawBlock, bool) {
	declStart := fset.Position(ts.Pos()).Line
	declEnd := fset.Position(ts.End()).Line

	var opening, closing token.Pos

	switch t := ts.Type.(type) {
	case *ast.StructType:
		opening, closing = t.Fields.Opening, t.Fields.Closing
	case *ast.InterfaceType:
		opening, closing = t.Methods.Opening, t.Methods.Closing
	default:
		return rawBlock{}, false
	}

	bodyStart, bodyEnd := declStart+1, declEnd-1
	if opening.IsValid() && closing.IsValid() {
		bodyStart = fset.Position(opening).Line + 1
		bodyEnd = fset.Position(closing).Line - 1
	}

	return rawBlock{
		name:      ts.Name.Name,
		declStart: declStart,
		declEnd:   declEnd,
		bodyStart: bodyStart,
		bodyEnd:   bodyEnd,
	}, true
}

// funcName returns the dotted name of a function or method declaration,
// qualifying methods with their receiver type (e.g. "(*Tree).Changed").
func funcName(fn *ast.FuncDecl) string {
	name := fn.Name.Name

	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return name
	}

	recvType := exprToString(fn.Recv.List[0].Type)

	return "(" + recvType + ")." + name
}

func exprToString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + exprToString(t.X)
	case *ast.IndexExpr:
		return exprToString(t.X) + "[" + exprToString(t.Index) + "]"
	case *ast.IndexListExpr:
		return exprToString(t.X)
	default:
		return "?"
	}
}

func splitLines(src []byte) []string {
	if len(src) == 0 {
		return []string{""}
	}

	return strings.Split(string(src), "\n")
}
